package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio belongs to one user and owns a ledger of transactions.
// It stores no quantity or value: both are derived at read time from the ledger and current quotes.
type Portfolio struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("portfolio name cannot be empty")
	}
	if p.UserID == uuid.Nil {
		return errors.New("portfolio must have an owner")
	}
	return nil
}

// OwnedBy reports whether userID owns the portfolio
func (p *Portfolio) OwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}

// PortfolioHistory is the audit record of one mutating event on a portfolio.
// It is inserted with PreviousValue before the transaction write and completed afterwards.
type PortfolioHistory struct {
	ID            uuid.UUID
	PortfolioID   uuid.UUID
	PreviousValue decimal.Decimal
	NewValue      decimal.NullDecimal
	ChangeType    *TransactionType
	ChangeValue   decimal.NullDecimal
	ChangedAt     time.Time
}

// Complete fills in the after-write half of the history record
func (h *PortfolioHistory) Complete(changeType TransactionType, changeValue, newValue decimal.Decimal) {
	h.ChangeType = &changeType
	h.ChangeValue = decimal.NewNullDecimal(changeValue)
	h.NewValue = decimal.NewNullDecimal(newValue)
}

// PortfolioSnapshot is an immutable periodic recording of total portfolio value
type PortfolioSnapshot struct {
	ID          uuid.UUID
	PortfolioID uuid.UUID
	TotalValue  decimal.Decimal
	RecordedAt  time.Time
}
