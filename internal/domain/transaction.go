package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxFractionDigits is the precision of stored quantities and prices
const MaxFractionDigits = 10

// TransactionType represents the kind of a ledger entry
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// ParseTransactionType accepts "BUY"/"SELL" in any case and rejects everything else
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case TransactionTypeBuy:
		return TransactionTypeBuy, nil
	case TransactionTypeSell:
		return TransactionTypeSell, nil
	default:
		return "", NewValidationError("transaction_type", "must be BUY or SELL, got %q", s)
	}
}

// IsValid reports whether the type is one of the closed set of kinds
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// ExchangeProvenance identifies a transaction imported from an exchange.
// The pair (Source, TransactionID) is unique per portfolio and drives dedup on re-sync.
type ExchangeProvenance struct {
	Source        string
	TransactionID string
	SyncedAt      time.Time
}

// Transaction represents one buy or sell event on a portfolio
// Quantity is always positive, the direction is carried by Type.
type Transaction struct {
	ID          uuid.UUID
	PortfolioID uuid.UUID
	AssetID     uuid.UUID
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Type        TransactionType
	CreatedAt   time.Time
	Exchange    *ExchangeProvenance // nil for manually entered transactions
}

// Total returns quantity × unit price
func (t *Transaction) Total() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}

// SignedQuantity returns +quantity for buys and -quantity for sells
func (t *Transaction) SignedQuantity() decimal.Decimal {
	if t.Type == TransactionTypeSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.PortfolioID == uuid.Nil {
		return NewValidationError("portfolio_id", "is required")
	}
	if t.AssetID == uuid.Nil {
		return NewValidationError("asset_id", "is required")
	}
	if !t.Type.IsValid() {
		return NewValidationError("transaction_type", "must be BUY or SELL, got %q", string(t.Type))
	}
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("quantity", "must be positive")
	}
	if t.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "must not be negative")
	}
	if exceedsPrecision(t.Quantity) {
		return NewValidationError("quantity", "must have at most %d decimal places", MaxFractionDigits)
	}
	if exceedsPrecision(t.UnitPrice) {
		return NewValidationError("unit_price", "must have at most %d decimal places", MaxFractionDigits)
	}
	if t.Exchange != nil && (t.Exchange.Source == "" || t.Exchange.TransactionID == "") {
		return NewValidationError("exchange", "source and transaction id must both be set")
	}
	return nil
}

// exceedsPrecision reports whether d has significant digits past MaxFractionDigits
func exceedsPrecision(d decimal.Decimal) bool {
	return !d.Truncate(MaxFractionDigits).Equal(d)
}
