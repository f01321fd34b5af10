package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork with one database transaction per call.
// The portfolio row is locked with SELECT ... FOR UPDATE so concurrent writers on the
// same portfolio queue behind each other until commit or rollback.
type UnitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a new unit of work
func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinPortfolio runs fn inside a transaction holding the portfolio row lock
func (u *UnitOfWork) WithinPortfolio(ctx context.Context, portfolioID uuid.UUID, fn func(ctx context.Context, repos domain.TxRepositories) error) error {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM portfolios WHERE id = $1 FOR UPDATE`, portfolioID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError("portfolio", portfolioID)
		}
		return fmt.Errorf("failed to lock portfolio: %w", err)
	}

	repos := domain.TxRepositories{
		Portfolios:   &portfolioRepository{q: tx},
		Assets:       &assetRepository{q: tx},
		Transactions: &transactionRepository{q: tx},
		Histories:    &historyRepository{q: tx},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
