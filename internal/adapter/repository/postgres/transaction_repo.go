package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

const transactionColumns = `id, portfolio_id, asset_id, quantity, unit_price, transaction_type, created_at,
	exchange_source, exchange_transaction_id, synced_at`

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	q querier
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{q: db.DB}
}

// Create inserts one ledger row
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, portfolio_id, asset_id, quantity, unit_price, transaction_type, created_at,
			exchange_source, exchange_transaction_id, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var source, exchangeTxID, syncedAt interface{}
	if tx.Exchange != nil {
		source = tx.Exchange.Source
		exchangeTxID = tx.Exchange.TransactionID
		syncedAt = tx.Exchange.SyncedAt
	}

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.PortfolioID,
		tx.AssetID,
		tx.Quantity,
		tx.UnitPrice,
		string(tx.Type),
		tx.CreatedAt,
		source,
		exchangeTxID,
		syncedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate transaction: %w", err)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListByPortfolio retrieves all transactions of a portfolio in insertion order
func (r *transactionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE portfolio_id = $1 ORDER BY created_at, seq`
	return r.list(ctx, query, portfolioID)
}

// ListByPortfolioAndAsset retrieves the transactions of one asset within a portfolio in insertion order
func (r *transactionRepository) ListByPortfolioAndAsset(ctx context.Context, portfolioID, assetID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE portfolio_id = $1 AND asset_id = $2 ORDER BY created_at, seq`
	return r.list(ctx, query, portfolioID, assetID)
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Transaction, error) {
	var rows []transactionRow
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	out := make([]*domain.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// ExistsByExchangeID reports whether an imported trade was already recorded
func (r *transactionRepository) ExistsByExchangeID(ctx context.Context, portfolioID uuid.UUID, source, exchangeTxID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE portfolio_id = $1 AND exchange_source = $2 AND exchange_transaction_id = $3
		)
	`
	var exists bool
	if err := r.q.GetContext(ctx, &exists, query, portfolioID, source, exchangeTxID); err != nil {
		return false, fmt.Errorf("failed to check exchange transaction: %w", err)
	}
	return exists, nil
}
