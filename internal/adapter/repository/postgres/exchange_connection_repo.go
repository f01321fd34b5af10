package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// ExchangeConnectionRepository implements domain.ExchangeConnectionRepository
type ExchangeConnectionRepository struct {
	q querier
}

// NewExchangeConnectionRepository creates a new exchange connection repository
func NewExchangeConnectionRepository(db *DB) *ExchangeConnectionRepository {
	return &ExchangeConnectionRepository{q: db.DB}
}

// Save inserts a connection or replaces the stored one with the same ID
func (r *ExchangeConnectionRepository) Save(ctx context.Context, c *domain.ExchangeConnection) error {
	query := `
		INSERT INTO exchange_connections (id, user_id, portfolio_id, exchange_name, api_key, api_secret, last_synced_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			exchange_name = EXCLUDED.exchange_name,
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			is_active = EXCLUDED.is_active
	`
	_, err := r.q.ExecContext(ctx, query,
		c.ID, c.UserID, c.PortfolioID, c.ExchangeName, c.APIKey, c.APISecret, c.LastSyncedAt, c.IsActive)
	if err != nil {
		return fmt.Errorf("failed to save exchange connection: %w", err)
	}
	return nil
}

// ListActive retrieves active connections, optionally restricted to one user
func (r *ExchangeConnectionRepository) ListActive(ctx context.Context, userID *uuid.UUID) ([]*domain.ExchangeConnection, error) {
	query := `
		SELECT id, user_id, portfolio_id, exchange_name, api_key, api_secret, last_synced_at, is_active
		FROM exchange_connections
		WHERE is_active AND ($1::uuid IS NULL OR user_id = $1)
		ORDER BY id
	`
	var rows []connectionRow
	if err := r.q.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list exchange connections: %w", err)
	}
	out := make([]*domain.ExchangeConnection, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// MarkSynced records the time of the last successful sync
func (r *ExchangeConnectionRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE exchange_connections SET last_synced_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark exchange connection synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark exchange connection synced: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError("exchange connection", id)
	}
	return nil
}
