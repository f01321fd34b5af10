package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// historyRepository implements domain.PortfolioHistoryRepository
type historyRepository struct {
	q querier
}

// NewHistoryRepository creates a new portfolio history repository
func NewHistoryRepository(db *DB) domain.PortfolioHistoryRepository {
	return &historyRepository{q: db.DB}
}

// Create inserts a history row
func (r *historyRepository) Create(ctx context.Context, h *domain.PortfolioHistory) error {
	query := `
		INSERT INTO portfolio_histories (id, portfolio_id, previous_value, new_value, change_type, change_value, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		h.ID,
		h.PortfolioID,
		h.PreviousValue,
		h.NewValue,
		nullString((*string)(h.ChangeType)),
		h.ChangeValue,
		h.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio history: %w", err)
	}
	return nil
}

// Update stores the after-write fields of a history row
func (r *historyRepository) Update(ctx context.Context, h *domain.PortfolioHistory) error {
	query := `
		UPDATE portfolio_histories
		SET new_value = $2, change_type = $3, change_value = $4
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, query, h.ID, h.NewValue, nullString((*string)(h.ChangeType)), h.ChangeValue)
	if err != nil {
		return fmt.Errorf("failed to update portfolio history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update portfolio history: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError("portfolio history", h.ID)
	}
	return nil
}

// ListByPortfolio retrieves the history of a portfolio, newest first
func (r *historyRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.PortfolioHistory, error) {
	query := `
		SELECT id, portfolio_id, previous_value, new_value, change_type, change_value, changed_at
		FROM portfolio_histories
		WHERE portfolio_id = $1
		ORDER BY changed_at DESC
	`
	var rows []historyRow
	if err := r.q.SelectContext(ctx, &rows, query, portfolioID); err != nil {
		return nil, fmt.Errorf("failed to list portfolio history: %w", err)
	}
	out := make([]*domain.PortfolioHistory, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
