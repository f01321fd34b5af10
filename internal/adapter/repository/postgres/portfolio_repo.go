package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	q querier
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{q: db.DB}
}

// GetByID retrieves a portfolio by its ID
func (r *portfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	var row portfolioRow
	err := r.q.GetContext(ctx, &row, `SELECT id, user_id, name, created_at FROM portfolios WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("portfolio", id)
		}
		return nil, fmt.Errorf("failed to get portfolio by ID: %w", err)
	}
	return row.toDomain(), nil
}

// Create creates a new portfolio
func (r *portfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	query := `
		INSERT INTO portfolios (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.q.ExecContext(ctx, query, p.ID, p.UserID, p.Name, p.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// List retrieves every portfolio, oldest first
func (r *portfolioRepository) List(ctx context.Context) ([]*domain.Portfolio, error) {
	var rows []portfolioRow
	if err := r.q.SelectContext(ctx, &rows, `SELECT id, user_id, name, created_at FROM portfolios ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	out := make([]*domain.Portfolio, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
