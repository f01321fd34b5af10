package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// snapshotRepository implements domain.PortfolioSnapshotRepository
type snapshotRepository struct {
	q querier
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.PortfolioSnapshotRepository {
	return &snapshotRepository{q: db.DB}
}

// Create inserts a snapshot
func (r *snapshotRepository) Create(ctx context.Context, s *domain.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (id, portfolio_id, total_value, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.q.ExecContext(ctx, query, s.ID, s.PortfolioID, s.TotalValue, s.RecordedAt); err != nil {
		return fmt.Errorf("failed to insert portfolio snapshot: %w", err)
	}
	return nil
}

// ListByPortfolio retrieves the snapshots recorded at or after since, oldest first
func (r *snapshotRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, total_value, recorded_at
		FROM portfolio_snapshots
		WHERE portfolio_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at
	`
	var rows []snapshotRow
	if err := r.q.SelectContext(ctx, &rows, query, portfolioID, since); err != nil {
		return nil, fmt.Errorf("failed to list portfolio snapshots: %w", err)
	}
	out := make([]*domain.PortfolioSnapshot, len(rows))
	for i, row := range rows {
		out[i] = &domain.PortfolioSnapshot{
			ID:          row.ID,
			PortfolioID: row.PortfolioID,
			TotalValue:  row.TotalValue,
			RecordedAt:  row.RecordedAt,
		}
	}
	return out, nil
}
