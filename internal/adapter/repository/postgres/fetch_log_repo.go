package postgres

import (
	"context"
	"fmt"

	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// fetchLogRepository implements domain.FetchLogRepository
type fetchLogRepository struct {
	q querier
}

// NewFetchLogRepository creates a new fetch log repository
func NewFetchLogRepository(db *DB) domain.FetchLogRepository {
	return &fetchLogRepository{q: db.DB}
}

// Create appends one audit row
func (r *fetchLogRepository) Create(ctx context.Context, entry *domain.FetchLog) error {
	query := `
		INSERT INTO fetch_logs (id, type, source, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var errMsg *string
	if entry.ErrorMessage != "" {
		errMsg = &entry.ErrorMessage
	}
	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		string(entry.Type),
		entry.Source,
		entry.Success,
		nullString(errMsg),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fetch log: %w", err)
	}
	return nil
}
