package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

const assetColumns = `id, symbol, name, price, market_cap, percent_change_1h, percent_change_24h,
	percent_change_7d, volume_24h, updated_at`

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	q querier
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{q: db.DB}
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	var row assetRow
	err := r.q.GetContext(ctx, &row, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("asset", id)
		}
		return nil, fmt.Errorf("failed to get asset by ID: %w", err)
	}
	return row.toDomain(), nil
}

// GetBySymbol retrieves an asset by its unique symbol
func (r *assetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	var row assetRow
	err := r.q.GetContext(ctx, &row, `SELECT `+assetColumns+` FROM assets WHERE symbol = $1`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("asset", symbol)
		}
		return nil, fmt.Errorf("failed to get asset by symbol: %w", err)
	}
	return row.toDomain(), nil
}

// ListByIDs retrieves the assets with the given IDs in the order of ids
func (r *assetRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Asset, error) {
	if len(ids) == 0 {
		return []*domain.Asset{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var rows []assetRow
	err := r.q.SelectContext(ctx, &rows, `SELECT `+assetColumns+` FROM assets WHERE id = ANY($1::uuid[])`, pq.StringArray(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by IDs: %w", err)
	}

	byID := make(map[uuid.UUID]assetRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*domain.Asset, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row.toDomain())
		}
	}
	return out, nil
}

// List retrieves every asset ordered by symbol
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	var rows []assetRow
	if err := r.q.SelectContext(ctx, &rows, `SELECT `+assetColumns+` FROM assets ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	out := make([]*domain.Asset, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Upsert inserts the asset or updates the row with the same symbol, and sets asset.ID to the stored id
func (r *assetRepository) Upsert(ctx context.Context, asset *domain.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}

	query := `
		INSERT INTO assets (id, symbol, name, price, market_cap, percent_change_1h, percent_change_24h,
			percent_change_7d, volume_24h, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			market_cap = EXCLUDED.market_cap,
			percent_change_1h = EXCLUDED.percent_change_1h,
			percent_change_24h = EXCLUDED.percent_change_24h,
			percent_change_7d = EXCLUDED.percent_change_7d,
			volume_24h = EXCLUDED.volume_24h,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := r.q.QueryRowxContext(ctx, query,
		asset.ID,
		asset.Symbol,
		asset.Name,
		asset.Price,
		asset.MarketCap,
		asset.PercentChange1h,
		asset.PercentChange24h,
		asset.PercentChange7d,
		asset.Volume24h,
		asset.UpdatedAt,
	).Scan(&asset.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.Symbol, err)
	}
	return nil
}
