package postgres

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// Row types mirror the table columns; decimal and uuid scan directly from NUMERIC and UUID.

type assetRow struct {
	ID               uuid.UUID       `db:"id"`
	Symbol           string          `db:"symbol"`
	Name             string          `db:"name"`
	Price            decimal.Decimal `db:"price"`
	MarketCap        decimal.Decimal `db:"market_cap"`
	PercentChange1h  decimal.Decimal `db:"percent_change_1h"`
	PercentChange24h decimal.Decimal `db:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `db:"percent_change_7d"`
	Volume24h        decimal.Decimal `db:"volume_24h"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r assetRow) toDomain() *domain.Asset {
	return &domain.Asset{
		ID:               r.ID,
		Symbol:           r.Symbol,
		Name:             r.Name,
		Price:            r.Price,
		MarketCap:        r.MarketCap,
		PercentChange1h:  r.PercentChange1h,
		PercentChange24h: r.PercentChange24h,
		PercentChange7d:  r.PercentChange7d,
		Volume24h:        r.Volume24h,
		UpdatedAt:        r.UpdatedAt,
	}
}

type portfolioRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r portfolioRow) toDomain() *domain.Portfolio {
	return &domain.Portfolio{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: r.CreatedAt}
}

type transactionRow struct {
	ID                    uuid.UUID       `db:"id"`
	PortfolioID           uuid.UUID       `db:"portfolio_id"`
	AssetID               uuid.UUID       `db:"asset_id"`
	Quantity              decimal.Decimal `db:"quantity"`
	UnitPrice             decimal.Decimal `db:"unit_price"`
	TransactionType       string          `db:"transaction_type"`
	CreatedAt             time.Time       `db:"created_at"`
	ExchangeSource        sql.NullString  `db:"exchange_source"`
	ExchangeTransactionID sql.NullString  `db:"exchange_transaction_id"`
	SyncedAt              sql.NullTime    `db:"synced_at"`
}

func (r transactionRow) toDomain() *domain.Transaction {
	tx := &domain.Transaction{
		ID:          r.ID,
		PortfolioID: r.PortfolioID,
		AssetID:     r.AssetID,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Type:        domain.TransactionType(r.TransactionType),
		CreatedAt:   r.CreatedAt,
	}
	if r.ExchangeSource.Valid {
		tx.Exchange = &domain.ExchangeProvenance{
			Source:        r.ExchangeSource.String,
			TransactionID: r.ExchangeTransactionID.String,
			SyncedAt:      r.SyncedAt.Time,
		}
	}
	return tx
}

type historyRow struct {
	ID            uuid.UUID           `db:"id"`
	PortfolioID   uuid.UUID           `db:"portfolio_id"`
	PreviousValue decimal.Decimal     `db:"previous_value"`
	NewValue      decimal.NullDecimal `db:"new_value"`
	ChangeType    sql.NullString      `db:"change_type"`
	ChangeValue   decimal.NullDecimal `db:"change_value"`
	ChangedAt     time.Time           `db:"changed_at"`
}

func (r historyRow) toDomain() *domain.PortfolioHistory {
	h := &domain.PortfolioHistory{
		ID:            r.ID,
		PortfolioID:   r.PortfolioID,
		PreviousValue: r.PreviousValue,
		NewValue:      r.NewValue,
		ChangeValue:   r.ChangeValue,
		ChangedAt:     r.ChangedAt,
	}
	if r.ChangeType.Valid {
		t := domain.TransactionType(r.ChangeType.String)
		h.ChangeType = &t
	}
	return h
}

type snapshotRow struct {
	ID          uuid.UUID       `db:"id"`
	PortfolioID uuid.UUID       `db:"portfolio_id"`
	TotalValue  decimal.Decimal `db:"total_value"`
	RecordedAt  time.Time       `db:"recorded_at"`
}

type connectionRow struct {
	ID           uuid.UUID    `db:"id"`
	UserID       uuid.UUID    `db:"user_id"`
	PortfolioID  uuid.UUID    `db:"portfolio_id"`
	ExchangeName string       `db:"exchange_name"`
	APIKey       string       `db:"api_key"`
	APISecret    string       `db:"api_secret"`
	LastSyncedAt sql.NullTime `db:"last_synced_at"`
	IsActive     bool         `db:"is_active"`
}

func (r connectionRow) toDomain() *domain.ExchangeConnection {
	c := &domain.ExchangeConnection{
		ID:           r.ID,
		UserID:       r.UserID,
		PortfolioID:  r.PortfolioID,
		ExchangeName: r.ExchangeName,
		APIKey:       r.APIKey,
		APISecret:    r.APISecret,
		IsActive:     r.IsActive,
	}
	if r.LastSyncedAt.Valid {
		t := r.LastSyncedAt.Time
		c.LastSyncedAt = &t
	}
	return c
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
