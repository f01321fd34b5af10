package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetRepository defines the interface for asset (coin) persistence operations
type AssetRepository interface {
	// GetByID retrieves an asset by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// GetBySymbol retrieves an asset by its unique symbol
	GetBySymbol(ctx context.Context, symbol string) (*Asset, error)

	// ListByIDs retrieves the assets with the given IDs; unknown IDs are ignored
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Asset, error)

	// List retrieves every asset
	List(ctx context.Context) ([]*Asset, error)

	// Upsert inserts the asset or updates the quote fields of the row with the same symbol
	Upsert(ctx context.Context, asset *Asset) error
}

// PortfolioRepository defines the interface for portfolio persistence operations
type PortfolioRepository interface {
	// GetByID retrieves a portfolio by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Portfolio, error)

	// Create creates a new portfolio
	Create(ctx context.Context, portfolio *Portfolio) error

	// List retrieves every portfolio
	List(ctx context.Context) ([]*Portfolio, error)
}

// TransactionRepository defines the interface for ledger persistence operations
type TransactionRepository interface {
	// Create creates a new transaction
	Create(ctx context.Context, tx *Transaction) error

	// ListByPortfolio retrieves all transactions of a portfolio ordered by creation time
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*Transaction, error)

	// ListByPortfolioAndAsset retrieves the transactions of one asset within a portfolio
	ListByPortfolioAndAsset(ctx context.Context, portfolioID, assetID uuid.UUID) ([]*Transaction, error)

	// ExistsByExchangeID reports whether an imported trade was already recorded
	ExistsByExchangeID(ctx context.Context, portfolioID uuid.UUID, source, exchangeTxID string) (bool, error)
}

// PortfolioHistoryRepository defines the interface for the transaction audit trail
type PortfolioHistoryRepository interface {
	// Create inserts a history row
	Create(ctx context.Context, h *PortfolioHistory) error

	// Update stores the completed after-write fields of a history row
	Update(ctx context.Context, h *PortfolioHistory) error

	// ListByPortfolio retrieves the history of a portfolio, newest first
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*PortfolioHistory, error)
}

// PortfolioSnapshotRepository defines the interface for periodic value recordings
type PortfolioSnapshotRepository interface {
	// Create inserts a snapshot
	Create(ctx context.Context, s *PortfolioSnapshot) error

	// ListByPortfolio retrieves the snapshots recorded at or after since, oldest first
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, since time.Time) ([]*PortfolioSnapshot, error)
}

// FetchLogRepository is the append-only audit sink for market-data fetch attempts
type FetchLogRepository interface {
	Create(ctx context.Context, entry *FetchLog) error
}

// ExchangeConnectionRepository defines the interface for stored exchange credentials
type ExchangeConnectionRepository interface {
	// ListActive retrieves active connections, optionally restricted to one user
	ListActive(ctx context.Context, userID *uuid.UUID) ([]*ExchangeConnection, error)

	// MarkSynced records the time of the last successful sync
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TxRepositories are the repositories bound to one unit of work
type TxRepositories struct {
	Portfolios   PortfolioRepository
	Assets       AssetRepository
	Transactions TransactionRepository
	Histories    PortfolioHistoryRepository
}

// UnitOfWork runs fn atomically.
// WithinPortfolio locks the portfolio row for the duration of fn so that concurrent units of
// work on the same portfolio are serialized. If fn returns an error every write is discarded.
type UnitOfWork interface {
	WithinPortfolio(ctx context.Context, portfolioID uuid.UUID, fn func(ctx context.Context, repos TxRepositories) error) error
}
