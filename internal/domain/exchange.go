package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeConnection holds the credentials used to import trades from one exchange
// into one portfolio of the connection's owner
type ExchangeConnection struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PortfolioID  uuid.UUID
	ExchangeName string
	APIKey       string
	APISecret    string
	LastSyncedAt *time.Time
	IsActive     bool
}

// RawTrade is an exchange-native fill before it is mapped onto a Transaction
type RawTrade struct {
	ID        string
	Symbol    string // exchange pair, e.g. BTCUSDT
	BaseAsset string // asset symbol the quantity refers to, e.g. BTC
	Side      string // exchange-specific side, e.g. BUY / SELL
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Fee       decimal.Decimal
	FeeAsset  string
	Timestamp time.Time
}

// ExchangeClient fetches trades from one exchange account
type ExchangeClient interface {
	// Name returns the exchange name stored on connections, e.g. "binance"
	Name() string

	// GetTransactions returns all fills executed at or after since
	GetTransactions(ctx context.Context, since time.Time) ([]RawTrade, error)
}

// ExchangeClientFactory builds a client for a stored connection
type ExchangeClientFactory func(conn *ExchangeConnection) (ExchangeClient, error)
