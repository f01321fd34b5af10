package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByPortfolioAndAsset(ctx context.Context, portfolioID, assetID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, portfolioID, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByExchangeID(ctx context.Context, portfolioID uuid.UUID, source, exchangeTxID string) (bool, error) {
	args := m.Called(ctx, portfolioID, source, exchangeTxID)
	return args.Bool(0), args.Error(1)
}

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Asset, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Upsert(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

// MockPortfolioRepository is a mock implementation of PortfolioRepository for testing
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPortfolioRepository) List(ctx context.Context) ([]*domain.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Portfolio), args.Error(1)
}

// MockHistoryRepository is a mock implementation of PortfolioHistoryRepository for testing
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, h *domain.PortfolioHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockHistoryRepository) Update(ctx context.Context, h *domain.PortfolioHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.PortfolioHistory, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PortfolioHistory), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of PortfolioSnapshotRepository for testing
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Create(ctx context.Context, s *domain.PortfolioSnapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSnapshotRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, portfolioID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PortfolioSnapshot), args.Error(1)
}

// stubQuotes is a fixed QuoteProvider
type stubQuotes domain.Quotes

func (s stubQuotes) GetQuotes(context.Context) domain.Quotes { return domain.Quotes(s) }
