package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// PortfolioService exposes the owner-checked read paths of a portfolio
type PortfolioService struct {
	PortfolioRepo domain.PortfolioRepository
	HistoryRepo   domain.PortfolioHistoryRepository
	SnapshotRepo  domain.PortfolioSnapshotRepository
	Aggregator    *Aggregator
	Quotes        domain.QuoteProvider
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(
	portfolioRepo domain.PortfolioRepository,
	historyRepo domain.PortfolioHistoryRepository,
	snapshotRepo domain.PortfolioSnapshotRepository,
	aggregator *Aggregator,
	quotes domain.QuoteProvider,
) *PortfolioService {
	return &PortfolioService{
		PortfolioRepo: portfolioRepo,
		HistoryRepo:   historyRepo,
		SnapshotRepo:  snapshotRepo,
		Aggregator:    aggregator,
		Quotes:        quotes,
	}
}

// CreatePortfolio creates an empty portfolio owned by userID
func (s *PortfolioService) CreatePortfolio(ctx context.Context, userID uuid.UUID, name string) (*domain.Portfolio, error) {
	p := &domain.Portfolio{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, domain.NewValidationError("portfolio", "%s", err.Error())
	}

	if err := s.PortfolioRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Authorize loads the portfolio and checks that userID owns it
func (s *PortfolioService) Authorize(ctx context.Context, portfolioID, userID uuid.UUID) (*domain.Portfolio, error) {
	p, err := s.PortfolioRepo.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, &domain.AuthorizationError{PortfolioID: portfolioID, UserID: userID}
	}
	return p, nil
}

// GetPortfolioDetails values the portfolio against the current quotes
func (s *PortfolioService) GetPortfolioDetails(ctx context.Context, portfolioID, userID uuid.UUID) (*Summary, error) {
	p, err := s.Authorize(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	return s.Aggregator.GetPortfolioDetails(ctx, p, s.Quotes.GetQuotes(ctx))
}

// GetTotalHolding returns the signed net quantity of one asset in the portfolio
func (s *PortfolioService) GetTotalHolding(ctx context.Context, portfolioID, assetID, userID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.Authorize(ctx, portfolioID, userID); err != nil {
		return decimal.Zero, err
	}
	return s.Aggregator.GetTotalHoldingForAsset(ctx, portfolioID, assetID)
}

// GetTransactionMetrics returns bought/sold totals, optionally for a single asset
func (s *PortfolioService) GetTransactionMetrics(ctx context.Context, portfolioID, userID uuid.UUID, assetID *uuid.UUID) (*TransactionMetrics, error) {
	if _, err := s.Authorize(ctx, portfolioID, userID); err != nil {
		return nil, err
	}
	return s.Aggregator.GetTransactionMetrics(ctx, portfolioID, assetID)
}

// ListHistory returns the audit trail of the portfolio, newest first
func (s *PortfolioService) ListHistory(ctx context.Context, portfolioID, userID uuid.UUID) ([]*domain.PortfolioHistory, error) {
	if _, err := s.Authorize(ctx, portfolioID, userID); err != nil {
		return nil, err
	}
	return s.HistoryRepo.ListByPortfolio(ctx, portfolioID)
}

// ListSnapshots returns the snapshots recorded at or after since, oldest first
func (s *PortfolioService) ListSnapshots(ctx context.Context, portfolioID, userID uuid.UUID, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	if _, err := s.Authorize(ctx, portfolioID, userID); err != nil {
		return nil, err
	}
	return s.SnapshotRepo.ListByPortfolio(ctx, portfolioID, since)
}
