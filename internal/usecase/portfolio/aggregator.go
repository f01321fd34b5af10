package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/valuation"
)

// Summary is the valuation of a whole portfolio
type Summary struct {
	PortfolioID     uuid.UUID
	Name            string
	TotalValue      decimal.Decimal
	TotalCostBasis  decimal.Decimal
	TotalProfitLoss decimal.Decimal
	Holdings        []*valuation.HoldingMetrics
}

// TransactionMetrics are the cash-flow totals of a set of transactions
type TransactionMetrics struct {
	TotalBought decimal.Decimal
	TotalSold   decimal.Decimal
	NetPosition decimal.Decimal
	Count       int
}

// Aggregator groups a portfolio's ledger by asset and values every group.
// It reads through the repositories it is given, so a unit of work can hand it
// transaction-bound repositories and see its own uncommitted writes.
type Aggregator struct {
	TransactionRepo domain.TransactionRepository
	AssetRepo       domain.AssetRepository
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(transactionRepo domain.TransactionRepository, assetRepo domain.AssetRepository) *Aggregator {
	return &Aggregator{
		TransactionRepo: transactionRepo,
		AssetRepo:       assetRepo,
	}
}

// GetPortfolioDetails values every asset of the portfolio against quotes
// Logic:
//   - Group transactions by asset, keeping first-seen order
//   - Drop groups whose asset has no quote (delisted or never synced); not an error
//   - TotalValue = Σ current value, TotalCostBasis = Σ remaining cost basis
//   - TotalProfitLoss = TotalValue - TotalCostBasis
func (a *Aggregator) GetPortfolioDetails(ctx context.Context, portfolio *domain.Portfolio, quotes domain.Quotes) (*Summary, error) {
	txs, err := a.TransactionRepo.ListByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	order := make([]uuid.UUID, 0)
	groups := make(map[uuid.UUID][]*domain.Transaction)
	for _, tx := range txs {
		if _, seen := groups[tx.AssetID]; !seen {
			order = append(order, tx.AssetID)
		}
		groups[tx.AssetID] = append(groups[tx.AssetID], tx)
	}

	assets, err := a.AssetRepo.ListByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	symbols := make(map[uuid.UUID]string, len(assets))
	for _, asset := range assets {
		symbols[asset.ID] = asset.Symbol
	}

	summary := &Summary{
		PortfolioID:     portfolio.ID,
		Name:            portfolio.Name,
		TotalValue:      decimal.Zero,
		TotalCostBasis:  decimal.Zero,
		TotalProfitLoss: decimal.Zero,
		Holdings:        make([]*valuation.HoldingMetrics, 0, len(order)),
	}

	for _, assetID := range order {
		symbol, ok := symbols[assetID]
		if !ok {
			continue
		}
		quote, ok := quotes.Lookup(symbol)
		if !ok {
			continue
		}

		metrics := valuation.ComputeHolding(valuation.HoldingInput{
			AssetID:      assetID,
			Transactions: groups[assetID],
			Quote:        &quote,
		})
		if metrics == nil {
			continue
		}

		summary.Holdings = append(summary.Holdings, metrics)
		summary.TotalValue = summary.TotalValue.Add(metrics.CurrentValue)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(metrics.RemainingCostBasis)
	}

	summary.TotalProfitLoss = summary.TotalValue.Sub(summary.TotalCostBasis)

	return summary, nil
}

// GetTotalHoldingForAsset returns the signed net quantity (+BUY, -SELL) of one asset.
// The raw sum is used so that an oversold ledger is visible to the balance check.
func (a *Aggregator) GetTotalHoldingForAsset(ctx context.Context, portfolioID, assetID uuid.UUID) (decimal.Decimal, error) {
	txs, err := a.TransactionRepo.ListByPortfolioAndAsset(ctx, portfolioID, assetID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list transactions: %w", err)
	}
	return valuation.HoldingQuantity(txs), nil
}

// GetTransactionMetrics sums bought and sold amounts (quantity × unit price)
// If assetID is nil, every asset of the portfolio is included
func (a *Aggregator) GetTransactionMetrics(ctx context.Context, portfolioID uuid.UUID, assetID *uuid.UUID) (*TransactionMetrics, error) {
	var (
		txs []*domain.Transaction
		err error
	)
	if assetID != nil {
		txs, err = a.TransactionRepo.ListByPortfolioAndAsset(ctx, portfolioID, *assetID)
	} else {
		txs, err = a.TransactionRepo.ListByPortfolio(ctx, portfolioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	metrics := &TransactionMetrics{
		TotalBought: decimal.Zero,
		TotalSold:   decimal.Zero,
		Count:       len(txs),
	}
	for _, tx := range txs {
		switch tx.Type {
		case domain.TransactionTypeBuy:
			metrics.TotalBought = metrics.TotalBought.Add(tx.Total())
		case domain.TransactionTypeSell:
			metrics.TotalSold = metrics.TotalSold.Add(tx.Total())
		}
	}
	metrics.NetPosition = metrics.TotalBought.Sub(metrics.TotalSold)

	return metrics, nil
}
