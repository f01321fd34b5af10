// Package valuation computes holding metrics for one asset of a portfolio using the
// average-cost method. Everything here is pure: no I/O, no hidden state.
//
// Average cost, as implemented:
//  1. Cost basis = Σ(quantity × unit price) over every BUY
//  2. Every SELL removes (quantity sold × average buy price) from the cost basis, where the
//     average buy price is taken over ALL buys in the ledger, including buys made after the sell
//  3. Profit/loss = current value − remaining cost basis
//
// Step 2 means a later buy changes the cost basis removed by an earlier sell. This is the
// accounting the product ships with; it is neither FIFO nor a running average at sell time.
package valuation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// divisionPlaces is the number of fractional digits kept when dividing
const divisionPlaces int32 = 18

// HoldingInput is everything needed to value one asset of a portfolio
type HoldingInput struct {
	AssetID      uuid.UUID
	Transactions []*domain.Transaction // all ledger entries of this asset
	Quote        *domain.Quote         // nil when the asset has no market data
}

// TransactionDetail is the per-entry view returned with the metrics
type TransactionDetail struct {
	ID        uuid.UUID
	Type      domain.TransactionType
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

// HoldingMetrics is the valuation of one asset
type HoldingMetrics struct {
	AssetID uuid.UUID
	Symbol  string
	Name    string
	Price   decimal.Decimal

	TotalBuyQuantity   decimal.Decimal
	TotalSellQuantity  decimal.Decimal
	RemainingQuantity  decimal.Decimal
	AverageBuyPrice    decimal.Decimal
	TotalBuyValue      decimal.Decimal
	TotalSellValue     decimal.Decimal
	CostBasisRemoved   decimal.Decimal
	RemainingCostBasis decimal.Decimal
	CurrentValue       decimal.Decimal
	ProfitLoss         decimal.Decimal

	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
	PercentChange7d  decimal.Decimal

	Transactions []TransactionDetail
}

// ComputeHolding values one asset. It returns nil when in.Quote is nil: an asset without
// market data contributes nothing and the caller must drop it.
func ComputeHolding(in HoldingInput) *HoldingMetrics {
	if in.Quote == nil {
		return nil
	}

	totalBuyQty := decimal.Zero
	totalBuyValue := decimal.Zero
	totalSellQty := decimal.Zero
	totalSellValue := decimal.Zero
	details := make([]TransactionDetail, 0, len(in.Transactions))

	for _, tx := range in.Transactions {
		switch tx.Type {
		case domain.TransactionTypeBuy:
			totalBuyQty = totalBuyQty.Add(tx.Quantity)
			totalBuyValue = totalBuyValue.Add(tx.Total())
		case domain.TransactionTypeSell:
			totalSellQty = totalSellQty.Add(tx.Quantity)
			totalSellValue = totalSellValue.Add(tx.Total())
		default:
			// unknown kinds are rejected at intake and never valued
			continue
		}
		details = append(details, TransactionDetail{
			ID:        tx.ID,
			Type:      tx.Type,
			Quantity:  tx.Quantity,
			UnitPrice: tx.UnitPrice,
			Total:     tx.Total(),
			CreatedAt: tx.CreatedAt,
		})
	}

	remainingQty := clampZero(totalBuyQty.Sub(totalSellQty))

	averageBuyPrice := decimal.Zero
	if totalBuyQty.IsPositive() {
		averageBuyPrice = totalBuyValue.DivRound(totalBuyQty, divisionPlaces)
	}

	costBasisRemoved := totalSellQty.Mul(averageBuyPrice)
	remainingCostBasis := clampZero(totalBuyValue.Sub(costBasisRemoved))

	currentValue := remainingQty.Mul(in.Quote.Price)
	profitLoss := currentValue.Sub(remainingCostBasis)

	return &HoldingMetrics{
		AssetID:            in.AssetID,
		Symbol:             in.Quote.Symbol,
		Name:               in.Quote.Name,
		Price:              in.Quote.Price,
		TotalBuyQuantity:   totalBuyQty,
		TotalSellQuantity:  totalSellQty,
		RemainingQuantity:  remainingQty,
		AverageBuyPrice:    averageBuyPrice,
		TotalBuyValue:      totalBuyValue,
		TotalSellValue:     totalSellValue,
		CostBasisRemoved:   costBasisRemoved,
		RemainingCostBasis: remainingCostBasis,
		CurrentValue:       currentValue,
		ProfitLoss:         profitLoss,
		PercentChange1h:    in.Quote.PercentChange1h,
		PercentChange24h:   in.Quote.PercentChange24h,
		PercentChange7d:    in.Quote.PercentChange7d,
		Transactions:       details,
	}
}

// HoldingQuantity returns the signed net quantity (+BUY, −SELL) of the given entries.
// Unlike HoldingMetrics.RemainingQuantity it is not clamped, so an oversold ledger shows up negative.
func HoldingQuantity(txs []*domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case domain.TransactionTypeBuy, domain.TransactionTypeSell:
			total = total.Add(tx.SignedQuantity())
		}
	}
	return total
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
