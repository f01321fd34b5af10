package grpc

import (
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/portfolio"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/valuation"
)

// summaryToMap converts a portfolio summary to a Struct-compatible map
func summaryToMap(s *portfolio.Summary) map[string]interface{} {
	holdings := make([]interface{}, len(s.Holdings))
	for i, h := range s.Holdings {
		holdings[i] = holdingToMap(h)
	}
	return map[string]interface{}{
		"portfolio_id":      s.PortfolioID.String(),
		"name":              s.Name,
		"total_value":       s.TotalValue.String(),
		"total_cost_basis":  s.TotalCostBasis.String(),
		"total_profit_loss": s.TotalProfitLoss.String(),
		"holdings":          holdings,
	}
}

func holdingToMap(h *valuation.HoldingMetrics) map[string]interface{} {
	txs := make([]interface{}, len(h.Transactions))
	for i, tx := range h.Transactions {
		txs[i] = map[string]interface{}{
			"id":               tx.ID.String(),
			"transaction_type": string(tx.Type),
			"quantity":         tx.Quantity.String(),
			"unit_price":       tx.UnitPrice.String(),
			"total":            tx.Total.String(),
			"created_at":       formatTime(tx.CreatedAt),
		}
	}
	return map[string]interface{}{
		"asset_id":             h.AssetID.String(),
		"symbol":               h.Symbol,
		"name":                 h.Name,
		"price":                h.Price.String(),
		"total_buy_quantity":   h.TotalBuyQuantity.String(),
		"total_sell_quantity":  h.TotalSellQuantity.String(),
		"remaining_quantity":   h.RemainingQuantity.String(),
		"average_buy_price":    h.AverageBuyPrice.String(),
		"total_buy_value":      h.TotalBuyValue.String(),
		"total_sell_value":     h.TotalSellValue.String(),
		"cost_basis_removed":   h.CostBasisRemoved.String(),
		"remaining_cost_basis": h.RemainingCostBasis.String(),
		"current_value":        h.CurrentValue.String(),
		"profit_loss":          h.ProfitLoss.String(),
		"percent_change_1h":    h.PercentChange1h.String(),
		"percent_change_24h":   h.PercentChange24h.String(),
		"percent_change_7d":    h.PercentChange7d.String(),
		"transactions":         txs,
	}
}

func historyToMap(h *domain.PortfolioHistory) map[string]interface{} {
	m := map[string]interface{}{
		"id":             h.ID.String(),
		"previous_value": h.PreviousValue.String(),
		"changed_at":     formatTime(h.ChangedAt),
	}
	if h.NewValue.Valid {
		m["new_value"] = h.NewValue.Decimal.String()
	}
	if h.ChangeType != nil {
		m["change_type"] = string(*h.ChangeType)
	}
	if h.ChangeValue.Valid {
		m["change_value"] = h.ChangeValue.Decimal.String()
	}
	return m
}

func quoteToMap(q domain.Quote) map[string]interface{} {
	return map[string]interface{}{
		"symbol":             q.Symbol,
		"name":               q.Name,
		"price":              q.Price.String(),
		"market_cap":         q.MarketCap.String(),
		"percent_change_1h":  q.PercentChange1h.String(),
		"percent_change_24h": q.PercentChange24h.String(),
		"percent_change_7d":  q.PercentChange7d.String(),
		"volume_24h":         q.Volume24h.String(),
	}
}
