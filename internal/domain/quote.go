package domain

import (
	"github.com/shopspring/decimal"
)

// Quote is a point-in-time market snapshot for one asset. Never persisted as such.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	PercentChange1h  decimal.Decimal `json:"percent_change_1h"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `json:"percent_change_7d"`
	Volume24h        decimal.Decimal `json:"volume_24h"`
}

// Quotes maps an asset symbol to its quote.
// A Quotes value handed out by the quote cache is shared between readers and must not be mutated.
type Quotes map[string]Quote

// IsValid reports whether the map is non-empty and has at least one positive price.
// An all-zero payload from upstream is invalid and must never replace good data.
func (q Quotes) IsValid() bool {
	for _, quote := range q {
		if quote.Price.IsPositive() {
			return true
		}
	}
	return false
}

// Lookup returns the quote for symbol
func (q Quotes) Lookup(symbol string) (Quote, bool) {
	quote, ok := q[symbol]
	return quote, ok
}

// Clone returns an independent copy of the map
func (q Quotes) Clone() Quotes {
	if q == nil {
		return nil
	}
	out := make(Quotes, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// QuotesFromAssets rebuilds a quote map from persisted asset rows
func QuotesFromAssets(assets []*Asset) Quotes {
	out := make(Quotes, len(assets))
	for _, a := range assets {
		out[a.Symbol] = a.Quote()
	}
	return out
}
