package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset represents a tradable coin with its latest known quote
// The quote fields are only written by the market-data sync path and serve
// as the last-resort source when live and cached quotes are unavailable.
type Asset struct {
	ID               uuid.UUID
	Symbol           string // globally unique
	Name             string
	Price            decimal.Decimal
	MarketCap        decimal.Decimal
	PercentChange1h  decimal.Decimal
	PercentChange24h decimal.Decimal
	PercentChange7d  decimal.Decimal
	Volume24h        decimal.Decimal
	UpdatedAt        time.Time
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.Symbol) == "" {
		return errors.New("asset symbol cannot be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("asset name cannot be empty")
	}
	if a.Price.IsNegative() {
		return errors.New("asset price cannot be negative")
	}
	return nil
}

// Quote returns the stored quote fields of the asset
func (a *Asset) Quote() Quote {
	return Quote{
		Symbol:           a.Symbol,
		Name:             a.Name,
		Price:            a.Price,
		MarketCap:        a.MarketCap,
		PercentChange1h:  a.PercentChange1h,
		PercentChange24h: a.PercentChange24h,
		PercentChange7d:  a.PercentChange7d,
		Volume24h:        a.Volume24h,
	}
}

// ApplyQuote copies the market fields of q onto the asset
func (a *Asset) ApplyQuote(q Quote, at time.Time) {
	a.Price = q.Price
	a.MarketCap = q.MarketCap
	a.PercentChange1h = q.PercentChange1h
	a.PercentChange24h = q.PercentChange24h
	a.PercentChange7d = q.PercentChange7d
	a.Volume24h = q.Volume24h
	a.UpdatedAt = at
}
