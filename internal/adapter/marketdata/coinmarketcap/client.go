// Package coinmarketcap implements domain.MarketDataSource on the CoinMarketCap listings API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/httpclient"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

const (
	DefaultBaseURL = "https://pro-api.coinmarketcap.com"
	listingsPath   = "/v1/cryptocurrencies/listings/latest"
	sourceName     = "coinmarketcap"
)

// Config configures the client
type Config struct {
	BaseURL string
	APIKey  string
	Limit   int // assets per fetch
	Convert string
	Timeout time.Duration
	RateRPS float64

	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client fetches the top listings in one request
type Client struct {
	cfg  Config
	http *httpclient.Client
}

// NewClient creates a new CoinMarketCap client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Convert == "" {
		cfg.Convert = "USD"
	}
	return &Client{
		cfg: cfg,
		http: httpclient.New(httpclient.Config{
			Name:            sourceName,
			Timeout:         cfg.Timeout,
			RatePerSecond:   cfg.RateRPS,
			Burst:           1,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: cfg.BreakerCooldown,
		}),
	}
}

// Name identifies the provider in audit logs
func (c *Client) Name() string {
	return sourceName
}

type listingsResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data []listing `json:"data"`
}

type listing struct {
	Symbol string                  `json:"symbol"`
	Name   string                  `json:"name"`
	Quote  map[string]listingQuote `json:"quote"`
}

type listingQuote struct {
	Price            decimal.NullDecimal `json:"price"`
	MarketCap        decimal.NullDecimal `json:"market_cap"`
	PercentChange1h  decimal.NullDecimal `json:"percent_change_1h"`
	PercentChange24h decimal.NullDecimal `json:"percent_change_24h"`
	PercentChange7d  decimal.NullDecimal `json:"percent_change_7d"`
	Volume24h        decimal.NullDecimal `json:"volume_24h"`
}

// Fetch returns the quotes of the configured batch keyed by symbol.
// Listings without a quote in the convert currency are skipped; null fields become zero.
func (c *Client) Fetch(ctx context.Context) (domain.Quotes, error) {
	params := url.Values{}
	params.Set("start", "1")
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	params.Set("convert", c.cfg.Convert)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+listingsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	body, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp listingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuoteData, err)
	}
	if resp.Status.ErrorCode != 0 {
		return nil, &domain.UpstreamError{
			Source:     sourceName,
			StatusCode: http.StatusOK,
			Code:       resp.Status.ErrorCode,
			Message:    resp.Status.ErrorMessage,
		}
	}

	quotes := make(domain.Quotes, len(resp.Data))
	for _, l := range resp.Data {
		symbol := strings.TrimSpace(l.Symbol)
		q, ok := l.Quote[c.cfg.Convert]
		if symbol == "" || !ok {
			continue
		}
		quotes[symbol] = domain.Quote{
			Symbol:           symbol,
			Name:             l.Name,
			Price:            q.Price.Decimal,
			MarketCap:        q.MarketCap.Decimal,
			PercentChange1h:  q.PercentChange1h.Decimal,
			PercentChange24h: q.PercentChange24h.Decimal,
			PercentChange7d:  q.PercentChange7d.Decimal,
			Volume24h:        q.Volume24h.Decimal,
		}
	}
	return quotes, nil
}
