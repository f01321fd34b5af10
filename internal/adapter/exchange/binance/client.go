// Package binance implements domain.ExchangeClient on the Binance spot REST API.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/httpclient"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

const (
	ExchangeName   = "binance"
	DefaultBaseURL = "https://api.binance.com"
)

// Config configures clients built by Factory
type Config struct {
	BaseURL string
	Timeout time.Duration
	RateRPS float64
}

// Client reads the trade history of one account
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *httpclient.Client
	now       func() time.Time
}

// NewClient creates a client for one pair of credentials
func NewClient(cfg Config, apiKey, apiSecret string) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http: httpclient.New(httpclient.Config{
			Name:          ExchangeName,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RateRPS,
			Burst:         5,
		}),
		now: time.Now,
	}
}

// Factory returns the domain.ExchangeClientFactory registered under ExchangeName
func Factory(cfg Config) domain.ExchangeClientFactory {
	return func(conn *domain.ExchangeConnection) (domain.ExchangeClient, error) {
		if conn.APIKey == "" || conn.APISecret == "" {
			return nil, errors.New("binance connection is missing api credentials")
		}
		return NewClient(cfg, conn.APIKey, conn.APISecret), nil
	}
}

// Name returns the exchange name stored on connections
func (c *Client) Name() string {
	return ExchangeName
}

type accountResponse struct {
	Balances []struct {
		Asset  string          `json:"asset"`
		Free   decimal.Decimal `json:"free"`
		Locked decimal.Decimal `json:"locked"`
	} `json:"balances"`
}

type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

type tradeResponse struct {
	ID              int64           `json:"id"`
	Price           decimal.Decimal `json:"price"`
	Qty             decimal.Decimal `json:"qty"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset"`
	IsBuyer         bool            `json:"isBuyer"`
	Time            int64           `json:"time"`
}

// GetTransactions returns the fills executed at or after since on every pair that involves
// an asset the account currently holds, oldest first.
func (c *Client) GetTransactions(ctx context.Context, since time.Time) ([]domain.RawTrade, error) {
	var account accountResponse
	if err := c.signedGet(ctx, "/api/v3/account", url.Values{}, &account); err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	held := make(map[string]bool)
	for _, b := range account.Balances {
		if b.Free.IsPositive() || b.Locked.IsPositive() {
			held[b.Asset] = true
		}
	}
	if len(held) == 0 {
		return nil, nil
	}

	var info exchangeInfoResponse
	if err := c.get(ctx, "/api/v3/exchangeInfo", &info); err != nil {
		return nil, fmt.Errorf("failed to load exchange info: %w", err)
	}

	var trades []domain.RawTrade
	for _, pair := range tradingPairs(info.Symbols, held) {
		params := url.Values{}
		params.Set("symbol", pair.Symbol)
		params.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))

		var fills []tradeResponse
		if err := c.signedGet(ctx, "/api/v3/myTrades", params, &fills); err != nil {
			return nil, fmt.Errorf("failed to load trades for %s: %w", pair.Symbol, err)
		}
		for _, f := range fills {
			trades = append(trades, toRawTrade(pair, f))
		}
	}

	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) })

	log.Debug().Int("assets", len(held)).Int("trades", len(trades)).Msg("binance trades loaded")
	return trades, nil
}

// tradingPairs returns each pair whose base or quote asset is held, once
func tradingPairs(symbols []symbolInfo, held map[string]bool) []symbolInfo {
	out := make([]symbolInfo, 0)
	for _, s := range symbols {
		if held[s.BaseAsset] || held[s.QuoteAsset] {
			out = append(out, s)
		}
	}
	return out
}

func toRawTrade(pair symbolInfo, f tradeResponse) domain.RawTrade {
	side := "SELL"
	if f.IsBuyer {
		side = "BUY"
	}
	return domain.RawTrade{
		ID:        strconv.FormatInt(f.ID, 10),
		Symbol:    pair.Symbol,
		BaseAsset: pair.BaseAsset,
		Side:      side,
		Quantity:  f.Qty,
		Price:     f.Price,
		Fee:       f.Commission,
		FeeAsset:  f.CommissionAsset,
		Timestamp: time.UnixMilli(f.Time).UTC(),
	}
}

// sign returns the hex HMAC-SHA256 of the query string under the account secret
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) signedGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query := params.Encode()
	return c.do(ctx, path+"?"+query+"&signature="+c.sign(query), true, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, path, false, out)
}

func (c *Client) do(ctx context.Context, pathAndQuery string, signed bool, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	body, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", ExchangeName, err)
	}
	return nil
}
