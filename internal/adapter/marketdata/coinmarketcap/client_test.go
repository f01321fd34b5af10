package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingsBody = `{
  "status": {"error_code": 0, "error_message": null},
  "data": [
    {"symbol": "BTC", "name": "Bitcoin", "quote": {"USD": {
      "price": 50000.5, "market_cap": 980000000000, "percent_change_1h": 0.12,
      "percent_change_24h": -1.5, "percent_change_7d": 4.2, "volume_24h": 31000000000}}},
    {"symbol": "ETH", "name": "Ethereum", "quote": {"USD": {
      "price": 3000, "market_cap": null, "percent_change_1h": null,
      "percent_change_24h": 2, "percent_change_7d": null, "volume_24h": 12000000000}}},
    {"symbol": "XYZ", "name": "No USD", "quote": {"EUR": {"price": 1}}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "secret", RateRPS: 100})
}

func TestFetch_ParsesListings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, listingsPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "1", r.URL.Query().Get("start"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))
		_, _ = w.Write([]byte(listingsBody))
	})

	quotes, err := c.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	btc := quotes["BTC"]
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.True(t, btc.Price.Equal(decimal.RequireFromString("50000.5")))
	assert.True(t, btc.PercentChange24h.Equal(decimal.RequireFromString("-1.5")))
	assert.True(t, quotes["ETH"].MarketCap.IsZero(), "null fields become zero")
	assert.True(t, quotes.IsValid())
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "http error",
			status: http.StatusUnauthorized,
			body:   `{"status":{"error_code":1001,"error_message":"This API Key is invalid."}}`,
			checkFn: func(t *testing.T, err error) {
				var upstream *domain.UpstreamError
				require.ErrorAs(t, err, &upstream)
				assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
			},
		},
		{
			name:   "status error in body",
			status: http.StatusOK,
			body:   `{"status":{"error_code":1008,"error_message":"rate limit"},"data":[]}`,
			checkFn: func(t *testing.T, err error) {
				var upstream *domain.UpstreamError
				require.ErrorAs(t, err, &upstream)
				assert.Equal(t, "rate limit", upstream.Message)
				assert.Equal(t, http.StatusOK, upstream.StatusCode)
				assert.Equal(t, 1008, upstream.Code)
				assert.EqualError(t, err, "coinmarketcap: upstream returned status 200 (error code 1008): rate limit")
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `<html>`,
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrInvalidQuoteData)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			quotes, err := c.Fetch(context.Background())

			assert.Nil(t, quotes)
			tt.checkFn(t, err)
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "coinmarketcap", NewClient(Config{}).Name())
}
