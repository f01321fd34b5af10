package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{Name: "test", RatePerSecond: 100, Burst: 10})

	body, err := c.Do(context.Background(), newRequest(t, srv.URL))

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestDo_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	c := New(Config{Name: "test", RatePerSecond: 100, Burst: 10})

	_, err := c.Do(context.Background(), newRequest(t, srv.URL))

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, "rate limited", upstream.Message)
}

func TestDo_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Name: "test", Timeout: 50 * time.Millisecond, RatePerSecond: 100, Burst: 10})

	_, err := c.Do(context.Background(), newRequest(t, srv.URL))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "test", netErr.Source)
}

func TestDo_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{Name: "test", RatePerSecond: 100, Burst: 10, BreakerFailures: 2, BreakerCooldown: time.Hour})

	for i := 0; i < 2; i++ {
		_, err := c.Do(context.Background(), newRequest(t, srv.URL))
		require.Error(t, err)
	}

	_, err := c.Do(context.Background(), newRequest(t, srv.URL))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDo_CanceledWhileWaitingForLimiter(t *testing.T) {
	c := New(Config{Name: "test", RatePerSecond: 0.001, Burst: 1})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	_, err := c.Do(context.Background(), newRequest(t, srv.URL)) // consumes the only token
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, newRequest(t, srv.URL))

	var netErr *domain.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
