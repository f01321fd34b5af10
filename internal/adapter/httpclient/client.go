// Package httpclient is the outbound HTTP plumbing shared by the market-data and exchange
// adapters: a bounded timeout, a client-side rate limit and a circuit breaker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 16 << 20

// Config configures one upstream
type Config struct {
	Name            string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerCooldown time.Duration // time the breaker stays open
}

// Client performs requests against one upstream
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a client for cfg. Zero values fall back to conservative defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	failures := cfg.BreakerFailures
	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("upstream", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &Client{
		name:    cfg.Name,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the upstream name used in errors
func (c *Client) Name() string {
	return c.name
}

// Do sends req and returns the body of a 2xx response.
// Transport failures, timeouts and an open breaker are *domain.NetworkError;
// non-2xx responses are *domain.UpstreamError.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.NetworkError{Source: c.name, Err: err}
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.NetworkError{Source: c.name, Err: err}
		}
		return nil, err
	}
	return body.([]byte), nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &domain.NetworkError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.NetworkError{Source: c.name, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Source: c.name, StatusCode: resp.StatusCode, Message: snippet(body)}
	}
	return body, nil
}

func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
