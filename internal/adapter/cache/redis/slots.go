// Package redis implements domain.QuoteSlotStore on Redis so several server processes
// share one quote cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// DefaultPrefix namespaces the slot keys
const DefaultPrefix = "cryptofolio:quotes:"

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SlotStore stores each slot as one JSON document under its own key. A SET replaces the
// whole document, so readers never observe a partially written map.
type SlotStore struct {
	client *redis.Client
	prefix string
}

// Dial connects to Redis and verifies the connection
func Dial(ctx context.Context, opts Options) (*SlotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewSlotStore(client, opts.Prefix), nil
}

// NewSlotStore wraps an existing client
func NewSlotStore(client *redis.Client, prefix string) *SlotStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SlotStore{client: client, prefix: prefix}
}

func (s *SlotStore) key(slot domain.QuoteSlot) string {
	return s.prefix + string(slot)
}

// Get returns the map stored in slot. A missing key is a miss, not an error.
func (s *SlotStore) Get(ctx context.Context, slot domain.QuoteSlot) (domain.Quotes, bool, error) {
	val, err := s.client.Get(ctx, s.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var quotes domain.Quotes
	if err := json.Unmarshal(val, &quotes); err != nil {
		return nil, false, fmt.Errorf("redis get: corrupt %s slot: %w", slot, err)
	}
	return quotes, true, nil
}

// Put replaces the content of slot with an expiry of ttl
func (s *SlotStore) Put(ctx context.Context, slot domain.QuoteSlot, quotes domain.Quotes, ttl time.Duration) error {
	payload, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := s.client.Set(ctx, s.key(slot), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable
func (s *SlotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (s *SlotStore) Close() error {
	return s.client.Close()
}
