package domain

import (
	"context"
	"time"
)

// MarketDataSource fetches the current quotes of a fixed batch of assets from a remote provider.
// Implementations do not retry; the caller decides what to do on failure.
type MarketDataSource interface {
	Fetch(ctx context.Context) (Quotes, error)

	// Name identifies the provider in audit logs
	Name() string
}

// QuoteSlot names one tier of the quote cache
type QuoteSlot string

const (
	QuoteSlotFresh  QuoteSlot = "fresh"
	QuoteSlotBackup QuoteSlot = "backup"
)

// QuoteSlotStore holds whole quote maps under a slot with an expiry.
// Put publishes the complete map at once; Get never returns a partially written map.
type QuoteSlotStore interface {
	// Get returns the map stored in slot, or false when the slot is empty or expired
	Get(ctx context.Context, slot QuoteSlot) (Quotes, bool, error)

	// Put replaces the content of slot
	Put(ctx context.Context, slot QuoteSlot, quotes Quotes, ttl time.Duration) error
}

// QuoteProvider serves the current quote map. It never fails: implementations degrade to
// cached or persisted data instead.
type QuoteProvider interface {
	GetQuotes(ctx context.Context) Quotes
}
