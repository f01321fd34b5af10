// Package memory implements domain.QuoteSlotStore in process memory.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

type entry struct {
	quotes    domain.Quotes
	expiresAt time.Time
}

// SlotStore keeps one immutable entry per slot. Put swaps the pointer, so readers see
// either the previous map or the new one, never a mix.
type SlotStore struct {
	fresh  atomic.Pointer[entry]
	backup atomic.Pointer[entry]
	now    func() time.Time
}

// NewSlotStore creates an empty store
func NewSlotStore() *SlotStore {
	return &SlotStore{now: time.Now}
}

func (s *SlotStore) slot(slot domain.QuoteSlot) *atomic.Pointer[entry] {
	if slot == domain.QuoteSlotBackup {
		return &s.backup
	}
	return &s.fresh
}

// Get returns the map stored in slot unless it has expired
func (s *SlotStore) Get(_ context.Context, slot domain.QuoteSlot) (domain.Quotes, bool, error) {
	e := s.slot(slot).Load()
	if e == nil || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.quotes, true, nil
}

// Put replaces the content of slot. The map is copied so later writes by the caller
// cannot leak into readers.
func (s *SlotStore) Put(_ context.Context, slot domain.QuoteSlot, quotes domain.Quotes, ttl time.Duration) error {
	s.slot(slot).Store(&entry{quotes: quotes.Clone(), expiresAt: s.now().Add(ttl)})
	return nil
}
