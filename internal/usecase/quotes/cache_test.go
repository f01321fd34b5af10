package quotes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMarketDataSource is a mock implementation of MarketDataSource for testing
type MockMarketDataSource struct {
	mock.Mock
}

func (m *MockMarketDataSource) Fetch(ctx context.Context) (domain.Quotes, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Quotes), args.Error(1)
}

func (m *MockMarketDataSource) Name() string { return "coinmarketcap" }

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	panic("not used")
}

func (m *MockAssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	panic("not used")
}

func (m *MockAssetRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Asset, error) {
	panic("not used")
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Upsert(ctx context.Context, asset *domain.Asset) error {
	panic("not used")
}

// fakeSlots is a map-backed QuoteSlotStore that ignores expiry
type fakeSlots struct {
	mu    sync.Mutex
	slots map[domain.QuoteSlot]domain.Quotes
	ttls  map[domain.QuoteSlot]time.Duration
	err   error
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{
		slots: map[domain.QuoteSlot]domain.Quotes{},
		ttls:  map[domain.QuoteSlot]time.Duration{},
	}
}

func (f *fakeSlots) Get(_ context.Context, slot domain.QuoteSlot) (domain.Quotes, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	q, ok := f.slots[slot]
	return q, ok, nil
}

func (f *fakeSlots) Put(_ context.Context, slot domain.QuoteSlot, quotes domain.Quotes, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot] = quotes
	f.ttls[slot] = ttl
	return nil
}

// recordingLogs captures fetch-log entries
type recordingLogs struct {
	mu      sync.Mutex
	entries []*domain.FetchLog
	err     error
}

func (r *recordingLogs) Create(_ context.Context, entry *domain.FetchLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func quotesOf(prices map[string]string) domain.Quotes {
	out := domain.Quotes{}
	for symbol, price := range prices {
		out[symbol] = domain.Quote{Symbol: symbol, Name: symbol, Price: decimal.RequireFromString(price)}
	}
	return out
}

func newCache(source *MockMarketDataSource, slots *fakeSlots, assets *MockAssetRepository, logs *recordingLogs) *QuoteCache {
	return NewQuoteCache(source, slots, assets, logs, metrics.NewRegistry(nil), DefaultConfig())
}

func TestFetch_LiveSuccessPopulatesBothSlots(t *testing.T) {
	ctx := context.Background()
	source := new(MockMarketDataSource)
	slots := newFakeSlots()
	assets := new(MockAssetRepository)
	logs := &recordingLogs{}
	cache := newCache(source, slots, assets, logs)

	live := quotesOf(map[string]string{"BTC": "50000", "ETH": "2500"})
	source.On("Fetch", ctx).Return(live, nil)

	got, tier := cache.Fetch(ctx)
	cache.Wait()

	assert.Equal(t, TierLive, tier)
	assert.Equal(t, live, got)
	assert.Equal(t, live, slots.slots[domain.QuoteSlotFresh])
	assert.Equal(t, live, slots.slots[domain.QuoteSlotBackup])
	assert.Equal(t, 15*time.Second, slots.ttls[domain.QuoteSlotFresh])
	assert.Equal(t, 5*time.Minute, slots.ttls[domain.QuoteSlotBackup])

	require.Len(t, logs.entries, 1)
	assert.Equal(t, domain.FetchLogTypeAPI, logs.entries[0].Type)
	assert.True(t, logs.entries[0].Success)
	assets.AssertNotCalled(t, "List", mock.Anything)
}

func TestFetch_Waterfall(t *testing.T) {
	good := quotesOf(map[string]string{"BTC": "100"})
	older := quotesOf(map[string]string{"BTC": "90"})
	zero := quotesOf(map[string]string{"BTC": "0", "ETH": "0"})

	tests := []struct {
		name      string
		liveErr   error
		live      domain.Quotes
		fresh     domain.Quotes
		backup    domain.Quotes
		wantTier  Tier
		wantPrice string
	}{
		{
			name:      "fresh slot wins over backup",
			liveErr:   &domain.NetworkError{Source: "coinmarketcap", Err: context.DeadlineExceeded},
			fresh:     good,
			backup:    older,
			wantTier:  TierFreshCache,
			wantPrice: "100",
		},
		{
			name:      "empty fresh slot falls to backup",
			liveErr:   &domain.UpstreamError{Source: "coinmarketcap", StatusCode: 429},
			backup:    good,
			wantTier:  TierBackupCache,
			wantPrice: "100",
		},
		{
			name:      "all-zero fresh slot is skipped",
			liveErr:   errors.New("boom"),
			fresh:     zero,
			backup:    older,
			wantTier:  TierBackupCache,
			wantPrice: "90",
		},
		{
			name:      "all-zero live payload is treated as failure",
			live:      zero,
			fresh:     good,
			wantTier:  TierFreshCache,
			wantPrice: "100",
		},
		{
			name:      "empty live payload is treated as failure",
			live:      domain.Quotes{},
			backup:    older,
			wantTier:  TierBackupCache,
			wantPrice: "90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			source := new(MockMarketDataSource)
			slots := newFakeSlots()
			if tt.fresh != nil {
				slots.slots[domain.QuoteSlotFresh] = tt.fresh
			}
			if tt.backup != nil {
				slots.slots[domain.QuoteSlotBackup] = tt.backup
			}
			assets := new(MockAssetRepository)
			logs := &recordingLogs{}
			cache := newCache(source, slots, assets, logs)

			if tt.liveErr != nil {
				source.On("Fetch", ctx).Return(nil, tt.liveErr)
			} else {
				source.On("Fetch", ctx).Return(tt.live, nil)
			}

			got, tier := cache.Fetch(ctx)
			cache.Wait()

			assert.Equal(t, tt.wantTier, tier)
			assert.True(t, got["BTC"].Price.Equal(decimal.RequireFromString(tt.wantPrice)))
			require.Len(t, logs.entries, 1)
			assert.False(t, logs.entries[0].Success)
			assert.NotEmpty(t, logs.entries[0].ErrorMessage)
			assets.AssertNotCalled(t, "List", mock.Anything)
			if tt.live != nil {
				// an invalid live payload never overwrites the cached slots
				assert.NotEqual(t, tt.live, slots.slots[domain.QuoteSlotFresh])
			}
		})
	}
}

func TestFetch_BackupSlotWhenLiveFails(t *testing.T) {
	// empty fresh slot, backup {BTC: 100}, failing live fetch
	ctx := context.Background()
	source := new(MockMarketDataSource)
	slots := newFakeSlots()
	slots.slots[domain.QuoteSlotBackup] = quotesOf(map[string]string{"BTC": "100"})
	cache := newCache(source, slots, new(MockAssetRepository), &recordingLogs{})

	source.On("Fetch", ctx).Return(nil, &domain.NetworkError{Source: "coinmarketcap", Err: errors.New("dial tcp: i/o timeout")})

	got := cache.GetQuotes(ctx)
	cache.Wait()

	require.Len(t, got, 1)
	assert.True(t, got["BTC"].Price.Equal(decimal.NewFromInt(100)))
}

func TestFetch_DatabaseFallback(t *testing.T) {
	ctx := context.Background()
	source := new(MockMarketDataSource)
	slots := newFakeSlots()
	slots.slots[domain.QuoteSlotBackup] = quotesOf(map[string]string{"BTC": "0"})
	assets := new(MockAssetRepository)
	logs := &recordingLogs{}
	cache := newCache(source, slots, assets, logs)

	source.On("Fetch", ctx).Return(nil, errors.New("connection refused"))
	assets.On("List", ctx).Return([]*domain.Asset{
		{ID: uuid.New(), Symbol: "BTC", Name: "Bitcoin", Price: decimal.NewFromInt(48000)},
		{ID: uuid.New(), Symbol: "ETH", Name: "Ethereum", Price: decimal.NewFromInt(2400)},
	}, nil)

	got, tier := cache.Fetch(ctx)
	cache.Wait()

	assert.Equal(t, TierDatabase, tier)
	assert.Len(t, got, 2)
	assert.Equal(t, "Bitcoin", got["BTC"].Name)
	assert.True(t, got["ETH"].Price.Equal(decimal.NewFromInt(2400)))

	require.Len(t, logs.entries, 1)
	assert.Equal(t, domain.FetchLogTypeDatabase, logs.entries[0].Type)
	assert.False(t, logs.entries[0].Success)
	assert.Equal(t, "connection refused", logs.entries[0].ErrorMessage)
}

func TestFetch_NeverFails(t *testing.T) {
	ctx := context.Background()
	source := new(MockMarketDataSource)
	slots := newFakeSlots()
	slots.err = errors.New("redis: connection pool timeout")
	assets := new(MockAssetRepository)
	logs := &recordingLogs{err: errors.New("disk full")}
	cache := newCache(source, slots, assets, logs)

	source.On("Fetch", ctx).Return(nil, errors.New("no route to host"))
	assets.On("List", ctx).Return(nil, errors.New("database is down"))

	var got domain.Quotes
	assert.NotPanics(t, func() { got = cache.GetQuotes(ctx) })
	cache.Wait()

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRunRefresher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := new(MockMarketDataSource)
	slots := newFakeSlots()
	cache := newCache(source, slots, new(MockAssetRepository), &recordingLogs{})

	source.On("Fetch", mock.Anything).Return(quotesOf(map[string]string{"BTC": "1"}), nil).Run(func(mock.Arguments) {
		cancel()
	})

	done := make(chan struct{})
	go func() {
		cache.RunRefresher(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
	cache.Wait()

	assert.NotNil(t, slots.slots[domain.QuoteSlotFresh])
}
