// Package quotes serves the current market quotes through a tiered waterfall:
// live fetch, fresh cache slot, backup cache slot, then the persisted asset table.
package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
)

// Tier names the waterfall step that served a call
type Tier string

const (
	TierLive        Tier = "live"
	TierFreshCache  Tier = "fresh_cache"
	TierBackupCache Tier = "backup_cache"
	TierDatabase    Tier = "database"
)

// Config holds the cache policy
type Config struct {
	FreshTTL     time.Duration
	BackupTTL    time.Duration
	AuditTimeout time.Duration
}

// DefaultConfig returns the production cache policy
func DefaultConfig() Config {
	return Config{
		FreshTTL:     15 * time.Second,
		BackupTTL:    5 * time.Minute,
		AuditTimeout: 5 * time.Second,
	}
}

// QuoteCache implements domain.QuoteProvider
type QuoteCache struct {
	Source    domain.MarketDataSource
	Slots     domain.QuoteSlotStore
	AssetRepo domain.AssetRepository
	FetchLogs domain.FetchLogRepository
	Metrics   *metrics.Registry

	cfg    Config
	audits sync.WaitGroup
}

// NewQuoteCache creates a new QuoteCache instance
func NewQuoteCache(
	source domain.MarketDataSource,
	slots domain.QuoteSlotStore,
	assetRepo domain.AssetRepository,
	fetchLogs domain.FetchLogRepository,
	reg *metrics.Registry,
	cfg Config,
) *QuoteCache {
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = DefaultConfig().AuditTimeout
	}
	return &QuoteCache{
		Source:    source,
		Slots:     slots,
		AssetRepo: assetRepo,
		FetchLogs: fetchLogs,
		Metrics:   reg,
		cfg:       cfg,
	}
}

// GetQuotes returns the best quote map available. It never fails.
func (c *QuoteCache) GetQuotes(ctx context.Context) domain.Quotes {
	quotes, _ := c.Fetch(ctx)
	return quotes
}

// Fetch runs the waterfall and also reports the tier that served the result.
// Logic:
//   - Live fetch; a valid map is written to both slots and returned
//   - Else fresh slot, then backup slot; first valid map wins
//   - Else rebuild the map from persisted asset rows
//
// Every call appends one fetch-log entry. The returned map is shared and must not be mutated.
func (c *QuoteCache) Fetch(ctx context.Context) (domain.Quotes, Tier) {
	quotes, fetchErr := c.fetchLive(ctx)
	if fetchErr == nil {
		c.storeSlots(ctx, quotes)
		c.audit(ctx, domain.FetchLogTypeAPI, c.Source.Name(), true, "")
		c.Metrics.QuoteServed(string(TierLive))
		return quotes, TierLive
	}

	log.Warn().Str("source", c.Source.Name()).Err(fetchErr).Msg("live quote fetch failed, falling back to cache")

	for _, slot := range []struct {
		name domain.QuoteSlot
		tier Tier
	}{
		{domain.QuoteSlotFresh, TierFreshCache},
		{domain.QuoteSlotBackup, TierBackupCache},
	} {
		cached, ok, err := c.Slots.Get(ctx, slot.name)
		if err != nil {
			log.Warn().Str("slot", string(slot.name)).Err(err).Msg("failed to read quote slot")
			continue
		}
		if ok && cached.IsValid() {
			c.audit(ctx, domain.FetchLogTypeAPI, c.Source.Name(), false, fetchErr.Error())
			c.Metrics.QuoteServed(string(slot.tier))
			log.Info().Str("tier", string(slot.tier)).Msg("serving cached quotes")
			return cached, slot.tier
		}
	}

	quotes = c.fromDatabase(ctx)
	c.audit(ctx, domain.FetchLogTypeDatabase, "database", false, fetchErr.Error())
	c.Metrics.QuoteServed(string(TierDatabase))
	log.Info().Int("assets", len(quotes)).Msg("serving quotes from database fallback")
	return quotes, TierDatabase
}

// Wait blocks until pending audit writes have finished
func (c *QuoteCache) Wait() {
	c.audits.Wait()
}

func (c *QuoteCache) fetchLive(ctx context.Context) (domain.Quotes, error) {
	start := time.Now()
	quotes, err := c.Source.Fetch(ctx)
	if err == nil && !quotes.IsValid() {
		err = domain.ErrInvalidQuoteData
	}
	c.Metrics.MarketFetch(c.Source.Name(), err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *QuoteCache) storeSlots(ctx context.Context, quotes domain.Quotes) {
	if err := c.Slots.Put(ctx, domain.QuoteSlotFresh, quotes, c.cfg.FreshTTL); err != nil {
		log.Warn().Str("slot", string(domain.QuoteSlotFresh)).Err(err).Msg("failed to store quote slot")
	}
	if err := c.Slots.Put(ctx, domain.QuoteSlotBackup, quotes, c.cfg.BackupTTL); err != nil {
		log.Warn().Str("slot", string(domain.QuoteSlotBackup)).Err(err).Msg("failed to store quote slot")
	}
}

func (c *QuoteCache) fromDatabase(ctx context.Context) domain.Quotes {
	assets, err := c.AssetRepo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load assets for quote fallback")
		return domain.Quotes{}
	}
	return domain.QuotesFromAssets(assets)
}

// audit writes a fetch-log entry in the background. Failures are logged and dropped.
func (c *QuoteCache) audit(ctx context.Context, kind domain.FetchLogType, source string, success bool, message string) {
	if c.FetchLogs == nil {
		return
	}
	entry := &domain.FetchLog{
		ID:           uuid.New(),
		Type:         kind,
		Source:       source,
		Success:      success,
		ErrorMessage: message,
		CreatedAt:    time.Now().UTC(),
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.AuditTimeout)
	c.audits.Add(1)
	go func() {
		defer c.audits.Done()
		defer cancel()
		if err := c.FetchLogs.Create(auditCtx, entry); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Str("type", string(kind)).Err(err).Msg("failed to write fetch log")
		}
	}()
}
