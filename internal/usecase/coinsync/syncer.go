package coinsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/quotes"
)

// QuoteFetcher serves quotes and reports the tier they came from
type QuoteFetcher interface {
	Fetch(ctx context.Context) (domain.Quotes, quotes.Tier)
}

// CoinSyncer keeps the asset table in line with market data.
// The asset table is the last-resort quote source, so it is only written from
// live or cached API data, never from itself.
type CoinSyncer struct {
	Quotes    QuoteFetcher
	AssetRepo domain.AssetRepository
	Metrics   *metrics.Registry
}

// NewCoinSyncer creates a new CoinSyncer instance
func NewCoinSyncer(q QuoteFetcher, assetRepo domain.AssetRepository, reg *metrics.Registry) *CoinSyncer {
	return &CoinSyncer{
		Quotes:    q,
		AssetRepo: assetRepo,
		Metrics:   reg,
	}
}

// Sync upserts one asset per quote
// If the symbol doesn't exist, the asset is created; otherwise its quote fields are updated.
// Returns the number of assets written.
func (s *CoinSyncer) Sync(ctx context.Context) (int, error) {
	q, tier := s.Quotes.Fetch(ctx)
	if tier == quotes.TierDatabase {
		log.Warn().Msg("market data unavailable, skipping coin sync")
		return 0, nil
	}
	if !q.IsValid() {
		log.Warn().Str("tier", string(tier)).Msg("quote data invalid, skipping coin sync")
		return 0, nil
	}

	now := time.Now().UTC()
	written := 0
	for symbol, quote := range q {
		asset := &domain.Asset{
			Symbol: symbol,
			Name:   quote.Name,
		}
		asset.ApplyQuote(quote, now)

		if err := asset.Validate(); err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("skipping invalid asset")
			continue
		}

		if err := s.AssetRepo.Upsert(ctx, asset); err != nil {
			return written, fmt.Errorf("failed to upsert asset %s: %w", symbol, err)
		}
		s.Metrics.AssetSynced()
		written++
	}

	log.Info().Int("assets", written).Str("tier", string(tier)).Msg("coin data synced")
	return written, nil
}

// Run calls Sync every interval until ctx is done
func (s *CoinSyncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("coin sync failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
