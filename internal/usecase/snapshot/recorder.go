package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/portfolio"
)

// Recorder writes periodic total-value snapshots of every portfolio
type Recorder struct {
	PortfolioRepo domain.PortfolioRepository
	SnapshotRepo  domain.PortfolioSnapshotRepository
	Aggregator    *portfolio.Aggregator
	Quotes        domain.QuoteProvider
	Metrics       *metrics.Registry
}

// NewRecorder creates a new Recorder instance
func NewRecorder(
	portfolioRepo domain.PortfolioRepository,
	snapshotRepo domain.PortfolioSnapshotRepository,
	aggregator *portfolio.Aggregator,
	quotes domain.QuoteProvider,
	reg *metrics.Registry,
) *Recorder {
	return &Recorder{
		PortfolioRepo: portfolioRepo,
		SnapshotRepo:  snapshotRepo,
		Aggregator:    aggregator,
		Quotes:        quotes,
		Metrics:       reg,
	}
}

// RecordAll values every portfolio against one quote map and stores a snapshot per portfolio.
// A failing portfolio does not stop the others; the failures are returned joined.
func (r *Recorder) RecordAll(ctx context.Context) (int, error) {
	portfolios, err := r.PortfolioRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list portfolios: %w", err)
	}

	quotes := r.Quotes.GetQuotes(ctx)
	recordedAt := time.Now().UTC()

	var errs []error
	recorded := 0
	for _, p := range portfolios {
		summary, err := r.Aggregator.GetPortfolioDetails(ctx, p, quotes)
		if err != nil {
			errs = append(errs, fmt.Errorf("portfolio %s: %w", p.ID, err))
			continue
		}

		snap := &domain.PortfolioSnapshot{
			ID:          uuid.New(),
			PortfolioID: p.ID,
			TotalValue:  summary.TotalValue,
			RecordedAt:  recordedAt,
		}
		if err := r.SnapshotRepo.Create(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("portfolio %s: failed to store snapshot: %w", p.ID, err))
			continue
		}
		r.Metrics.SnapshotRecorded()
		recorded++
	}

	log.Info().Int("recorded", recorded).Int("failed", len(errs)).Msg("portfolio snapshots recorded")
	return recorded, errors.Join(errs...)
}

// Run calls RecordAll every interval until ctx is done. The first run waits one interval,
// so restarts do not add off-schedule snapshots.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RecordAll(ctx); err != nil {
				log.Error().Err(err).Msg("snapshot run finished with errors")
			}
		}
	}
}
