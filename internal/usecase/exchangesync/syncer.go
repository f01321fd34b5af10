// Package exchangesync imports exchange trades into portfolios. Imported trades go through
// the same intake path as manual entries, so they get the same validation, balance check
// and history rows.
package exchangesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/intake"
)

// DefaultLookback is how far back a connection that never synced is read
const DefaultLookback = 30 * 24 * time.Hour

// Trade outcomes, also used as metric labels
const (
	OutcomeImported     = "imported"
	OutcomeDuplicate    = "duplicate"
	OutcomeUnknownAsset = "unknown_asset"
	OutcomeRejected     = "rejected"
)

// TransactionCreator records a transaction
type TransactionCreator interface {
	Create(ctx context.Context, input intake.CreateTransactionInput) (*domain.Transaction, error)
}

// Report counts trade outcomes of one sync run
type Report struct {
	Connections int
	Failed      int
	Outcomes    map[string]int
}

func newReport() *Report {
	return &Report{Outcomes: make(map[string]int)}
}

// ExchangeSyncer pulls trades for every active exchange connection
type ExchangeSyncer struct {
	ConnectionRepo  domain.ExchangeConnectionRepository
	AssetRepo       domain.AssetRepository
	TransactionRepo domain.TransactionRepository
	Intake          TransactionCreator
	Clients         map[string]domain.ExchangeClientFactory
	Metrics         *metrics.Registry
	Lookback        time.Duration
}

// NewExchangeSyncer creates a new ExchangeSyncer instance
func NewExchangeSyncer(
	connectionRepo domain.ExchangeConnectionRepository,
	assetRepo domain.AssetRepository,
	transactionRepo domain.TransactionRepository,
	creator TransactionCreator,
	clients map[string]domain.ExchangeClientFactory,
	reg *metrics.Registry,
) *ExchangeSyncer {
	return &ExchangeSyncer{
		ConnectionRepo:  connectionRepo,
		AssetRepo:       assetRepo,
		TransactionRepo: transactionRepo,
		Intake:          creator,
		Clients:         clients,
		Metrics:         reg,
		Lookback:        DefaultLookback,
	}
}

// SyncAll syncs every active connection, or only those of userID when it is set.
// A failing connection is logged and skipped; the error returned joins all failures.
func (s *ExchangeSyncer) SyncAll(ctx context.Context, userID *uuid.UUID) (*Report, error) {
	conns, err := s.ConnectionRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange connections: %w", err)
	}

	report := newReport()
	var errs []error
	for _, conn := range conns {
		report.Connections++
		if err := s.SyncConnection(ctx, conn, report); err != nil {
			report.Failed++
			log.Error().
				Str("exchange", conn.ExchangeName).
				Str("user_id", conn.UserID.String()).
				Err(err).
				Msg("failed to sync exchange connection")
			errs = append(errs, fmt.Errorf("connection %s: %w", conn.ID, err))
		}
	}

	return report, errors.Join(errs...)
}

// Run calls SyncAll for every user every interval until ctx is done.
// The first run waits for the first tick.
func (s *ExchangeSyncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		report, err := s.SyncAll(ctx, nil)
		if err != nil {
			log.Error().Err(err).Msg("exchange sync finished with errors")
		}
		if report != nil {
			log.Info().
				Int("connections", report.Connections).
				Int("failed", report.Failed).
				Interface("outcomes", report.Outcomes).
				Msg("exchange sync finished")
		}
	}
}

// SyncConnection imports the trades of one connection executed since its last sync
// Logic:
//   - Trades already imported (same exchange and trade id) are skipped
//   - Trades on assets missing from the asset table are skipped
//   - Trades rejected by intake (e.g. a sell of coins deposited from elsewhere) are skipped
//   - last_synced_at moves to the start of this run only when the fetch succeeded
func (s *ExchangeSyncer) SyncConnection(ctx context.Context, conn *domain.ExchangeConnection, report *Report) error {
	factory, ok := s.Clients[conn.ExchangeName]
	if !ok {
		return fmt.Errorf("unsupported exchange %q", conn.ExchangeName)
	}
	client, err := factory(conn)
	if err != nil {
		return fmt.Errorf("failed to build %s client: %w", conn.ExchangeName, err)
	}

	startedAt := time.Now().UTC()
	since := startedAt.Add(-s.Lookback)
	if conn.LastSyncedAt != nil {
		since = *conn.LastSyncedAt
	}

	trades, err := client.GetTransactions(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to fetch trades: %w", err)
	}

	for _, trade := range trades {
		outcome, err := s.importTrade(ctx, conn, client.Name(), trade)
		if err != nil {
			return err
		}
		report.Outcomes[outcome]++
		s.Metrics.ExchangeTrade(client.Name(), outcome)
	}

	if err := s.ConnectionRepo.MarkSynced(ctx, conn.ID, startedAt); err != nil {
		return fmt.Errorf("failed to mark connection synced: %w", err)
	}

	log.Info().
		Str("exchange", conn.ExchangeName).
		Str("portfolio_id", conn.PortfolioID.String()).
		Int("trades", len(trades)).
		Msg("exchange connection synced")
	return nil
}

// importTrade returns an error only for infrastructure failures that should abort the connection
func (s *ExchangeSyncer) importTrade(ctx context.Context, conn *domain.ExchangeConnection, source string, trade domain.RawTrade) (string, error) {
	exists, err := s.TransactionRepo.ExistsByExchangeID(ctx, conn.PortfolioID, source, trade.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check trade %s: %w", trade.ID, err)
	}
	if exists {
		return OutcomeDuplicate, nil
	}

	kind, err := domain.ParseTransactionType(trade.Side)
	if err != nil {
		log.Warn().Str("trade_id", trade.ID).Str("side", trade.Side).Msg("skipping trade with unknown side")
		return OutcomeRejected, nil
	}

	asset, err := s.AssetRepo.GetBySymbol(ctx, trade.BaseAsset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Str("symbol", trade.BaseAsset).Str("trade_id", trade.ID).Msg("skipping trade on unknown asset")
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("failed to resolve asset %s: %w", trade.BaseAsset, err)
	}

	_, err = s.Intake.Create(ctx, intake.CreateTransactionInput{
		PortfolioID: conn.PortfolioID,
		AssetID:     asset.ID,
		OwnerUserID: conn.UserID,
		Quantity:    trade.Quantity,
		UnitPrice:   trade.Price,
		Type:        kind,
		ExecutedAt:  trade.Timestamp,
		Exchange: &domain.ExchangeProvenance{
			Source:        source,
			TransactionID: trade.ID,
			SyncedAt:      time.Now().UTC(),
		},
	})
	switch {
	case err == nil:
		return OutcomeImported, nil
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrInvalidInput):
		log.Warn().Str("trade_id", trade.ID).Err(err).Msg("exchange trade rejected")
		return OutcomeRejected, nil
	default:
		return "", fmt.Errorf("failed to import trade %s: %w", trade.ID, err)
	}
}
