package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	memcache "github.com/simaogato/cryptofolio-backend/internal/adapter/cache/memory"
	rediscache "github.com/simaogato/cryptofolio-backend/internal/adapter/cache/redis"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/exchange/binance"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/marketdata/coinmarketcap"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/cryptofolio-backend/internal/config"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/coinsync"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/exchangesync"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/intake"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/portfolio"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/quotes"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/snapshot"
)

// connectionStore is the exchange connection repository plus the write used by connect-exchange
type connectionStore interface {
	domain.ExchangeConnectionRepository
	Save(ctx context.Context, conn *domain.ExchangeConnection) error
}

// repositories groups one persistence backend
type repositories struct {
	portfolios   domain.PortfolioRepository
	assets       domain.AssetRepository
	transactions domain.TransactionRepository
	histories    domain.PortfolioHistoryRepository
	snapshots    domain.PortfolioSnapshotRepository
	fetchLogs    domain.FetchLogRepository
	connections  connectionStore
	unitOfWork   domain.UnitOfWork
}

// app holds every wired component. Commands use the parts they need.
type app struct {
	cfg     *config.Config
	repos   repositories
	metrics *metrics.Registry

	quoteCache     *quotes.QuoteCache
	portfolios     *portfolio.PortfolioService
	intake         *intake.TransactionIntake
	coinSyncer     *coinsync.CoinSyncer
	recorder       *snapshot.Recorder
	exchangeSyncer *exchangesync.ExchangeSyncer

	checks  map[string]metrics.HealthCheck
	closers []func() error
}

// newApp connects the configured backends and builds the use cases on top of them
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		metrics: metrics.NewRegistry(prometheus.NewRegistry()),
		checks:  make(map[string]metrics.HealthCheck),
	}

	if err := a.openRepositories(ctx); err != nil {
		a.close()
		return nil, err
	}

	slots, err := a.openSlotStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	source := coinmarketcap.NewClient(coinmarketcap.Config{
		BaseURL: cfg.MarketData.BaseURL,
		APIKey:  cfg.MarketData.APIKey,
		Limit:   cfg.MarketData.Limit,
		Convert: cfg.MarketData.Convert,
		Timeout: cfg.MarketData.Timeout,
		RateRPS: cfg.MarketData.RateRPS,

		BreakerFailures: cfg.MarketData.BreakerFailures,
		BreakerCooldown: cfg.MarketData.BreakerCooldown,
	})
	if cfg.MarketData.APIKey == "" {
		log.Warn().Msg("COINMARKETCAP_API_KEY is not set, live quotes will fail and the cache tiers will serve")
	}

	a.quoteCache = quotes.NewQuoteCache(source, slots, a.repos.assets, a.repos.fetchLogs, a.metrics, quotes.Config{
		FreshTTL:  cfg.QuoteCache.FreshTTL,
		BackupTTL: cfg.QuoteCache.BackupTTL,
	})

	aggregator := portfolio.NewAggregator(a.repos.transactions, a.repos.assets)
	a.portfolios = portfolio.NewPortfolioService(a.repos.portfolios, a.repos.histories, a.repos.snapshots, aggregator, a.quoteCache)
	a.intake = intake.NewTransactionIntake(a.repos.unitOfWork, a.repos.portfolios, a.quoteCache, a.metrics)
	a.coinSyncer = coinsync.NewCoinSyncer(a.quoteCache, a.repos.assets, a.metrics)
	a.recorder = snapshot.NewRecorder(a.repos.portfolios, a.repos.snapshots, aggregator, a.quoteCache, a.metrics)

	a.exchangeSyncer = exchangesync.NewExchangeSyncer(
		a.repos.connections,
		a.repos.assets,
		a.repos.transactions,
		a.intake,
		map[string]domain.ExchangeClientFactory{
			binance.ExchangeName: binance.Factory(binance.Config{
				BaseURL: cfg.Exchanges.BinanceBaseURL,
				Timeout: cfg.Exchanges.Timeout,
				RateRPS: cfg.Exchanges.RateRPS,
			}),
		},
		a.metrics,
	)
	if cfg.Exchanges.Lookback > 0 {
		a.exchangeSyncer.Lookback = cfg.Exchanges.Lookback
	}

	return a, nil
}

func (a *app) openRepositories(ctx context.Context) error {
	if a.cfg.Database.Driver == "memory" {
		log.Warn().Msg("using the in-memory store, data is lost on exit")
		store := memory.NewStore()
		a.repos = repositories{
			portfolios:   store.Portfolios(),
			assets:       store.Assets(),
			transactions: store.Transactions(),
			histories:    store.Histories(),
			snapshots:    store.Snapshots(),
			fetchLogs:    store.FetchLogs(),
			connections:  store.ExchangeConnections(),
			unitOfWork:   store.UnitOfWork(),
		}
		return nil
	}

	db, err := postgres.NewDB(ctx, postgres.Config{
		DSN:             a.cfg.Database.ConnectionString(),
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.checks["postgres"] = db.PingContext

	if a.cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	a.repos = repositories{
		portfolios:   postgres.NewPortfolioRepository(db),
		assets:       postgres.NewAssetRepository(db),
		transactions: postgres.NewTransactionRepository(db),
		histories:    postgres.NewHistoryRepository(db),
		snapshots:    postgres.NewSnapshotRepository(db),
		fetchLogs:    postgres.NewFetchLogRepository(db),
		connections:  postgres.NewExchangeConnectionRepository(db),
		unitOfWork:   postgres.NewUnitOfWork(db),
	}
	log.Info().Str("host", a.cfg.Database.Host).Msg("connected to postgres")
	return nil
}

func (a *app) openSlotStore(ctx context.Context) (domain.QuoteSlotStore, error) {
	if !a.cfg.Redis.Enabled {
		return memcache.NewSlotStore(), nil
	}

	store, err := rediscache.Dial(ctx, rediscache.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Prefix:   a.cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	a.checks["redis"] = store.Ping
	log.Info().Str("addr", a.cfg.Redis.Addr).Msg("connected to redis")
	return store, nil
}

// close waits for pending audit writes and releases the backends, newest first
func (a *app) close() error {
	if a.quoteCache != nil {
		a.quoteCache.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
