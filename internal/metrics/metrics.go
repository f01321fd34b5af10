// Package metrics holds the Prometheus collectors of the service and the ops HTTP server.
// Every recording method is safe on a nil *Registry so callers can run without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups the service's collectors
type Registry struct {
	QuotesServed      *prometheus.CounterVec
	MarketFetches     *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	Transactions      *prometheus.CounterVec
	SnapshotsRecorded prometheus.Counter
	ExchangeTrades    *prometheus.CounterVec
	AssetsSynced      prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewRegistry creates the collectors and registers them with reg.
// A nil reg registers into a fresh private registry, which tests use to avoid global state.
func NewRegistry(reg *prometheus.Registry) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Registry{
		QuotesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptofolio_quotes_served_total",
				Help: "Quote maps served by the quote cache, by tier",
			},
			[]string{"tier"},
		),
		MarketFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptofolio_market_fetches_total",
				Help: "Live market-data fetch attempts by provider and result",
			},
			[]string{"source", "result"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptofolio_market_fetch_duration_seconds",
				Help:    "Duration of live market-data fetches",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"source"},
		),
		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptofolio_transactions_total",
				Help: "Transaction intake outcomes by kind",
			},
			[]string{"type", "result"},
		),
		SnapshotsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cryptofolio_snapshots_recorded_total",
				Help: "Portfolio snapshots written",
			},
		),
		ExchangeTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptofolio_exchange_trades_total",
				Help: "Exchange trades seen by the importer, by exchange and outcome",
			},
			[]string{"exchange", "outcome"},
		),
		AssetsSynced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cryptofolio_assets_synced_total",
				Help: "Asset rows upserted from market data",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		r.QuotesServed,
		r.MarketFetches,
		r.FetchDuration,
		r.Transactions,
		r.SnapshotsRecorded,
		r.ExchangeTrades,
		r.AssetsSynced,
	)

	return r
}

// Gatherer returns the registry the collectors were registered with
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// QuoteServed counts one GetQuotes call answered from tier
func (r *Registry) QuoteServed(tier string) {
	if r == nil {
		return
	}
	r.QuotesServed.WithLabelValues(tier).Inc()
}

// MarketFetch records the result and duration of one live fetch
func (r *Registry) MarketFetch(source string, ok bool, seconds float64) {
	if r == nil {
		return
	}
	r.MarketFetches.WithLabelValues(source, result(ok)).Inc()
	r.FetchDuration.WithLabelValues(source).Observe(seconds)
}

// TransactionRecorded counts one intake attempt
func (r *Registry) TransactionRecorded(kind string, ok bool) {
	if r == nil {
		return
	}
	r.Transactions.WithLabelValues(kind, result(ok)).Inc()
}

// SnapshotRecorded counts one written snapshot
func (r *Registry) SnapshotRecorded() {
	if r == nil {
		return
	}
	r.SnapshotsRecorded.Inc()
}

// ExchangeTrade counts one trade handled by the exchange importer
func (r *Registry) ExchangeTrade(exchange, outcome string) {
	if r == nil {
		return
	}
	r.ExchangeTrades.WithLabelValues(exchange, outcome).Inc()
}

// AssetSynced counts one upserted asset row
func (r *Registry) AssetSynced() {
	if r == nil {
		return
	}
	r.AssetsSynced.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
