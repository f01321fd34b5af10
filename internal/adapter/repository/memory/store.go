// Package memory implements the repository ports in process memory. It backs local runs
// without a database and the concurrency tests of the intake path.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// Store holds every entity. Entities are copied on the way in and out so callers
// never share memory with the store.
type Store struct {
	mu          sync.RWMutex
	portfolios  map[uuid.UUID]domain.Portfolio
	assets      map[uuid.UUID]domain.Asset
	txs         []domain.Transaction
	histories   []domain.PortfolioHistory
	snapshots   []domain.PortfolioSnapshot
	fetchLogs   []domain.FetchLog
	connections map[uuid.UUID]domain.ExchangeConnection

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		portfolios:  make(map[uuid.UUID]domain.Portfolio),
		assets:      make(map[uuid.UUID]domain.Asset),
		connections: make(map[uuid.UUID]domain.ExchangeConnection),
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// Portfolios returns the portfolio repository
func (s *Store) Portfolios() domain.PortfolioRepository { return &portfolioRepository{s: s} }

// Assets returns the asset repository
func (s *Store) Assets() domain.AssetRepository { return &assetRepository{s: s} }

// Transactions returns the transaction repository
func (s *Store) Transactions() domain.TransactionRepository { return &transactionRepository{s: s} }

// Histories returns the portfolio history repository
func (s *Store) Histories() domain.PortfolioHistoryRepository { return &historyRepository{s: s} }

// Snapshots returns the snapshot repository
func (s *Store) Snapshots() domain.PortfolioSnapshotRepository { return &snapshotRepository{s: s} }

// FetchLogs returns the fetch-log sink
func (s *Store) FetchLogs() *FetchLogRepository { return &FetchLogRepository{s: s} }

// ExchangeConnections returns the exchange connection repository
func (s *Store) ExchangeConnections() *ExchangeConnectionRepository {
	return &ExchangeConnectionRepository{s: s}
}

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	s *Store
}

func (r *portfolioRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.portfolios[id]
	if !ok {
		return nil, domain.NotFoundError("portfolio", id)
	}
	return &p, nil
}

func (r *portfolioRepository) Create(_ context.Context, p *domain.Portfolio) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.portfolios[p.ID] = *p
	return nil
}

func (r *portfolioRepository) List(_ context.Context) ([]*domain.Portfolio, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Portfolio, 0, len(r.s.portfolios))
	for _, p := range r.s.portfolios {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	s *Store
}

func (r *assetRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, domain.NotFoundError("asset", id)
	}
	return &a, nil
}

func (r *assetRepository) GetBySymbol(_ context.Context, symbol string) (*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assets {
		if a.Symbol == symbol {
			return &a, nil
		}
	}
	return nil, domain.NotFoundError("asset", symbol)
}

func (r *assetRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Asset, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.s.assets[id]; ok {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *assetRepository) List(_ context.Context) ([]*domain.Asset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Asset, 0, len(r.s.assets))
	for _, a := range r.s.assets {
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r *assetRepository) Upsert(_ context.Context, asset *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.assets {
		if existing.Symbol == asset.Symbol {
			asset.ID = id
			break
		}
	}
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	r.s.assets[asset.ID] = *asset
	return nil
}

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	s *Store
}

func (r *transactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txs = append(r.s.txs, copyTransaction(tx))
	return nil
}

func (r *transactionRepository) ListByPortfolio(_ context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return filterTransactions(r.s.txs, nil, portfolioID, nil), nil
}

func (r *transactionRepository) ListByPortfolioAndAsset(_ context.Context, portfolioID, assetID uuid.UUID) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return filterTransactions(r.s.txs, nil, portfolioID, &assetID), nil
}

func (r *transactionRepository) ExistsByExchangeID(_ context.Context, portfolioID uuid.UUID, source, exchangeTxID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return hasExchangeID(r.s.txs, portfolioID, source, exchangeTxID), nil
}

// historyRepository implements domain.PortfolioHistoryRepository
type historyRepository struct {
	s *Store
}

func (r *historyRepository) Create(_ context.Context, h *domain.PortfolioHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.histories = append(r.s.histories, *h)
	return nil
}

func (r *historyRepository) Update(_ context.Context, h *domain.PortfolioHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.histories {
		if r.s.histories[i].ID == h.ID {
			r.s.histories[i] = *h
			return nil
		}
	}
	return domain.NotFoundError("portfolio history", h.ID)
}

func (r *historyRepository) ListByPortfolio(_ context.Context, portfolioID uuid.UUID) ([]*domain.PortfolioHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.PortfolioHistory, 0)
	for i := len(r.s.histories) - 1; i >= 0; i-- {
		if r.s.histories[i].PortfolioID == portfolioID {
			h := r.s.histories[i]
			out = append(out, &h)
		}
	}
	return out, nil
}

// snapshotRepository implements domain.PortfolioSnapshotRepository
type snapshotRepository struct {
	s *Store
}

func (r *snapshotRepository) Create(_ context.Context, snap *domain.PortfolioSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.snapshots = append(r.s.snapshots, *snap)
	return nil
}

func (r *snapshotRepository) ListByPortfolio(_ context.Context, portfolioID uuid.UUID, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.PortfolioSnapshot, 0)
	for _, snap := range r.s.snapshots {
		if snap.PortfolioID == portfolioID && !snap.RecordedAt.Before(since) {
			out = append(out, &snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// FetchLogRepository implements domain.FetchLogRepository
type FetchLogRepository struct {
	s *Store
}

func (r *FetchLogRepository) Create(_ context.Context, entry *domain.FetchLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.fetchLogs = append(r.s.fetchLogs, *entry)
	return nil
}

// All returns every recorded entry, oldest first
func (r *FetchLogRepository) All() []domain.FetchLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.FetchLog(nil), r.s.fetchLogs...)
}

// ExchangeConnectionRepository implements domain.ExchangeConnectionRepository
type ExchangeConnectionRepository struct {
	s *Store
}

// Save inserts or replaces a connection
func (r *ExchangeConnectionRepository) Save(_ context.Context, conn *domain.ExchangeConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.connections[conn.ID] = *conn
	return nil
}

func (r *ExchangeConnectionRepository) ListActive(_ context.Context, userID *uuid.UUID) ([]*domain.ExchangeConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.ExchangeConnection, 0)
	for _, c := range r.s.connections {
		if !c.IsActive || (userID != nil && c.UserID != *userID) {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *ExchangeConnectionRepository) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.connections[id]
	if !ok {
		return domain.NotFoundError("exchange connection", id)
	}
	c.LastSyncedAt = &at
	r.s.connections[id] = c
	return nil
}

func copyTransaction(tx *domain.Transaction) domain.Transaction {
	cp := *tx
	if tx.Exchange != nil {
		ex := *tx.Exchange
		cp.Exchange = &ex
	}
	return cp
}

// filterTransactions returns copies of the matching entries of committed followed by pending
func filterTransactions(committed, pending []domain.Transaction, portfolioID uuid.UUID, assetID *uuid.UUID) []*domain.Transaction {
	out := make([]*domain.Transaction, 0)
	for _, list := range [][]domain.Transaction{committed, pending} {
		for i := range list {
			tx := list[i]
			if tx.PortfolioID != portfolioID || (assetID != nil && tx.AssetID != *assetID) {
				continue
			}
			cp := copyTransaction(&tx)
			out = append(out, &cp)
		}
	}
	return out
}

func hasExchangeID(txs []domain.Transaction, portfolioID uuid.UUID, source, exchangeTxID string) bool {
	for _, tx := range txs {
		if tx.PortfolioID == portfolioID && tx.Exchange != nil &&
			tx.Exchange.Source == source && tx.Exchange.TransactionID == exchangeTxID {
			return true
		}
	}
	return false
}
