package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork over a Store.
// A per-portfolio mutex serializes units of work on the same portfolio. Transaction and
// history writes are staged and only become visible to other readers when fn succeeds.
type UnitOfWork struct {
	s *Store
}

// UnitOfWork returns the unit of work bound to the store
func (s *Store) UnitOfWork() *UnitOfWork {
	return &UnitOfWork{s: s}
}

func (s *Store) portfolioLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// WithinPortfolio runs fn while holding the portfolio lock
func (u *UnitOfWork) WithinPortfolio(ctx context.Context, portfolioID uuid.UUID, fn func(ctx context.Context, repos domain.TxRepositories) error) error {
	lock := u.s.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	stage := &stagedWrites{s: u.s}
	repos := domain.TxRepositories{
		Portfolios:   u.s.Portfolios(),
		Assets:       u.s.Assets(),
		Transactions: &stagedTransactionRepository{stage: stage},
		Histories:    &stagedHistoryRepository{stage: stage},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	stage.commit()
	return nil
}

// stagedWrites holds the pending writes of one unit of work
type stagedWrites struct {
	s         *Store
	txs       []domain.Transaction
	histories []domain.PortfolioHistory
}

func (w *stagedWrites) commit() {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.txs = append(w.s.txs, w.txs...)
	w.s.histories = append(w.s.histories, w.histories...)
}

// stagedTransactionRepository reads committed rows plus the unit of work's own pending rows
type stagedTransactionRepository struct {
	stage *stagedWrites
}

func (r *stagedTransactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.stage.txs = append(r.stage.txs, copyTransaction(tx))
	return nil
}

func (r *stagedTransactionRepository) ListByPortfolio(_ context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	r.stage.s.mu.RLock()
	defer r.stage.s.mu.RUnlock()
	return filterTransactions(r.stage.s.txs, r.stage.txs, portfolioID, nil), nil
}

func (r *stagedTransactionRepository) ListByPortfolioAndAsset(_ context.Context, portfolioID, assetID uuid.UUID) ([]*domain.Transaction, error) {
	r.stage.s.mu.RLock()
	defer r.stage.s.mu.RUnlock()
	return filterTransactions(r.stage.s.txs, r.stage.txs, portfolioID, &assetID), nil
}

func (r *stagedTransactionRepository) ExistsByExchangeID(_ context.Context, portfolioID uuid.UUID, source, exchangeTxID string) (bool, error) {
	r.stage.s.mu.RLock()
	defer r.stage.s.mu.RUnlock()
	return hasExchangeID(r.stage.s.txs, portfolioID, source, exchangeTxID) ||
		hasExchangeID(r.stage.txs, portfolioID, source, exchangeTxID), nil
}

// stagedHistoryRepository only edits rows created in the same unit of work
type stagedHistoryRepository struct {
	stage *stagedWrites
}

func (r *stagedHistoryRepository) Create(_ context.Context, h *domain.PortfolioHistory) error {
	r.stage.histories = append(r.stage.histories, *h)
	return nil
}

func (r *stagedHistoryRepository) Update(_ context.Context, h *domain.PortfolioHistory) error {
	for i := range r.stage.histories {
		if r.stage.histories[i].ID == h.ID {
			r.stage.histories[i] = *h
			return nil
		}
	}
	return domain.NotFoundError("portfolio history", h.ID)
}

func (r *stagedHistoryRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.PortfolioHistory, error) {
	committed, err := r.stage.s.Histories().ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.PortfolioHistory, 0, len(committed)+len(r.stage.histories))
	for i := len(r.stage.histories) - 1; i >= 0; i-- {
		if r.stage.histories[i].PortfolioID == portfolioID {
			h := r.stage.histories[i]
			out = append(out, &h)
		}
	}
	return append(out, committed...), nil
}
