package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	portfolioID := uuid.New()
	tx := &domain.Transaction{ID: uuid.New(), PortfolioID: portfolioID, AssetID: uuid.New(), Quantity: decimal.NewFromInt(1), Type: domain.TransactionTypeBuy}

	err := s.UnitOfWork().WithinPortfolio(ctx, portfolioID, func(ctx context.Context, repos domain.TxRepositories) error {
		require.NoError(t, repos.Transactions.Create(ctx, tx))

		// own writes are visible inside the unit of work, not outside it
		inside, err := repos.Transactions.ListByPortfolio(ctx, portfolioID)
		require.NoError(t, err)
		assert.Len(t, inside, 1)

		outside, err := s.Transactions().ListByPortfolio(ctx, portfolioID)
		require.NoError(t, err)
		assert.Empty(t, outside)
		return nil
	})
	require.NoError(t, err)

	txs, err := s.Transactions().ListByPortfolio(ctx, portfolioID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestUnitOfWork_DiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	portfolioID := uuid.New()

	err := s.UnitOfWork().WithinPortfolio(ctx, portfolioID, func(ctx context.Context, repos domain.TxRepositories) error {
		h := &domain.PortfolioHistory{ID: uuid.New(), PortfolioID: portfolioID}
		require.NoError(t, repos.Histories.Create(ctx, h))
		h.Complete(domain.TransactionTypeBuy, decimal.NewFromInt(5), decimal.NewFromInt(5))
		require.NoError(t, repos.Histories.Update(ctx, h))
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	histories, err := s.Histories().ListByPortfolio(ctx, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, histories)
}

func TestUnitOfWork_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().UnitOfWork().WithinPortfolio(ctx, uuid.New(), func(context.Context, domain.TxRepositories) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAssetRepository_UpsertKeepsSymbolUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Assets()

	first := &domain.Asset{Symbol: "ETH", Name: "Ethereum", Price: decimal.NewFromInt(2000)}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &domain.Asset{Symbol: "ETH", Name: "Ethereum", Price: decimal.NewFromInt(2100)}
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Price.Equal(decimal.NewFromInt(2100)))

	_, err = repo.GetBySymbol(ctx, "DOGE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotRepository_ListSinceOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Snapshots()
	portfolioID := uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, day := range []int{3, 1, 2} {
		require.NoError(t, repo.Create(ctx, &domain.PortfolioSnapshot{
			ID:          uuid.New(),
			PortfolioID: portfolioID,
			TotalValue:  decimal.NewFromInt(int64(day)),
			RecordedAt:  base.AddDate(0, 0, day),
		}))
	}

	got, err := repo.ListByPortfolio(ctx, portfolioID, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].TotalValue.Equal(decimal.NewFromInt(2)))
	assert.True(t, got[1].TotalValue.Equal(decimal.NewFromInt(3)))
}

func TestExchangeConnectionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().ExchangeConnections()
	alice, bob := uuid.New(), uuid.New()

	active := &domain.ExchangeConnection{ID: uuid.New(), UserID: alice, ExchangeName: "binance", IsActive: true}
	inactive := &domain.ExchangeConnection{ID: uuid.New(), UserID: alice, ExchangeName: "binance"}
	other := &domain.ExchangeConnection{ID: uuid.New(), UserID: bob, ExchangeName: "binance", IsActive: true}
	for _, c := range []*domain.ExchangeConnection{active, inactive, other} {
		require.NoError(t, repo.Save(ctx, c))
	}

	all, err := repo.ListActive(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.ListActive(ctx, &alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, active.ID, mine[0].ID)

	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSynced(ctx, active.ID, at))
	mine, _ = repo.ListActive(ctx, &alice)
	require.NotNil(t, mine[0].LastSyncedAt)
	assert.Equal(t, at, *mine[0].LastSyncedAt)

	assert.ErrorIs(t, repo.MarkSynced(ctx, uuid.New(), at), domain.ErrNotFound)
}
