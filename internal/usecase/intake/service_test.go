package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuotes is a fixed QuoteProvider
type stubQuotes domain.Quotes

func (s stubQuotes) GetQuotes(context.Context) domain.Quotes { return domain.Quotes(s) }

type fixture struct {
	store     *memory.Store
	intake    *TransactionIntake
	owner     uuid.UUID
	portfolio *domain.Portfolio
	btc       *domain.Asset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	owner := uuid.New()
	p := &domain.Portfolio{ID: uuid.New(), UserID: owner, Name: "Main", CreatedAt: time.Now()}
	require.NoError(t, store.Portfolios().Create(ctx, p))

	btc := &domain.Asset{Symbol: "BTC", Name: "Bitcoin", Price: decimal.NewFromInt(100)}
	require.NoError(t, store.Assets().Upsert(ctx, btc))

	quotes := stubQuotes{"BTC": {Symbol: "BTC", Name: "Bitcoin", Price: decimal.NewFromInt(100)}}

	return &fixture{
		store:     store,
		intake:    NewTransactionIntake(store.UnitOfWork(), store.Portfolios(), quotes, nil),
		owner:     owner,
		portfolio: p,
		btc:       btc,
	}
}

func (f *fixture) input(kind domain.TransactionType, qty, price string) CreateTransactionInput {
	return CreateTransactionInput{
		PortfolioID: f.portfolio.ID,
		AssetID:     f.btc.ID,
		OwnerUserID: f.owner,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		Type:        kind,
	}
}

func (f *fixture) rows(t *testing.T) ([]*domain.Transaction, []*domain.PortfolioHistory) {
	t.Helper()
	ctx := context.Background()
	txs, err := f.store.Transactions().ListByPortfolio(ctx, f.portfolio.ID)
	require.NoError(t, err)
	histories, err := f.store.Histories().ListByPortfolio(ctx, f.portfolio.ID)
	require.NoError(t, err)
	return txs, histories
}

func TestCreate_BuyRecordsTransactionAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tx, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "2", "80"))

	require.NoError(t, err)
	assert.Equal(t, f.btc.ID, tx.AssetID)

	txs, histories := f.rows(t)
	require.Len(t, txs, 1)
	require.Len(t, histories, 1)

	h := histories[0]
	assert.True(t, h.PreviousValue.IsZero())
	require.NotNil(t, h.ChangeType)
	assert.Equal(t, domain.TransactionTypeBuy, *h.ChangeType)
	assert.True(t, h.ChangeValue.Valid)
	assert.True(t, h.ChangeValue.Decimal.Equal(decimal.NewFromInt(160)), "change value: %s", h.ChangeValue.Decimal)
	// new value reflects the inserted transaction: 2 × quote price 100
	assert.True(t, h.NewValue.Valid)
	assert.True(t, h.NewValue.Decimal.Equal(decimal.NewFromInt(200)), "new value: %s", h.NewValue.Decimal)
}

func TestCreate_SellCapturesPreviousAndNewValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "10", "50"))
	require.NoError(t, err)

	_, err = f.intake.Create(ctx, f.input(domain.TransactionTypeSell, "4", "120"))
	require.NoError(t, err)

	_, histories := f.rows(t)
	require.Len(t, histories, 2)

	sell := histories[0] // newest first
	assert.True(t, sell.PreviousValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sell.NewValue.Decimal.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, domain.TransactionTypeSell, *sell.ChangeType)
	assert.True(t, sell.ChangeValue.Decimal.Equal(decimal.NewFromInt(480)))
}

func TestCreate_InsufficientBalanceWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "3", "100"))
	require.NoError(t, err)

	// Attempt SELL 5 with a holding of 3
	tx, err := f.intake.Create(ctx, f.input(domain.TransactionTypeSell, "5", "100"))

	assert.Nil(t, tx)
	var balanceErr *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.True(t, balanceErr.Available.Equal(decimal.NewFromInt(3)))
	assert.True(t, balanceErr.Requested.Equal(decimal.NewFromInt(5)))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	txs, histories := f.rows(t)
	assert.Len(t, txs, 1)
	assert.Len(t, histories, 1)
}

func TestCreate_SellEntireHolding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "0.00000003", "100"))
	require.NoError(t, err)

	_, err = f.intake.Create(ctx, f.input(domain.TransactionTypeSell, "0.00000003", "100"))
	assert.NoError(t, err)
}

func TestCreate_ForeignPortfolioIsDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := f.input(domain.TransactionTypeBuy, "1", "10")
	in.OwnerUserID = uuid.New()

	tx, err := f.intake.Create(ctx, in)

	assert.Nil(t, tx)
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, f.portfolio.ID, authErr.PortfolioID)

	txs, histories := f.rows(t)
	assert.Empty(t, txs)
	assert.Empty(t, histories)
}

func TestCreate_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(in *CreateTransactionInput)
		field  string
	}{
		{name: "zero quantity", mutate: func(in *CreateTransactionInput) { in.Quantity = decimal.Zero }, field: "quantity"},
		{name: "negative quantity", mutate: func(in *CreateTransactionInput) { in.Quantity = decimal.NewFromInt(-1) }, field: "quantity"},
		{name: "negative price", mutate: func(in *CreateTransactionInput) { in.UnitPrice = decimal.NewFromInt(-5) }, field: "unit_price"},
		{name: "unknown kind", mutate: func(in *CreateTransactionInput) { in.Type = "TRANSFER" }, field: "transaction_type"},
		{name: "missing asset", mutate: func(in *CreateTransactionInput) { in.AssetID = uuid.Nil }, field: "asset_id"},
		{name: "nonexistent asset", mutate: func(in *CreateTransactionInput) { in.AssetID = uuid.New() }, field: "asset_id"},
		{name: "missing owner", mutate: func(in *CreateTransactionInput) { in.OwnerUserID = uuid.Nil }, field: "owner_user_id"},
		{
			name: "half exchange provenance",
			mutate: func(in *CreateTransactionInput) {
				in.Exchange = &domain.ExchangeProvenance{Source: "binance"}
			},
			field: "exchange",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(domain.TransactionTypeBuy, "1", "10")
			tt.mutate(&in)

			tx, err := f.intake.Create(context.Background(), in)

			assert.Nil(t, tx)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	txs, histories := f.rows(t)
	assert.Empty(t, txs)
	assert.Empty(t, histories)
}

func TestCreate_UnknownPortfolio(t *testing.T) {
	f := newFixture(t)

	in := f.input(domain.TransactionTypeBuy, "1", "10")
	in.PortfolioID = uuid.New()

	_, err := f.intake.Create(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_ConcurrentSellsCannotBothPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "10", "100"))
	require.NoError(t, err)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.intake.Create(ctx, f.input(domain.TransactionTypeSell, "8", "100"))
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	holding, err := memoryHolding(ctx, f)
	require.NoError(t, err)
	assert.True(t, holding.Equal(decimal.NewFromInt(2)), "holding: %s", holding)
}

func TestCreate_ExchangeImportKeepsProvenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	executedAt := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	in := f.input(domain.TransactionTypeBuy, "1", "10")
	in.ExecutedAt = executedAt
	in.Exchange = &domain.ExchangeProvenance{Source: "binance", TransactionID: "28457", SyncedAt: time.Now()}

	tx, err := f.intake.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, executedAt, tx.CreatedAt)

	exists, err := f.store.Transactions().ExistsByExchangeID(ctx, f.portfolio.ID, "binance", "28457")
	require.NoError(t, err)
	assert.True(t, exists)
}

func memoryHolding(ctx context.Context, f *fixture) (decimal.Decimal, error) {
	txs, err := f.store.Transactions().ListByPortfolioAndAsset(ctx, f.portfolio.ID, f.btc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.SignedQuantity())
	}
	return total, nil
}

// failingTransactions wraps a transaction repository and fails every insert
type failingTransactions struct {
	domain.TransactionRepository
}

func (failingTransactions) Create(context.Context, *domain.Transaction) error {
	return errors.New("disk I/O error")
}

// failingUnitOfWork injects failingTransactions into an otherwise real unit of work
type failingUnitOfWork struct {
	inner domain.UnitOfWork
}

func (u failingUnitOfWork) WithinPortfolio(ctx context.Context, id uuid.UUID, fn func(context.Context, domain.TxRepositories) error) error {
	return u.inner.WithinPortfolio(ctx, id, func(ctx context.Context, repos domain.TxRepositories) error {
		repos.Transactions = failingTransactions{repos.Transactions}
		return fn(ctx, repos)
	})
}

func TestCreate_FailureAfterHistoryInsertRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.intake.UnitOfWork = failingUnitOfWork{inner: f.store.UnitOfWork()}

	_, err := f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "1", "10"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert transaction")
	txs, histories := f.rows(t)
	assert.Empty(t, txs)
	assert.Empty(t, histories)
}

// countingQuotes records how often quotes were requested
type countingQuotes struct {
	stubQuotes
	calls int
}

func (c *countingQuotes) GetQuotes(ctx context.Context) domain.Quotes {
	c.calls++
	return c.stubQuotes.GetQuotes(ctx)
}

func TestCreate_RejectedCallerNeverReadsQuotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quotes := &countingQuotes{stubQuotes: stubQuotes{"BTC": {Symbol: "BTC", Price: decimal.NewFromInt(100)}}}
	f.intake.Quotes = quotes

	foreign := f.input(domain.TransactionTypeBuy, "1", "10")
	foreign.OwnerUserID = uuid.New()
	_, err := f.intake.Create(ctx, foreign)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	missing := f.input(domain.TransactionTypeBuy, "1", "10")
	missing.PortfolioID = uuid.New()
	_, err = f.intake.Create(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Zero(t, quotes.calls)

	_, err = f.intake.Create(ctx, f.input(domain.TransactionTypeBuy, "1", "10"))
	require.NoError(t, err)
	assert.Equal(t, 1, quotes.calls)
}
