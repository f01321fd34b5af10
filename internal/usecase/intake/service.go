package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/metrics"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/portfolio"
)

// CreateTransactionInput represents the input for recording a buy or sell
type CreateTransactionInput struct {
	PortfolioID uuid.UUID
	AssetID     uuid.UUID
	OwnerUserID uuid.UUID // the caller; must own the portfolio
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Type        domain.TransactionType
	ExecutedAt  time.Time                  // optional: defaults to now, set by exchange imports
	Exchange    *domain.ExchangeProvenance // optional: set by exchange imports
}

// TransactionIntake records ledger entries and their history rows atomically
type TransactionIntake struct {
	UnitOfWork    domain.UnitOfWork
	PortfolioRepo domain.PortfolioRepository
	Quotes        domain.QuoteProvider
	Metrics       *metrics.Registry
}

// NewTransactionIntake creates a new TransactionIntake instance
func NewTransactionIntake(
	uow domain.UnitOfWork,
	portfolioRepo domain.PortfolioRepository,
	quotes domain.QuoteProvider,
	reg *metrics.Registry,
) *TransactionIntake {
	return &TransactionIntake{
		UnitOfWork:    uow,
		PortfolioRepo: portfolioRepo,
		Quotes:        quotes,
		Metrics:       reg,
	}
}

// Create records one transaction
// Logic (steps 2-7 run inside one unit of work holding the portfolio lock):
//  1. Validate the input and check ownership, before quotes are read
//  2. Check the caller owns the portfolio and the asset exists
//  3. previousValue = portfolio total value before the write
//  4. SELL only: the signed holding must cover the quantity
//  5. Insert the history row with previousValue
//  6. Insert the transaction
//  7. Complete the history row with change type, change value and newValue
//
// Quotes are read once before the unit of work and reused for both valuations, so the
// difference between previousValue and newValue is caused by the new transaction alone.
// Rejected callers never reach the quote cache, so they cost no upstream request or audit row.
// Ownership is checked again under the lock.
func (s *TransactionIntake) Create(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	tx, err := s.create(ctx, input)
	s.Metrics.TransactionRecorded(string(input.Type), err == nil)
	if err != nil {
		log.Debug().
			Str("portfolio_id", input.PortfolioID.String()).
			Str("type", string(input.Type)).
			Err(err).
			Msg("transaction rejected")
		return nil, err
	}
	return tx, nil
}

func (s *TransactionIntake) create(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	// 1. Validate
	if input.OwnerUserID == uuid.Nil {
		return nil, domain.NewValidationError("owner_user_id", "is required")
	}
	executedAt := input.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		PortfolioID: input.PortfolioID,
		AssetID:     input.AssetID,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		Type:        input.Type,
		CreatedAt:   executedAt,
		Exchange:    input.Exchange,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkOwner(ctx, input.PortfolioID, input.OwnerUserID); err != nil {
		return nil, err
	}

	quotes := s.Quotes.GetQuotes(ctx)

	err := s.UnitOfWork.WithinPortfolio(ctx, input.PortfolioID, func(ctx context.Context, repos domain.TxRepositories) error {
		// 2. Ownership and asset existence
		p, err := repos.Portfolios.GetByID(ctx, input.PortfolioID)
		if err != nil {
			return err
		}
		if !p.OwnedBy(input.OwnerUserID) {
			return &domain.AuthorizationError{PortfolioID: p.ID, UserID: input.OwnerUserID}
		}
		if _, err := repos.Assets.GetByID(ctx, input.AssetID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("asset_id", "asset %s does not exist", input.AssetID)
			}
			return err
		}

		aggregator := portfolio.NewAggregator(repos.Transactions, repos.Assets)

		// 3. Value before the write
		before, err := aggregator.GetPortfolioDetails(ctx, p, quotes)
		if err != nil {
			return err
		}

		// 4. Balance check
		if tx.Type == domain.TransactionTypeSell {
			holding, err := aggregator.GetTotalHoldingForAsset(ctx, p.ID, tx.AssetID)
			if err != nil {
				return err
			}
			if holding.LessThan(tx.Quantity) {
				return &domain.InsufficientBalanceError{AssetID: tx.AssetID, Requested: tx.Quantity, Available: holding}
			}
		}

		// 5. History row (before)
		history := &domain.PortfolioHistory{
			ID:            uuid.New(),
			PortfolioID:   p.ID,
			PreviousValue: before.TotalValue,
			ChangedAt:     time.Now().UTC(),
		}
		if err := repos.Histories.Create(ctx, history); err != nil {
			return fmt.Errorf("failed to insert portfolio history: %w", err)
		}

		// 6. Transaction
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		// 7. History row (after)
		after, err := aggregator.GetPortfolioDetails(ctx, p, quotes)
		if err != nil {
			return err
		}
		history.Complete(tx.Type, tx.Total(), after.TotalValue)
		if err := repos.Histories.Update(ctx, history); err != nil {
			return fmt.Errorf("failed to update portfolio history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("portfolio_id", tx.PortfolioID.String()).
		Str("transaction_id", tx.ID.String()).
		Str("type", string(tx.Type)).
		Str("quantity", tx.Quantity.String()).
		Msg("transaction recorded")

	return tx, nil
}

func (s *TransactionIntake) checkOwner(ctx context.Context, portfolioID, userID uuid.UUID) error {
	if s.PortfolioRepo == nil {
		return nil
	}
	p, err := s.PortfolioRepo.GetByID(ctx, portfolioID)
	if err != nil {
		return err
	}
	if !p.OwnedBy(userID) {
		return &domain.AuthorizationError{PortfolioID: p.ID, UserID: userID}
	}
	return nil
}
