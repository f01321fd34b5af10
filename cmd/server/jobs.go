package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simaogato/cryptofolio-backend/internal/adapter/exchange/binance"
	"github.com/simaogato/cryptofolio-backend/internal/domain"
)

const jobTimeout = 5 * time.Minute

var (
	syncUser string

	connectUser      string
	connectPortfolio string
	connectExchange  string
	connectAPIKey    string
	connectAPISecret string
)

var syncCoinsCmd = &cobra.Command{
	Use:   "sync-coins",
	Short: "Fetch quotes once and upsert them into the asset table",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		n, err := a.coinSyncer.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d assets\n", n)
		return nil
	}),
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record one value snapshot per portfolio",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		n, err := a.recorder.RecordAll(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %d snapshots\n", n)
		return err
	}),
}

var syncExchangesCmd = &cobra.Command{
	Use:   "sync-exchanges",
	Short: "Import new trades from every active exchange connection",
	Long: `Import new trades from every active exchange connection, or only from the
connections of one user when --user is given.

Examples:
  cryptofolio sync-exchanges
  cryptofolio sync-exchanges --user 6f1c...`,
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		var userID *uuid.UUID
		if syncUser != "" {
			id, err := uuid.Parse(syncUser)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			userID = &id
		}

		report, err := a.exchangeSyncer.SyncAll(ctx, userID)
		if report != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connections: %d (failed %d)\n", report.Connections, report.Failed)
			for outcome, n := range report.Outcomes {
				fmt.Fprintf(out, "  %-14s %d\n", outcome, n)
			}
		}
		return err
	}),
}

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Print the current quotes and the tier that served them",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		q, tier := a.quoteCache.Fetch(ctx)
		return printQuotes(cmd.OutOrStdout(), q, tier, cfg.MarketData.Convert)
	}),
}

var connectExchangeCmd = &cobra.Command{
	Use:   "connect-exchange",
	Short: "Store exchange API credentials for a portfolio",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		userID, err := uuid.Parse(connectUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		portfolioID, err := uuid.Parse(connectPortfolio)
		if err != nil {
			return fmt.Errorf("invalid --portfolio: %w", err)
		}
		if connectExchange != binance.ExchangeName {
			return fmt.Errorf("unsupported exchange %q", connectExchange)
		}

		p, err := a.repos.portfolios.GetByID(ctx, portfolioID)
		if err != nil {
			return err
		}
		if !p.OwnedBy(userID) {
			return &domain.AuthorizationError{PortfolioID: p.ID, UserID: userID}
		}

		conn := &domain.ExchangeConnection{
			ID:           uuid.New(),
			UserID:       userID,
			PortfolioID:  portfolioID,
			ExchangeName: connectExchange,
			APIKey:       connectAPIKey,
			APISecret:    connectAPISecret,
			IsActive:     true,
		}
		if err := a.repos.connections.Save(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "connection %s saved\n", conn.ID)
		return nil
	}),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	PreRun: func(cmd *cobra.Command, args []string) {
		cfg.Database.Migrate = true
	},
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(syncCoinsCmd, snapshotCmd, syncExchangesCmd, quotesCmd, connectExchangeCmd, migrateCmd)

	syncExchangesCmd.Flags().StringVar(&syncUser, "user", "", "Only sync the connections of this user ID")

	connectExchangeCmd.Flags().StringVar(&connectUser, "user", "", "Owner user ID")
	connectExchangeCmd.Flags().StringVar(&connectPortfolio, "portfolio", "", "Portfolio that receives the imported trades")
	connectExchangeCmd.Flags().StringVar(&connectExchange, "exchange", binance.ExchangeName, "Exchange name")
	connectExchangeCmd.Flags().StringVar(&connectAPIKey, "api-key", os.Getenv("EXCHANGE_API_KEY"), "Exchange API key")
	connectExchangeCmd.Flags().StringVar(&connectAPISecret, "api-secret", os.Getenv("EXCHANGE_API_SECRET"), "Exchange API secret")
	for _, name := range []string{"user", "portfolio"} {
		_ = connectExchangeCmd.MarkFlagRequired(name)
	}
}

// withApp wires the app for a single-pass command and releases it afterwards
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
		defer cancel()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				log.Error().Err(err).Msg("failed to close backends")
			}
		}()

		return run(ctx, a, cmd)
	}
}
