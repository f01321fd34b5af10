package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simaogato/cryptofolio-backend/internal/config"
	"github.com/simaogato/cryptofolio-backend/internal/logger"
)

var (
	configPath string
	cfg        *config.Config
)

// rootCmd is the base command of the cryptofolio server
var rootCmd = &cobra.Command{
	Use:   "cryptofolio",
	Short: "Crypto portfolio valuation and cost-basis server",
	Long: `cryptofolio serves portfolio valuations over gRPC, keeps a tiered cache of
market quotes and imports trades from connected exchanges.

Run "cryptofolio serve" to start the server with its background jobs, or one of
the job commands to run a single pass and exit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
