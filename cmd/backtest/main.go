// cmd/backtest runs trading strategies over historical bid/ask quotes and
// reports, persists and publishes their performance.
//
// Usage:
//
//	go run ./cmd/backtest run --ticker=EURUSD --source=sqlite --from=2024-01-02
//	go run ./cmd/backtest strategies
//	go run ./cmd/backtest import --ticker=EURUSD --source=influx
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tickback/config"
	"tickback/internal/logger"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "backtest",
		Short:         "Tick-level strategy backtester",
		Long:          `Runs indicator-driven strategies over bid/ask quote series and compares them against buy-and-hold.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.InitWriter(cmd.ErrOrStderr(), "backtest", logger.ParseLevel(cfg.LogLevel))
			return cfg.Validate()
		},
	}
	root.PersistentFlags().StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "Path to SQLite database")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(cfg), newStrategiesCmd(), newImportCmd(cfg))
	return root
}
