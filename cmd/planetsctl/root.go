package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"planets-api/internal/shared/config"
	"planets-api/internal/shared/database"
	"planets-api/internal/shared/logger"

	"github.com/spf13/cobra"
)

var (
	sourceURL     string
	importTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "planetsctl",
	Short:         "Manage the planets database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			return err
		}
		logger.Init()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		cobra.OnFinalize(stop)
		cmd.SetContext(ctx)
		return nil
	},
}

// openDatabase connects and brings the schema up to date.
func openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.Connect(ctx, config.GlobalConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// importConfig is the configured import settings with any --url or --timeout override applied.
func importConfig(cmd *cobra.Command) config.ImportConfig {
	cfg := config.GlobalConfig.Import
	if cmd.Flags().Changed("url") {
		cfg.SourceURL = sourceURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = importTimeout
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceURL, "url", "", "SWAPI GraphQL endpoint (overrides SWAPI_URL)")
	rootCmd.PersistentFlags().DurationVar(&importTimeout, "timeout", 0, "HTTP timeout for SWAPI requests (overrides IMPORT_TIMEOUT_SECONDS)")
}
