package main

import (
	"fmt"
	"log/slog"

	"planets-api/internal/planet"
	"planets-api/internal/populate"
	"planets-api/internal/swapi"

	"github.com/spf13/cobra"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Import planets, terrains and climates from SWAPI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := importConfig(cmd)

		db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("Failed to close database", "error", err)
			}
		}()

		service := planet.NewService(planet.NewRepository(db, slog.Default()), slog.Default())
		source := swapi.NewClient(cfg.SourceURL, cfg.Timeout, slog.Default())

		summary, err := populate.NewJob(source, service, slog.Default()).Run(ctx)
		if err != nil {
			return fmt.Errorf("populate: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d planets (%d terrain links, %d climate links, %d skipped)\n",
			summary.Planets, summary.Terrains, summary.Climates, summary.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(populateCmd)
}
