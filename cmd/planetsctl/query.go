package main

import (
	"fmt"
	"log/slog"

	"planets-api/internal/swapi"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List the planet names SWAPI would import, without touching the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := importConfig(cmd)
		client := swapi.NewClient(cfg.SourceURL, cfg.Timeout, slog.Default())

		planets, err := client.FetchPlanets(cmd.Context())
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, p := range planets {
			fmt.Fprintln(out, p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
