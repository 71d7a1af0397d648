// Package populate imports planets from an external source into the planet store.
package populate

import (
	"context"
	"log/slog"
	"strings"

	"planets-api/internal/planet"
	"planets-api/internal/shared/errors"
	"planets-api/internal/swapi"
)

// Source lists planets from an external catalogue.
type Source interface {
	FetchPlanets(ctx context.Context) ([]swapi.Planet, error)
}

// Syncer persists one planet and its terrains and climates atomically.
type Syncer interface {
	SyncPlanet(ctx context.Context, record planet.SyncRecord) (*planet.Planet, error)
}

// Summary counts what a run wrote. Terrains and Climates are the links held by the synced planets.
type Summary struct {
	Planets  int
	Skipped  int
	Terrains int
	Climates int
}

type Job struct {
	source Source
	syncer Syncer
	logger *slog.Logger
}

func NewJob(source Source, syncer Syncer, logger *slog.Logger) *Job {
	return &Job{
		source: source,
		syncer: syncer,
		logger: logger.With("component", "populate"),
	}
}

// Run fetches every planet before writing anything, then syncs them one by one in source order.
// A fetch failure leaves the store untouched. A write failure stops the run.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	logger := j.logger.With("operation", "run")
	logger.Info("Starting planet import")

	var summary Summary

	records, err := j.source.FetchPlanets(ctx)
	if err != nil {
		logger.Error("Aborting import, source unavailable", "error", err)
		if errors.GetType(err) != errors.ErrorTypeExternal {
			err = errors.WrapExternal("failed to fetch planets", err)
		}
		return summary, err
	}
	logger.Info("Fetched planets from source", "count", len(records))

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			logger.Warn("Import cancelled", "processed", i, "error", err)
			return summary, err
		}

		if strings.TrimSpace(record.Name) == "" {
			logger.Warn("Skipping planet without a name", "index", i)
			summary.Skipped++
			continue
		}

		p, err := j.syncer.SyncPlanet(ctx, planet.SyncRecord{
			Name:       record.Name,
			Population: record.Population,
			Terrains:   record.Terrains,
			Climates:   record.Climates,
		})
		if err != nil {
			logger.Error("Failed to import planet", "name", record.Name, "index", i, "error", err)
			return summary, err
		}

		summary.Planets++
		summary.Terrains += len(p.Terrains)
		summary.Climates += len(p.Climates)
		logger.Debug("Imported planet", "planet_id", p.ID, "name", p.Name)
	}

	logger.Info("Planet import finished",
		"planets", summary.Planets,
		"skipped", summary.Skipped,
		"terrains", summary.Terrains,
		"climates", summary.Climates,
	)
	return summary, nil
}
