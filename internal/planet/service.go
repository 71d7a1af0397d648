package planet

import (
	"context"
	"log/slog"
	"strings"

	"planets-api/internal/shared/database"
)

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing planet service")

	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) ListPlanets(ctx context.Context) ([]Planet, error) {
	return s.store.ListPlanets(ctx)
}

func (s *Service) GetPlanet(ctx context.Context, id int64) (*Planet, error) {
	return s.store.GetPlanet(ctx, id, nil)
}

func (s *Service) CreatePlanet(ctx context.Context, input PlanetInput) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "create_planet", "name", input.Name)

	planet, err := s.store.CreatePlanet(ctx, input.Name, input.Population, nil)
	if err != nil {
		return nil, err
	}

	logger.Info("Planet created", "planet_id", planet.ID)
	return planet, nil
}

// ReplacePlanet overwrites the name, and the population when the input carries one.
// Terrain and climate links are left as they are.
func (s *Service) ReplacePlanet(ctx context.Context, id int64, input PlanetInput) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "replace_planet", "planet_id", id)

	var planet *Planet
	err := s.store.RunInTx(ctx, func(tx *database.Tx) error {
		population := input.Population
		if !input.PopulationSet {
			current, err := s.store.GetPlanet(ctx, id, tx)
			if err != nil {
				return err
			}
			population = current.Population
		}

		var err error
		planet, err = s.store.ReplacePlanet(ctx, id, input.Name, population, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Planet replaced", "name", planet.Name)
	return planet, nil
}

func (s *Service) DeletePlanet(ctx context.Context, id int64) error {
	logger := s.logger.With("component", "planet_service", "operation", "delete_planet", "planet_id", id)

	if err := s.store.DeletePlanet(ctx, id, nil); err != nil {
		return err
	}

	logger.Info("Planet deleted")
	return nil
}

// SyncRecord is one planet as described by an external source.
type SyncRecord struct {
	Name       string
	Population *int64
	Terrains   []string
	Climates   []string
}

// SyncPlanet upserts the planet by name and links every named terrain and climate,
// creating missing ones. It runs in a single transaction.
func (s *Service) SyncPlanet(ctx context.Context, record SyncRecord) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "sync_planet", "name", record.Name)
	logger.Debug("Synchronising planet")

	name, err := ValidateFeatureName(record.Name)
	if err != nil {
		logger.Warn("Rejected planet name from source", "error", err)
		return nil, err
	}

	var planet *Planet
	err = s.store.RunInTx(ctx, func(tx *database.Tx) error {
		var err error
		planet, err = s.store.UpsertPlanetByName(ctx, name, record.Population, tx)
		if err != nil {
			return err
		}

		links := map[FeatureKind][]string{
			FeatureTerrain: record.Terrains,
			FeatureClimate: record.Climates,
		}
		for _, kind := range FeatureKinds {
			if err := s.linkFeatures(ctx, planet, kind, links[kind], tx); err != nil {
				return err
			}
		}

		planet, err = s.store.GetPlanet(ctx, planet.ID, tx)
		return err
	})
	if err != nil {
		logger.Error("Failed to synchronise planet", "error", err)
		return nil, err
	}

	logger.Debug("Planet synchronised",
		"planet_id", planet.ID,
		"terrains", len(planet.Terrains),
		"climates", len(planet.Climates))
	return planet, nil
}

func (s *Service) linkFeatures(ctx context.Context, planet *Planet, kind FeatureKind, names []string, tx *database.Tx) error {
	linked := make(map[string]bool, len(planet.Features(kind)))
	for _, f := range planet.Features(kind) {
		linked[f.Name] = true
	}

	for _, raw := range names {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		name, err := ValidateFeatureName(raw)
		if err != nil {
			return err
		}
		if linked[name] {
			continue
		}

		feature, err := s.store.UpsertFeatureByName(ctx, kind, name, tx)
		if err != nil {
			return err
		}
		if err := s.store.Associate(ctx, planet.ID, kind, feature.ID, tx); err != nil {
			return err
		}
		linked[name] = true
	}
	return nil
}
