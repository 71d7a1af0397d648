package planet

import (
	"context"

	"planets-api/internal/shared/database"
)

// Store persists planets, terrains and climates and the links between them.
// Methods taking a *database.Tx run on it when non-nil.
type Store interface {
	CreatePlanet(ctx context.Context, name string, population *int64, tx *database.Tx) (*Planet, error)
	GetPlanet(ctx context.Context, id int64, tx *database.Tx) (*Planet, error)
	ListPlanets(ctx context.Context) ([]Planet, error)
	ReplacePlanet(ctx context.Context, id int64, name string, population *int64, tx *database.Tx) (*Planet, error)
	DeletePlanet(ctx context.Context, id int64, tx *database.Tx) error

	// UpsertPlanetByName overwrites the population of the oldest planet with this exact name,
	// or creates one when none exists.
	UpsertPlanetByName(ctx context.Context, name string, population *int64, tx *database.Tx) (*Planet, error)
	// UpsertFeatureByName returns the feature with this exact name, creating it if absent.
	UpsertFeatureByName(ctx context.Context, kind FeatureKind, name string, tx *database.Tx) (*Feature, error)
	// Associate links a feature to a planet. Linking an existing pair is a no-op.
	Associate(ctx context.Context, planetID int64, kind FeatureKind, featureID int64, tx *database.Tx) error

	RunInTx(ctx context.Context, fn func(tx *database.Tx) error) error
}
