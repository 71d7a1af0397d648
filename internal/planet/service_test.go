package planet_test

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"planets-api/internal/planet"
	"planets-api/internal/planet/planettest"
	"planets-api/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*planet.Service, *planettest.MemStore) {
	t.Helper()
	store := planettest.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return planet.NewService(store, logger), store
}

func ptr(v int64) *int64 {
	return &v
}

func featureNames(features []planet.Feature) []string {
	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, f.Name)
	}
	return names
}

func TestServiceCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	earth, err := svc.CreatePlanet(ctx, planet.PlanetInput{Name: "Earth", Population: ptr(7800000000)})
	require.NoError(t, err)
	assert.Equal(t, "Earth", earth.Name)
	assert.Empty(t, earth.Terrains)

	_, err = svc.CreatePlanet(ctx, planet.PlanetInput{Name: "Mars"})
	require.NoError(t, err)

	planets, err := svc.ListPlanets(ctx)
	require.NoError(t, err)
	require.Len(t, planets, 2)
	assert.Equal(t, "Earth", planets[0].Name)
	assert.Nil(t, planets[1].Population)

	replaced, err := svc.ReplacePlanet(ctx, earth.ID, planet.PlanetInput{Name: "Terra"})
	require.NoError(t, err)
	assert.Equal(t, earth.ID, replaced.ID)
	assert.Equal(t, "Terra", replaced.Name)
	require.NotNil(t, replaced.Population)
	assert.Equal(t, int64(7800000000), *replaced.Population)

	replaced, err = svc.ReplacePlanet(ctx, earth.ID, planet.PlanetInput{Name: "Terra", PopulationSet: true})
	require.NoError(t, err)
	assert.Nil(t, replaced.Population)

	require.NoError(t, svc.DeletePlanet(ctx, earth.ID))

	_, err = svc.GetPlanet(ctx, earth.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(svc.DeletePlanet(ctx, earth.ID)))

	_, err = svc.ReplacePlanet(ctx, 999, planet.PlanetInput{Name: "Nowhere"})
	assert.True(t, errors.IsNotFound(err))
}

func TestSyncPlanetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	record := planet.SyncRecord{
		Name:       "Tatooine",
		Population: ptr(200000),
		Terrains:   []string{"desert"},
		Climates:   []string{"arid"},
	}

	first, err := svc.SyncPlanet(ctx, record)
	require.NoError(t, err)
	second, err := svc.SyncPlanet(ctx, record)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"desert"}, featureNames(second.Terrains))
	assert.Equal(t, []string{"arid"}, featureNames(second.Climates))

	planets, err := svc.ListPlanets(ctx)
	require.NoError(t, err)
	assert.Len(t, planets, 1)
	assert.Len(t, store.Features(planet.FeatureTerrain), 1)
	assert.Len(t, store.Features(planet.FeatureClimate), 1)
}

func TestSyncPlanetSharesFeatures(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	alderaan, err := svc.SyncPlanet(ctx, planet.SyncRecord{
		Name:     "Alderaan",
		Terrains: []string{"grasslands", " mountains ", "", "grasslands"},
		Climates: []string{"temperate"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"grasslands", "mountains"}, featureNames(alderaan.Terrains))

	naboo, err := svc.SyncPlanet(ctx, planet.SyncRecord{
		Name:     "Naboo",
		Terrains: []string{"swamps", "grasslands"},
		Climates: []string{"temperate"},
	})
	require.NoError(t, err)

	assert.Equal(t, alderaan.Terrains[0].ID, naboo.Terrains[1].ID)
	assert.Equal(t, alderaan.Climates[0].ID, naboo.Climates[0].ID)
	assert.Len(t, store.Features(planet.FeatureTerrain), 3)
}

func TestSyncPlanetOverwritesPopulation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreatePlanet(ctx, planet.PlanetInput{Name: "Hoth", Population: ptr(10)})
	require.NoError(t, err)

	synced, err := svc.SyncPlanet(ctx, planet.SyncRecord{Name: "Hoth"})
	require.NoError(t, err)
	assert.Nil(t, synced.Population)
}

func TestSyncPlanetRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	store.FailAssociate = stderrors.New("connection reset")

	_, err := svc.SyncPlanet(ctx, planet.SyncRecord{Name: "Kamino", Terrains: []string{"ocean"}})
	require.Error(t, err)

	planets, err := svc.ListPlanets(ctx)
	require.NoError(t, err)
	assert.Empty(t, planets)
	assert.Empty(t, store.Features(planet.FeatureTerrain))
	assert.Zero(t, store.Writes)
}

func TestSyncPlanetRejectsBlankName(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.SyncPlanet(context.Background(), planet.SyncRecord{Name: "  "})
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
	assert.Zero(t, store.Writes)
}
