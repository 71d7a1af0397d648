package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"planets-api/internal/planet"
	"planets-api/internal/planet/planettest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planetAPI struct {
	t     *testing.T
	mux   *http.ServeMux
	store *planettest.MemStore
	svc   *planet.Service
}

func newPlanetAPI(t *testing.T) *planetAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := planettest.NewMemStore()
	svc := planet.NewService(store, logger)

	mux := http.NewServeMux()
	NewPlanetHandler(svc, logger).RegisterRoutes(mux)

	return &planetAPI{t: t, mux: mux, store: store, svc: svc}
}

func (a *planetAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateThenGet(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPost, "/api/planets/", `{"name": "Earth", "population": 8100000000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[planet.PlanetView](t, rec)
	assert.Equal(t, "Earth", created.Name)
	require.NotNil(t, created.Population)
	assert.Equal(t, int64(8100000000), *created.Population)
	assert.Equal(t, "/api/planets/1/", rec.Header().Get("Location"))

	for _, path := range []string{"/api/planets/1/", "/api/planets/1"} {
		rec = api.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, created, decode[planet.PlanetView](t, rec), path)
	}
}

func TestCreateWithoutPopulation(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPost, "/api/planets", `{"name": "Mars"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id": 1, "name": "Mars", "population": null, "terrains": [], "climates": []}`, rec.Body.String())
}

func TestCreateMissingName(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPost, "/api/planets/", `{"population": 5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name": ["This field is required."]}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/planets/", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateMalformedJSON(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPost, "/api/planets/", `{"name": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "validation", body["error"])
}

func TestCreateBodyTooLarge(t *testing.T) {
	api := newPlanetAPI(t)

	big := `{"name": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := api.do(http.MethodPost, "/api/planets/", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListIncludesAssociations(t *testing.T) {
	api := newPlanetAPI(t)
	ctx := t.Context()

	_, err := api.svc.SyncPlanet(ctx, planet.SyncRecord{
		Name:     "Tatooine",
		Terrains: []string{"desert", "desert"},
		Climates: []string{"arid", "hot"},
	})
	require.NoError(t, err)
	_, err = api.svc.CreatePlanet(ctx, planet.PlanetInput{Name: "Mars"})
	require.NoError(t, err)

	rec := api.do(http.MethodGet, "/api/planets/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	views := decode[[]planet.PlanetView](t, rec)
	require.Len(t, views, 2)
	assert.Equal(t, "Tatooine", views[0].Name)
	assert.Len(t, views[0].Terrains, 1)
	assert.Equal(t, "desert", views[0].Terrains[0].Name)
	assert.Len(t, views[0].Climates, 2)
	assert.Equal(t, "Mars", views[1].Name)
	assert.NotNil(t, views[1].Terrains)
}

func TestDeleteThenGet(t *testing.T) {
	api := newPlanetAPI(t)
	api.do(http.MethodPost, "/api/planets/", `{"name": "Alderaan"}`)

	rec := api.do(http.MethodDelete, "/api/planets/1/", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/planets/1/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/api/planets/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownOrInvalidID(t *testing.T) {
	api := newPlanetAPI(t)

	for _, path := range []string{"/api/planets/42/", "/api/planets/abc/", "/api/planets/-1", "/api/planets/1.5/"} {
		rec := api.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)

		body := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "not_found", body["error"], path)
		assert.EqualValues(t, 404, body["code"], path)
	}
}

func TestReplace(t *testing.T) {
	api := newPlanetAPI(t)
	api.do(http.MethodPost, "/api/planets/", `{"name": "Hoth", "population": 3}`)

	rec := api.do(http.MethodPut, "/api/planets/1/", `{"name": "Hoth", "population": "12"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id": 1, "name": "Hoth", "population": 12, "terrains": [], "climates": []}`, rec.Body.String())

	rec = api.do(http.MethodPut, "/api/planets/1", `{"name": "Hoth", "population": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[planet.PlanetView](t, rec).Population)
}

func TestReplaceWithoutPopulationKeepsIt(t *testing.T) {
	api := newPlanetAPI(t)
	api.do(http.MethodPost, "/api/planets/", `{"name": "Earth", "population": 8100000000}`)

	rec := api.do(http.MethodPut, "/api/planets/1/", `{"name": "Terra"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id": 1, "name": "Terra", "population": 8100000000, "terrains": [], "climates": []}`, rec.Body.String())
}

func TestCreateRejectsNullCharacter(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPost, "/api/planets/", `{"name": "Ea\u0000rth"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name": ["Null characters are not allowed."]}`, rec.Body.String())
	assert.Zero(t, api.store.Writes)
}

func TestReplaceKeepsAssociations(t *testing.T) {
	api := newPlanetAPI(t)
	_, err := api.svc.SyncPlanet(t.Context(), planet.SyncRecord{Name: "Naboo", Terrains: []string{"swamps"}})
	require.NoError(t, err)

	rec := api.do(http.MethodPut, "/api/planets/1/", `{"name": "Naboo", "terrains": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[planet.PlanetView](t, rec).Terrains, 1)
}

func TestReplaceRejectsWrongShape(t *testing.T) {
	api := newPlanetAPI(t)
	api.do(http.MethodPost, "/api/planets/", `{"name": "Earth", "population": 7}`)

	rec := api.do(http.MethodPut, "/api/planets/1/", `{"title": "A New Hope", "genre": "space opera"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name": ["This field is required."]}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/planets/1/", "")
	assert.JSONEq(t, `{"id": 1, "name": "Earth", "population": 7, "terrains": [], "climates": []}`, rec.Body.String())
}

func TestReplaceUnknownIDBeforeValidation(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPut, "/api/planets/9/", `{"title": "A New Hope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	api := newPlanetAPI(t)

	rec := api.do(http.MethodPatch, "/api/planets/1/", `{"name": "x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = api.do(http.MethodDelete, "/api/planets/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
