package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"planets-api/internal/planet"
	"planets-api/internal/shared/errors"
	"planets-api/internal/shared/response"
)

const maxBodyBytes = 1 << 20

// PlanetService is the part of planet.Service the handlers need.
type PlanetService interface {
	ListPlanets(ctx context.Context) ([]planet.Planet, error)
	GetPlanet(ctx context.Context, id int64) (*planet.Planet, error)
	CreatePlanet(ctx context.Context, input planet.PlanetInput) (*planet.Planet, error)
	ReplacePlanet(ctx context.Context, id int64, input planet.PlanetInput) (*planet.Planet, error)
	DeletePlanet(ctx context.Context, id int64) error
}

type PlanetHandler struct {
	service PlanetService
	logger  *slog.Logger
}

func NewPlanetHandler(service PlanetService, logger *slog.Logger) *PlanetHandler {
	return &PlanetHandler{
		service: service,
		logger:  logger.With("component", "planet_handler"),
	}
}

// RegisterRoutes mounts the planet endpoints with and without the trailing slash.
func (h *PlanetHandler) RegisterRoutes(mux *http.ServeMux) {
	for _, collection := range []string{"/api/planets", "/api/planets/{$}"} {
		mux.HandleFunc("GET "+collection, h.List)
		mux.HandleFunc("POST "+collection, h.Create)
	}
	for _, item := range []string{"/api/planets/{id}", "/api/planets/{id}/{$}"} {
		mux.HandleFunc("GET "+item, h.Get)
		mux.HandleFunc("PUT "+item, h.Replace)
		mux.HandleFunc("DELETE "+item, h.Delete)
	}
}

func (h *PlanetHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "list_planets")

	planets, err := h.service.ListPlanets(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, planet.NewPlanetViews(planets))
}

func (h *PlanetHandler) Get(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "get_planet")

	id, err := parseID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	p, err := h.service.GetPlanet(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, planet.NewPlanetView(p))
}

func (h *PlanetHandler) Create(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "create_planet")

	input, err := decodeBody(w, r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	p, err := h.service.CreatePlanet(r.Context(), input)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.Header().Set("Location", "/api/planets/"+strconv.FormatInt(p.ID, 10)+"/")
	response.Success(w, http.StatusCreated, planet.NewPlanetView(p))
}

func (h *PlanetHandler) Replace(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "replace_planet")

	id, err := parseID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	// an unknown id is reported before any body validation
	if _, err := h.service.GetPlanet(r.Context(), id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	input, err := decodeBody(w, r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	p, err := h.service.ReplacePlanet(r.Context(), id, input)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, planet.NewPlanetView(p))
}

func (h *PlanetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "delete_planet")

	id, err := parseID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.DeletePlanet(r.Context(), id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.NoContent(w)
}

// parseID treats anything that is not a positive integer as an unknown planet.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NotFoundf("planet not found with id: %q", raw)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (planet.PlanetInput, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return planet.PlanetInput{}, errors.WrapValidation("failed to read request body", err)
	}
	return planet.DecodePlanetInput(body)
}
