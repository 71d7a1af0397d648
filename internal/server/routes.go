package server

import (
	"log/slog"
	"net/http"

	"planets-api/internal/middleware"
	planetHandlers "planets-api/internal/planet/handlers"
	serverHandlers "planets-api/internal/server/handlers"
	"planets-api/internal/shared/config"
)

type Routes struct {
	db            serverHandlers.Pinger
	planetService planetHandlers.PlanetService
	metrics       *middleware.Metrics
	metricsConfig config.MetricsConfig
	logger        *slog.Logger
}

// NewRoutes wires the HTTP endpoints. metrics may be nil when metrics are disabled.
func NewRoutes(db serverHandlers.Pinger, planetService planetHandlers.PlanetService, metrics *middleware.Metrics, metricsConfig config.MetricsConfig, logger *slog.Logger) *Routes {
	return &Routes{
		db:            db,
		planetService: planetService,
		metrics:       metrics,
		metricsConfig: metricsConfig,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	planetHandler := planetHandlers.NewPlanetHandler(r.planetService, r.logger)

	mux.Handle("GET /api/health", healthHandler)
	planetHandler.RegisterRoutes(mux)

	endpoints := []string{"/api/health", "/api/planets/", "/api/planets/{id}/"}
	if r.metrics != nil && r.metricsConfig.Enabled {
		mux.Handle("GET "+r.metricsConfig.Path, r.metrics.Handler())
		endpoints = append(endpoints, r.metricsConfig.Path)
	}

	logger.Info("Routes configured successfully", "endpoints", endpoints)

	return mux
}
