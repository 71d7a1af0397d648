package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"planets-api/internal/middleware"
	"planets-api/internal/planet"
	"planets-api/internal/server"
	"planets-api/internal/shared/config"
	"planets-api/internal/shared/database"
	"planets-api/internal/shared/logger"
	"planets-api/internal/shared/redis"

	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	log.Info("Starting Planets API",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close redis", "error", err)
		}
	}()

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)
	if rdb != nil {
		limiter.WithRedis(rdb.Client)
	}

	planetRepo := planet.NewRepository(db, slog.Default())
	planetService := planet.NewService(planetRepo, slog.Default())

	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		metrics = middleware.NewMetrics()
		metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name))
	}

	mux := server.NewRoutes(db, planetService, metrics, cfg.Metrics, slog.Default()).Setup()
	handler := server.Chain(
		mux,
		middleware.NewCORS(cfg.Frontend),
		limiter,
		metrics,
		slog.Default(),
	)

	return server.New(cfg.Server, handler, slog.Default()).Run(ctx)
}
