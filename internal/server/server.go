package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"planets-api/internal/middleware"
	"planets-api/internal/shared/config"
)

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Chain wraps mux in the middleware stack, outermost first:
// request id, access log, CORS, rate limit, metrics.
func Chain(mux http.Handler, cors *middleware.CORSMiddleware, limiter *middleware.RateLimiter, metrics *middleware.Metrics, logger *slog.Logger) http.Handler {
	handler := mux
	if metrics != nil {
		handler = metrics.Middleware(handler)
	}
	handler = limiter.Middleware(handler)
	handler = cors.Middleware(handler)
	handler = middleware.AccessLog(logger)(handler)
	return middleware.RequestID(handler)
}

func New(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger.With("component", "server"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	logger := s.logger.With("operation", "serve", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Planets API listening")
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Server stopped unexpectedly", "error", err)
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
