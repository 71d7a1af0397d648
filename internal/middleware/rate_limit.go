package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"planets-api/internal/shared/config"
	"planets-api/internal/shared/errors"
	"planets-api/internal/shared/response"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitCleanupInterval = time.Minute

type RateLimiter struct {
	config  config.RateLimitConfig
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	now     func() time.Time
	shared  *redisWindow
}

// NewRateLimiter builds a per-client token bucket limiter. Idle clients are evicted until ctx is done.
func NewRateLimiter(ctx context.Context, cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  cfg,
		clients: make(map[string]*rate.Limiter),
		now:     time.Now,
	}

	if cfg.Enabled {
		go rl.cleanupClients(ctx)
	}

	return rl
}

// WithRedis shares the request budget across instances through client.
// The in-process limiter still applies when Redis cannot be reached.
func (rl *RateLimiter) WithRedis(client redis.Cmdable) *RateLimiter {
	if client != nil && rl.config.Enabled {
		rl.shared = newRedisWindow(client, rl.config.RequestsPerSecond, rl.config.BurstSize)
	}
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clients[ip]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.clients[ip]; !exists {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
		rl.clients[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops clients whose bucket has refilled completely.
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	now := rl.now()
	for ip, limiter := range rl.clients {
		if limiter.TokensAt(now) >= float64(rl.config.BurstSize) {
			delete(rl.clients, ip)
			evicted++
		}
	}
	return evicted
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r, rl.config.TrustProxy)

		logger := slog.With(
			"middleware", "rate_limit",
			"client_ip", ip,
			"request_id", GetRequestIDFromContext(r.Context()),
		)

		if !rl.allow(r.Context(), ip, logger) {
			w.Header().Set("Retry-After", "1")
			response.Error(w, r, logger, errors.RateLimited("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, ip string, logger *slog.Logger) bool {
	now := rl.now()
	if rl.shared != nil {
		allowed, err := rl.shared.allow(ctx, ip, now)
		if err == nil {
			return allowed
		}
		logger.Warn("Shared rate limit unavailable, using local limiter", "error", err)
	}
	return rl.getLimiter(ip).AllowN(now, 1)
}

func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can be comma-separated; first entry is the client
			if i := strings.IndexByte(xff, ','); i != -1 {
				return strings.TrimSpace(xff[:i])
			}
			return strings.TrimSpace(xff)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
