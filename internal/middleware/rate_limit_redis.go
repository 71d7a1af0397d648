package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "planets:ratelimit"

// redisWindow counts requests per client in fixed windows shared by every server instance.
// A window lasts as long as the local bucket takes to refill, and admits BurstSize requests.
type redisWindow struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

func newRedisWindow(client redis.Cmdable, requestsPerSecond float64, burst int) *redisWindow {
	window := time.Duration(float64(burst) / requestsPerSecond * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	return &redisWindow{client: client, limit: int64(burst), window: window}
}

func (w *redisWindow) key(client string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", redisKeyPrefix, client, now.UnixNano()/int64(w.window))
}

func (w *redisWindow) allow(ctx context.Context, client string, now time.Time) (bool, error) {
	key := w.key(client, now)

	var count *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, w.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return count.Val() <= w.limit, nil
}
