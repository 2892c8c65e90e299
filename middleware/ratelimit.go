package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimiter is a sliding-window limiter kept in process memory.
type IPRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[key]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[key] = requests
		return false, nil
	}
	rl.requests[key] = append(requests, now)
	return true, nil
}

// RedisRateLimiter counts requests in fixed windows shared by every
// instance pointing at the same Redis.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:", now: time.Now}
}

func (rl *RedisRateLimiter) key(ip string) string {
	bucket := rl.now().UnixNano() / int64(rl.window)
	return fmt.Sprintf("%s%s:%d", rl.prefix, ip, bucket)
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := rl.key(key)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(rl.limit), nil
}

// RateLimit throttles per client IP. A limiter error lets the request
// through.
func RateLimit(limiter Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WarnContext(c.Request.Context(), "[ratelimit] limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !ok {
			abort(c, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
