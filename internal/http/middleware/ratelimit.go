package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Counter is the Redis subset the limiter uses.
type Counter interface {
	Pipeline() redis.Pipeliner
}

// RateLimitConfig config for Redis-based RPS limiter.
type RateLimitConfig struct {
	Redis          Counter
	RPS            int           // 0 disables limiting
	KeyPrefix      string        // e.g. "rl:ip:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited
	Now            func() time.Time
}

// RateLimitMiddleware applies a fixed-window per-client RPS limit keyed by
// the caller's IP. Redis failures let the request through.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.RPS <= 0 || cfg.Redis == nil {
				// no limit configured or redis missing (dev): allow
				return next(c)
			}

			now := cfg.Now()
			key := WindowKey(cfg.KeyPrefix, c.RealIP(), now, cfg.Window)

			cnt, err := incr(c.Request().Context(), cfg.Redis, key, cfg.Window*2)
			if err != nil {
				return next(c)
			}

			if cnt > int64(cfg.RPS) {
				if cfg.RetryAfterHint {
					// seconds until next window
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					secs := int((remain + time.Second - 1) / time.Second)
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
			}
			return next(c)
		}
	}
}

// WindowKey is the counter key of the fixed window holding now.
func WindowKey(prefix, client string, now time.Time, window time.Duration) string {
	slot := now.UnixNano() / int64(window)
	return prefix + client + ":" + strconv.FormatInt(slot, 10)
}

// incr bumps the window counter and sets its expiry in one round trip.
func incr(ctx context.Context, r Counter, key string, ttl time.Duration) (int64, error) {
	pipe := r.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}
