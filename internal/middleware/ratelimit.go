package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"whisperwall/internal/models"
	"whisperwall/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// BurstConfig caps how many requests one client address may make to a named
// route within a fixed window.
type BurstConfig struct {
	Name   string
	Limit  int
	Window time.Duration
	// FailClosed answers 503 when Redis is unreachable instead of letting
	// the request through.
	FailClosed bool
}

var errNoRedis = errors.New("redis client is nil")

// Hit records one request against key and returns the count in the current
// window and the time left in it.
func Hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	if rdb == nil {
		return 0, 0, errNoRedis
	}

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		// First hit of the window, or a key that lost its expiry.
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		left = window
	}
	return incr.Val(), left, nil
}

// Burst returns a Fiber middleware enforcing cfg per client address.
func Burst(rdb *redis.Client, cfg BurstConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := cfg.Name
		if name == "" {
			name = c.Route().Path
		}
		key := fmt.Sprintf("rl:%s:ip:%s", name, c.IP())

		count, left, err := Hit(c.UserContext(), rdb, key, cfg.Window)
		if err != nil {
			if cfg.FailClosed {
				Logger.WarnContext(c.UserContext(), "burst limit unavailable, rejecting",
					"route", name, "error", err)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewTransientStoreError(err))
			}
			return c.Next()
		}

		if count > int64(cfg.Limit) {
			observability.RateLimited.WithLabelValues("burst").Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(left.Seconds()))))
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Too many requests, please slow down"))
		}
		return c.Next()
	}
}
