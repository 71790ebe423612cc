// Package ratelimit gates message creation per origin.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whisperwall/internal/config"
	"whisperwall/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether origin may post a message now.
type Limiter interface {
	Allow(ctx context.Context, origin string) (bool, error)
	Mode() string
}

// Noop allows everything.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

func (Noop) Mode() string { return config.RateLimitOff }

// StoreLimiter keeps the last message time per origin in the entity store.
type StoreLimiter struct {
	repo     repository.RateLimitRepository
	interval time.Duration
	now      func() time.Time
}

// NewStoreLimiter returns a StoreLimiter allowing one message per interval.
func NewStoreLimiter(repo repository.RateLimitRepository, interval time.Duration) *StoreLimiter {
	return &StoreLimiter{
		repo:     repo,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *StoreLimiter) Allow(ctx context.Context, origin string) (bool, error) {
	return l.repo.Acquire(ctx, origin, l.now(), l.interval)
}

func (l *StoreLimiter) Mode() string { return config.RateLimitStore }

// RedisLimiter holds a per-origin key for the interval.
type RedisLimiter struct {
	client   *redis.Client
	interval time.Duration
}

// NewRedisLimiter returns a RedisLimiter allowing one message per interval.
func NewRedisLimiter(client *redis.Client, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, interval: interval}
}

func (l *RedisLimiter) Allow(ctx context.Context, origin string) (bool, error) {
	ok, err := l.client.SetNX(ctx, fmt.Sprintf("rl:msg:%s", origin), 1, l.interval).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return ok, nil
}

func (l *RedisLimiter) Mode() string { return config.RateLimitRedis }

// New builds the Limiter selected by cfg.RateLimitMode.
func New(cfg *config.Config, store *repository.Store, client *redis.Client) (Limiter, error) {
	switch cfg.RateLimitMode {
	case config.RateLimitOff, "":
		return Noop{}, nil
	case config.RateLimitStore:
		return NewStoreLimiter(store.RateLimits, cfg.RateLimitInterval), nil
	case config.RateLimitRedis:
		if client == nil {
			return nil, errors.New("redis rate limiting requires a redis connection")
		}
		return NewRedisLimiter(client, cfg.RateLimitInterval), nil
	case config.RateLimitLocal:
		return NewLocalLimiter(cfg.RateLimitInterval), nil
	default:
		return nil, fmt.Errorf("unknown rate limit mode %q", cfg.RateLimitMode)
	}
}
