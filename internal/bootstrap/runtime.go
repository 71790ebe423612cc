// Package bootstrap opens the runtime dependencies shared by the server and
// the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"whisperwall/internal/cache"
	"whisperwall/internal/config"
	"whisperwall/internal/database"
	"whisperwall/internal/repository"
	"whisperwall/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// RequireRedis fails initialization when Redis is configured but unreachable.
	RequireRedis bool
}

// OpenStore connects the storage backend selected by cfg.DBDriver.
func OpenStore(cfg *config.Config) (*repository.Store, error) {
	if cfg.DBDriver == config.DriverMemory {
		return repository.NewMemoryStore(), nil
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return repository.NewGormStore(db), nil
}

// InitRuntime opens the store and, when REDIS_URL is set, a Redis client.
// The client is nil when Redis is unset, or unreachable and not required.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*repository.Store, *redis.Client, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			if opts.RequireRedis || cfg.RateLimitMode == config.RateLimitRedis {
				_ = store.Close()
				return nil, nil, fmt.Errorf("redis connection failed: %w", err)
			}
			log.Printf("Redis unavailable, continuing without cache: %v", err)
			rdb = nil
		}
	}

	if err := seedDemo(ctx, cfg, store); err != nil {
		_ = store.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
	}

	return store, rdb, nil
}

// seedDemo fills an empty development store when SEED_DEMO_MESSAGES is set.
func seedDemo(ctx context.Context, cfg *config.Config, store *repository.Store) error {
	if cfg.SeedDemoMessages <= 0 || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	existing, err := store.Messages.Count(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.Messages = cfg.SeedDemoMessages
	_, err = seed.NewSeeder(store, 0).Seed(ctx, opts)
	return err
}
