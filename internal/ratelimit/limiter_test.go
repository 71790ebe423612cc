package ratelimit

import (
	"context"
	"testing"
	"time"

	"whisperwall/internal/config"
	"whisperwall/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	ok, err := Noop{}.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreLimiter(t *testing.T) {
	store := repository.NewMemoryStore()
	l := NewStoreLimiter(store.RateLimits, 10*time.Second)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok, "origins are independent")

	now = now.Add(11 * time.Second)
	ok, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	l := NewRedisLimiter(rdb, 10*time.Second)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(11 * time.Second)
	ok, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.Close()
	_, err = l.Allow(ctx, "c")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(time.Hour)
	defer l.Shutdown()
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Size())

	l.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 0, l.Size())
	l.Shutdown()
}

func TestNew(t *testing.T) {
	store := repository.NewMemoryStore()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	for _, mode := range []string{config.RateLimitOff, config.RateLimitStore, config.RateLimitRedis, config.RateLimitLocal} {
		cfg := &config.Config{RateLimitMode: mode, RateLimitInterval: time.Second}
		l, err := New(cfg, store, rdb)
		require.NoError(t, err, mode)
		assert.Equal(t, mode, l.Mode())
		if local, ok := l.(*LocalLimiter); ok {
			local.Shutdown()
		}
	}

	_, err := New(&config.Config{RateLimitMode: config.RateLimitRedis, RateLimitInterval: time.Second}, store, nil)
	assert.Error(t, err)

	_, err = New(&config.Config{RateLimitMode: "bogus"}, store, nil)
	assert.Error(t, err)
}

func TestPrunerRunOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.RateLimits.Acquire(ctx, "old", base, time.Second)
	require.NoError(t, err)
	_, err = store.RateLimits.Acquire(ctx, "fresh", base.Add(23*time.Hour), time.Second)
	require.NoError(t, err)

	p := NewPruner(store.RateLimits, "*/15 * * * *", 12*time.Hour)
	p.now = func() time.Time { return base.Add(24 * time.Hour) }

	n, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := store.RateLimits.Acquire(ctx, "fresh", base.Add(23*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "fresh record survives the prune")
}

func TestPrunerStopsWithContext(t *testing.T) {
	store := repository.NewMemoryStore()
	p := NewPruner(store.RateLimits, "* * * * *", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
}
