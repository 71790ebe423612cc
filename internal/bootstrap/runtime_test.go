package bootstrap

import (
	"context"
	"testing"

	"whisperwall/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := OpenStore(&config.Config{DBDriver: config.DriverMemory})
		require.NoError(t, err)
		assert.Equal(t, "memory", store.Backend())
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenStore(&config.Config{DBDriver: config.DriverSQLite, DBPath: ":memory:", DBAutoMigrate: true})
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.Equal(t, "gorm:sqlite", store.Backend())
		assert.NoError(t, store.Ping(context.Background()))
	})
}

func TestInitRuntime_SeedsDevelopment(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DBDriver: config.DriverMemory, Env: "development", SeedDemoMessages: 4}

	store, rdb, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, rdb)

	count, err := store.Messages.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	cfg.Env = "test"
	store, _, err = InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	count, err = store.Messages.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInitRuntime_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := &config.Config{DBDriver: config.DriverMemory, RedisURL: mr.Addr()}
	_, rdb, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	_ = rdb.Close()

	cfg.RedisURL = "127.0.0.1:1"
	_, rdb, err = InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, rdb)

	_, _, err = InitRuntime(ctx, cfg, Options{RequireRedis: true})
	assert.Error(t, err)
}
