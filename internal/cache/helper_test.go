package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type totals struct {
	Messages int `json:"messages"`
}

func TestAside(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	c := New(rdb)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *totals) func() error {
		return func() error {
			calls++
			dest.Messages = 3
			return nil
		}
	}

	var first totals
	require.NoError(t, c.Aside(ctx, StatsKey, &first, time.Minute, fetch(&first)))
	assert.Equal(t, 3, first.Messages)
	assert.True(t, mr.Exists(StatsKey))

	var second totals
	require.NoError(t, c.Aside(ctx, StatsKey, &second, time.Minute, fetch(&second)))
	assert.Equal(t, 3, second.Messages)
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, StatsKey)
	assert.False(t, mr.Exists(StatsKey))

	var third totals
	require.NoError(t, c.Aside(ctx, StatsKey, &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(StatsKey))
}

func TestNilCacheAlwaysFetches(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	calls := 0
	var out totals
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Aside(ctx, StatsKey, &out, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(ctx, StatsKey)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = rdb.Close()

	rdb, err = NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = NewClient(context.Background(), "redis://:bad:url")
	assert.Error(t, err)
}
