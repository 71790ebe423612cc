package service

import (
	"context"
	"testing"
	"time"

	"whisperwall/internal/cache"
	"whisperwall/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Totals(t *testing.T) {
	forEachStore(t, func(t *testing.T, store *repository.Store) {
		stats := NewStatsService(store, cache.New(nil), time.Minute)
		messages := NewMessageService(store, nil, nil, stats)
		comments := NewCommentService(store, nil, stats)
		ctx := context.Background()

		got, err := stats.GetStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, got.Total)

		a, err := messages.CreateMessage(ctx, CreateMessageInput{Content: "a"})
		require.NoError(t, err)
		_, err = messages.CreateMessage(ctx, CreateMessageInput{Content: "b"})
		require.NoError(t, err)
		_, err = comments.CreateComment(ctx, CreateCommentInput{MessageID: a.ID, Content: "c"})
		require.NoError(t, err)

		got, err = stats.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.TotalMessages)
		assert.Equal(t, int64(1), got.TotalComments)
		assert.Equal(t, int64(3), got.Total)
	})
}

func TestStatsService_CacheInvalidatedByMutations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	store := repository.NewMemoryStore()
	stats := NewStatsService(store, cache.New(rdb), time.Minute)
	messages := NewMessageService(store, nil, nil, stats)
	ctx := context.Background()

	got, err := stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TotalMessages)
	assert.True(t, mr.Exists(cache.StatsKey))

	// A write that bypasses the service is hidden by the cache.
	require.NoError(t, store.Messages.Create(ctx, newMessage("direct")))
	got, err = stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TotalMessages)

	view, err := messages.CreateMessage(ctx, CreateMessageInput{Content: "through service"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.StatsKey))

	got, err = stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalMessages)

	require.NoError(t, messages.DeleteMessage(ctx, view.ID))
	got, err = stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalMessages)
}
