package seed

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"whisperwall/internal/models"
	"whisperwall/internal/ranking"
	"whisperwall/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_CountsMatchStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := NewSeeder(store, 42)

	opts := DefaultOptions()
	opts.Messages = 12
	res, err := s.Seed(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Messages)

	messages, err := store.Messages.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(res.Messages), messages)

	comments, err := store.Comments.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(res.Comments), comments)

	list, err := store.Messages.List(ctx, ranking.Newest, 100, 0)
	require.NoError(t, err)
	totalLikes := 0
	for _, m := range list {
		assert.NotEmpty(t, strings.TrimSpace(m.Content))
		assert.LessOrEqual(t, utf8.RuneCountInString(m.Content), models.MaxContentLength)

		recorded, err := store.Likes.CountMessageLikes(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(m.Likes), recorded, "likes counter must match like records")
		totalLikes += m.Likes
	}
	assert.Equal(t, res.MessageLikes, totalLikes)
}

func TestSeed_CommentsFollowParent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := NewSeeder(store, 7)

	opts := DefaultOptions()
	opts.Messages = 5
	opts.MaxComments = 4
	opts.AutomatedRatio = 1
	_, err := s.Seed(ctx, opts)
	require.NoError(t, err)

	list, err := store.Messages.List(ctx, ranking.Newest, 100, 0)
	require.NoError(t, err)
	for _, m := range list {
		comments, err := store.Comments.ListByMessage(ctx, m.ID)
		require.NoError(t, err)
		for _, c := range comments {
			assert.False(t, c.CreatedAt.Before(m.CreatedAt))
			assert.True(t, c.IsAutomated)
			require.NotNil(t, c.AuthorLabel)
		}
	}
}

func TestSeed_Clean(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := NewSeeder(store, 1)

	opts := DefaultOptions()
	opts.Messages = 3
	_, err := s.Seed(ctx, opts)
	require.NoError(t, err)

	opts.Messages = 2
	opts.Clean = true
	res, err := s.Seed(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Removed)

	count, err := store.Messages.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSeed_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSeeder(repository.NewMemoryStore(), 1).Seed(ctx, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))
	assert.Equal(t, models.MaxContentLength, utf8.RuneCountInString(clip(strings.Repeat("é", 600))))
}
