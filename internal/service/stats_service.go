package service

import (
	"context"
	"time"

	"whisperwall/internal/cache"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"
)

// StatsService computes board totals, cached for a short TTL when Redis is
// available.
type StatsService struct {
	store *repository.Store
	cache *cache.Cache
	ttl   time.Duration
}

func NewStatsService(store *repository.Store, c *cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{store: store, cache: c, ttl: ttl}
}

// GetStats returns the message, comment and combined totals.
func (s *StatsService) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.cache.Aside(ctx, cache.StatsKey, &stats, s.ttl, func() error {
		messages, err := s.store.Messages.Count(ctx)
		if err != nil {
			return err
		}
		comments, err := s.store.Comments.Count(ctx)
		if err != nil {
			return err
		}
		stats = models.Stats{
			TotalMessages: messages,
			TotalComments: comments,
			Total:         messages + comments,
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "Stats", "")
	}
	return &stats, nil
}

// Invalidate drops the cached totals after a mutation.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.Invalidate(ctx, cache.StatsKey)
}
