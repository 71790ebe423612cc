package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"whisperwall/internal/observability"
	"whisperwall/internal/repository"

	"github.com/adhocore/gronx"
)

// Pruner deletes stale rate limit records on a cron schedule.
type Pruner struct {
	repo      repository.RateLimitRepository
	cron      string
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	running bool
}

// NewPruner returns a Pruner removing records older than retention each time
// cron fires.
func NewPruner(repo repository.RateLimitRepository, cron string, retention time.Duration) *Pruner {
	return &Pruner{
		repo:      repo,
		cron:      cron,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the schedule until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.cron == "" {
		return
	}
	observability.GlobalLogger.Info("rate limit pruner enabled", slog.String("cron", p.cron))
	go p.scheduleLoop(ctx)
}

func (p *Pruner) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(p.cron, p.now(), false)
		if err != nil {
			observability.GlobalLogger.Error("rate limit prune schedule failed",
				slog.String("cron", p.cron),
				slog.String("error", err.Error()),
			)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := next.Sub(p.now())
		if wait <= 0 {
			wait = time.Second
		}

		select {
		case <-time.After(wait):
			p.runJob(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pruner) runJob(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if _, err := p.RunOnce(ctx); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "rate limit prune failed", slog.String("error", err.Error()))
	}
}

// RunOnce deletes records older than the retention and reports how many.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	n, err := p.repo.PruneBefore(ctx, p.now().Add(-p.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.GlobalLogger.InfoContext(ctx, "rate limit records pruned", slog.Int64("count", n))
	}
	return n, nil
}
