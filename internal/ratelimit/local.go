package ratelimit

import (
	"context"
	"sync"
	"time"

	"whisperwall/internal/config"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process pool of token buckets, one per origin.
type LocalLimiter struct {
	mu            sync.Mutex
	m             map[string]*limiterEntry
	limit         rate.Limit
	ttl           time.Duration
	cleanupPeriod time.Duration
	startCleanup  sync.Once
	stopOnce      sync.Once
	stopCh        chan struct{}
}

// NewLocalLimiter returns a LocalLimiter allowing one message per interval.
func NewLocalLimiter(interval time.Duration) *LocalLimiter {
	ttl := 10 * time.Minute
	if interval > ttl {
		ttl = interval
	}
	return &LocalLimiter{
		m:             make(map[string]*limiterEntry),
		limit:         rate.Every(interval),
		ttl:           ttl,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
	}
}

func (p *LocalLimiter) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() {
		go p.cleanupLoop()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = time.Now()
		return e.l
	}

	l := rate.NewLimiter(p.limit, 1)
	p.m[key] = &limiterEntry{l: l, lastSeen: time.Now()}
	return l
}

func (p *LocalLimiter) Allow(_ context.Context, origin string) (bool, error) {
	return p.get(origin).Allow(), nil
}

func (p *LocalLimiter) Mode() string { return config.RateLimitLocal }

// Size returns the number of tracked origins.
func (p *LocalLimiter) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Shutdown stops the cleanup goroutine.
func (p *LocalLimiter) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *LocalLimiter) sweep(cutoff time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}

// cleanupLoop removes limiters unused > TTL.
func (p *LocalLimiter) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep(time.Now().Add(-p.ttl))
		case <-p.stopCh:
			return
		}
	}
}
