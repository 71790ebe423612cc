package service

import (
	"sync"
	"testing"

	"whisperwall/internal/database"
	"whisperwall/internal/models"
	"whisperwall/internal/notifications"
	"whisperwall/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stores = []struct {
	name string
	open func(t *testing.T) *repository.Store
}{
	{"memory", func(t *testing.T) *repository.Store { return repository.NewMemoryStore() }},
	{"sqlite", func(t *testing.T) *repository.Store {
		db, err := database.OpenSQLite(":memory:")
		require.NoError(t, err)
		s := repository.NewGormStore(db)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store *repository.Store)) {
	for _, s := range stores {
		t.Run(s.name, func(t *testing.T) {
			fn(t, s.open(t))
		})
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(evt notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

func newMessage(content string) *models.Message {
	return &models.Message{Content: content}
}
