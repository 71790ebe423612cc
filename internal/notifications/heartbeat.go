package notifications

import (
	"context"
	"sync"
	"time"

	"whisperwall/internal/observability"

	"github.com/fasthttp/websocket"
)

// DefaultPingInterval is how often the liveness probe runs.
const DefaultPingInterval = 30 * time.Second

// Heartbeat pings every open client each interval and closes those that did
// not answer the previous ping.
type Heartbeat struct {
	hub      *Hub
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewHeartbeat creates a probe over hub.
func NewHeartbeat(hub *Hub, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	return &Heartbeat{
		hub:      hub,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the probe loop until Stop is called or ctx ends.
func (hb *Heartbeat) Start(ctx context.Context) {
	hb.startOnce.Do(func() {
		go hb.loop(ctx)
	})
}

// Stop ends the probe loop. It is safe to call more than once, and before Start.
func (hb *Heartbeat) Stop() {
	hb.stopOnce.Do(func() {
		close(hb.stopCh)
	})
}

func (hb *Heartbeat) loop(ctx context.Context) {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hb.ProbeOnce()
		case <-hb.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProbeOnce runs one liveness cycle and returns how many clients it closed.
func (hb *Heartbeat) ProbeOnce() int {
	terminated := 0
	for _, c := range hb.hub.snapshot() {
		if c.stale.Load() || !c.alive.Swap(false) {
			hb.terminate(c, "heartbeat_timeout")
			terminated++
			continue
		}
		if err := c.writeControl(websocket.PingMessage, nil); err != nil {
			hb.terminate(c, "ping_failed")
			terminated++
		}
	}
	return terminated
}

func (hb *Heartbeat) terminate(c *Client, reason string) {
	observability.HeartbeatTerminations.Inc()
	hb.hub.unregister(c, reason)
}
