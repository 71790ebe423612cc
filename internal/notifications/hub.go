// Package notifications keeps the registry of live-channel connections and
// fans out change notifications to them.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"whisperwall/internal/observability"

	"github.com/fasthttp/websocket"
)

// DefaultMaxConnections caps the registry when no limit is configured.
const DefaultMaxConnections = 10000

var (
	// ErrHubFull is returned by Register when the connection limit is reached.
	ErrHubFull = errors.New("server connection limit reached")
	// ErrHubClosed is returned by Register after Shutdown.
	ErrHubClosed = errors.New("hub is shut down")

	errClientClosed = errors.New("client closed")
)

// Hub is the registry of open live-channel clients. It is safe for
// concurrent use and is owned by the server that creates it.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
	logger   *observability.WSLogger
}

// NewHub creates a Hub holding at most maxConns clients.
func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxConns,
		logger:   observability.NewWSLogger("board"),
	}
}

// Register adds conn to the registry and opens its client.
func (h *Hub) Register(conn Conn) (*Client, error) {
	client := newClient(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		return nil, ErrHubFull
	}
	h.clients[client] = struct{}{}
	client.state.Store(int32(StateOpen))
	total := len(h.clients)
	h.mu.Unlock()

	observability.WebSocketConnections.Set(float64(total))
	h.logger.LogConnect(context.Background(), client.ID, total)
	return client, nil
}

// UnregisterClient removes c and closes its connection. Calling it more than
// once is harmless.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister(c, "closed")
}

func (h *Hub) unregister(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if !c.markClosed() {
		return
	}
	_ = c.conn.Close()

	if ok {
		observability.WebSocketConnections.Set(float64(total))
		h.logger.LogDisconnect(context.Background(), c.ID, reason, total)
	}
}

// Count returns the number of open clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Publish sends evt to every open client. It never fails the caller.
func (h *Hub) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		observability.GlobalLogger.Error("failed to marshal event",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.BroadcastEvents.WithLabelValues(string(evt.Type)).Inc()
	h.BroadcastAll(data)
}

// BroadcastAll queues message for every open client and returns how many
// accepted it.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients {
		if c.TrySend(message) {
			delivered++
			continue
		}
		h.logger.LogDeliveryFailure(context.Background(), c.ID, "buffer_full")
	}
	return delivered
}

// Shutdown sends a going-away close frame to every client and empties the
// registry. Later Register calls fail.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, c := range h.snapshot() {
		if err := c.writeControl(websocket.CloseMessage, closeMsg); err != nil && !errors.Is(err, errClientClosed) {
			h.logger.LogDeliveryFailure(context.Background(), c.ID, "close_frame")
		}
		h.unregister(c, "shutdown")
	}
	return nil
}
