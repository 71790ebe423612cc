package notifications

import (
	"sync"
	"sync/atomic"
	"time"

	"whisperwall/internal/observability"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Inbound frames are discarded.
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Conn is the subset of a websocket connection the hub drives. Both the
// fiber and gorilla connection types satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// State is a connection's lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	ID string

	hub  *Hub
	conn Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	state atomic.Int32
	// alive is cleared by each probe and set by the pong that answers it.
	alive atomic.Bool
	// stale marks a client that missed a delivery; the next probe closes it.
	stale atomic.Bool

	// ctrlMu serializes control frames with the transition to Closed.
	ctrlMu     sync.Mutex
	done       chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}
}

func newClient(hub *Hub, conn Conn) *Client {
	c := &Client{
		ID:         uuid.NewString(),
		hub:        hub,
		conn:       conn,
		Send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	c.alive.Store(true)
	return c
}

// State returns the client's lifecycle stage.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Done is closed when the client leaves the registry.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump reads until the connection fails. Inbound frames are ignored;
// reading is what drives pong handling.
func (c *Client) ReadPump() {
	defer c.hub.unregister(c, "read_closed")

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(c.handlePong)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				observability.GlobalLogger.Debug("websocket read error", "client_id", c.ID, "error", err.Error())
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	defer close(c.writerDone)

	for {
		select {
		case message := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.unregister(c, "write_error")
				return
			}
		case <-c.done:
			return
		}
	}
}

// Wait blocks until WritePump has returned. Connection handlers call it
// before giving the connection back to the server.
func (c *Client) Wait() {
	<-c.writerDone
}

// TrySend queues message without blocking. A full buffer drops the message
// and marks the client for removal at the next probe.
func (c *Client) TrySend(message []byte) bool {
	if c.State() != StateOpen {
		observability.WebSocketDrops.WithLabelValues("closed").Inc()
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		c.stale.Store(true)
		observability.WebSocketDrops.WithLabelValues("buffer_full").Inc()
		return false
	}
}

func (c *Client) handlePong(string) error {
	c.alive.Store(true)
	return nil
}

// writeControl sends a control frame unless the client already closed.
func (c *Client) writeControl(messageType int, data []byte) error {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.State() != StateOpen {
		return errClientClosed
	}
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// markClosed moves the client to Closed. It reports false if it already was.
func (c *Client) markClosed() bool {
	c.ctrlMu.Lock()
	prev := State(c.state.Swap(int32(StateClosed)))
	c.ctrlMu.Unlock()
	if prev == StateClosed {
		return false
	}
	c.closeOnce.Do(func() { close(c.done) })
	return true
}
