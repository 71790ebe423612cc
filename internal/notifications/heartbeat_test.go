package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat_PingThenTerminateUnanswered(t *testing.T) {
	hub := NewHub(0)
	conn := newFakeConn()
	c, err := hub.Register(conn)
	require.NoError(t, err)
	hb := NewHeartbeat(hub, time.Hour)

	assert.Equal(t, 0, hb.ProbeOnce())
	assert.Equal(t, []int{websocket.PingMessage}, conn.controlFrames())

	assert.Equal(t, 1, hb.ProbeOnce())
	assert.Equal(t, StateClosed, c.State())
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, hub.Count())
}

func TestHeartbeat_PongKeepsClientAlive(t *testing.T) {
	hub := NewHub(0)
	conn := newFakeConn()
	c, err := hub.Register(conn)
	require.NoError(t, err)
	hb := NewHeartbeat(hub, time.Hour)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, hb.ProbeOnce())
		require.NoError(t, c.handlePong(""))
	}
	assert.Equal(t, StateOpen, c.State())
	assert.Len(t, conn.controlFrames(), 3)
}

func TestHeartbeat_PingFailureTerminates(t *testing.T) {
	hub := NewHub(0)
	conn := newFakeConn()
	conn.pingErr = errors.New("reset by peer")
	_, err := hub.Register(conn)
	require.NoError(t, err)

	hb := NewHeartbeat(hub, time.Hour)
	assert.Equal(t, 1, hb.ProbeOnce())
	assert.Equal(t, 0, hub.Count())
}

func TestHeartbeat_LoopRunsAndStops(t *testing.T) {
	hub := NewHub(0)
	_, err := hub.Register(newFakeConn())
	require.NoError(t, err)

	hb := NewHeartbeat(hub, 5*time.Millisecond)
	hb.Start(context.Background())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, testEventuallyTimeout, testPollInterval)

	hb.Stop()
	hb.Stop()
}

func TestHeartbeat_StopBeforeStart(t *testing.T) {
	hb := NewHeartbeat(NewHub(0), 0)
	assert.Equal(t, DefaultPingInterval, hb.interval)
	hb.Stop()
	hb.Start(context.Background())
}
