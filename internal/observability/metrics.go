package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperwall_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnections is the gauge of open live-channel connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whisperwall_websocket_connections",
		Help: "Number of open live-channel connections",
	})

	// BroadcastEvents counts events published to the live channel by type.
	BroadcastEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperwall_broadcast_events_total",
		Help: "Total number of events broadcast by type",
	}, []string{"type"})

	// WebSocketDrops counts messages not delivered to a client, by reason.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperwall_websocket_drops_total",
		Help: "Total number of live-channel messages dropped",
	}, []string{"reason"})

	// HeartbeatTerminations counts connections closed by the liveness probe.
	HeartbeatTerminations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whisperwall_heartbeat_terminations_total",
		Help: "Total number of connections closed for missing a liveness probe",
	})

	// LikesRejected counts likes refused because the session already liked the target.
	LikesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperwall_likes_rejected_total",
		Help: "Total number of duplicate likes rejected by target kind",
	}, []string{"target"})

	// RateLimited counts message submissions refused by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whisperwall_rate_limited_total",
		Help: "Total number of submissions refused by the rate limiter",
	}, []string{"mode"})
)
