// Package metrics provides Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects gateway-level counters and gauges.
type Metrics struct {
	// ActiveConnections tracks currently registered connections.
	ActiveConnections prometheus.Gauge

	// Connects counts accepted connections.
	Connects prometheus.Counter

	// Disconnects counts connection removals by cause (graceful|abnormal|expired).
	Disconnects *prometheus.CounterVec

	// RejectedConnections counts connect attempts aborted for missing claims.
	RejectedConnections prometheus.Counter

	// Deliveries counts outbound events by type.
	Deliveries *prometheus.CounterVec

	// Denials counts access denials by operation (join_group|stats).
	Denials *prometheus.CounterVec

	// Heartbeats counts recorded heartbeat signals.
	Heartbeats prometheus.Counter

	// RecoveryRequests counts client-initiated recovery handshakes.
	RecoveryRequests prometheus.Counter
}

// New registers the gateway metrics on the given registerer. Passing nil
// uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_active_connections",
			Help: "Number of currently registered connections.",
		}),
		Connects: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_connects_total",
			Help: "Total accepted connections.",
		}),
		Disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_disconnects_total",
			Help: "Total connection removals by cause.",
		}, []string{"cause"}),
		RejectedConnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rejected_connections_total",
			Help: "Total connect attempts aborted for missing identity claims.",
		}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_deliveries_total",
			Help: "Total outbound events delivered, by event type.",
		}, []string{"event"}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_access_denials_total",
			Help: "Total access denials, by operation.",
		}, []string{"operation"}),
		Heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_heartbeats_total",
			Help: "Total heartbeat signals recorded.",
		}),
		RecoveryRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_recovery_requests_total",
			Help: "Total connection recovery handshakes initiated.",
		}),
	}
}
