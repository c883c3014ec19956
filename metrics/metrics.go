// Package metrics exposes the listener's runtime counters as
// Prometheus gauges/counters, in the same declarative style as
// cuemby/warren's pkg/metrics: package-level collectors, registered
// once at process start and updated in place by callers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ConnectedPeers is the number of peers currently installed in a
	// listener's peer table.
	ConnectedPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peerlink_connected_peers",
			Help: "Number of peers currently connected to the listener.",
		},
	)

	// ActiveSubscriptions is the number of open subscription
	// pipelines across all connected peers.
	ActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peerlink_active_subscriptions",
			Help: "Number of open subscription pipelines across all peers.",
		},
	)

	// MessagesProcessed counts inbound messages dispatched through
	// the interceptor chain, labeled by the classified event kind.
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerlink_messages_processed_total",
			Help: "Inbound messages dispatched through the interceptor chain.",
		},
		[]string{"kind"},
	)

	// HandlerErrors counts chain errors surfaced to the response
	// writer, labeled by the classified event kind.
	HandlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerlink_handler_errors_total",
			Help: "Chain errors surfaced to the response writer.",
		},
		[]string{"kind"},
	)
)

// MustRegister registers every collector in this package against reg.
// Callers that don't want global metrics at all simply never call it.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ConnectedPeers, ActiveSubscriptions, MessagesProcessed, HandlerErrors)
}
