package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each instance carries
// its own registry so multiple instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	ConnectedClients  prometheus.Gauge
	ActiveSessions    prometheus.Gauge
	SessionsStarted   prometheus.Counter
	SessionFailures   prometheus.Counter
	LinesBroadcast    prometheus.Counter
	DroppedDeliveries prometheus.Counter
}

// New creates and registers the service collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "podlogs_connected_clients",
			Help: "Number of websocket clients currently connected.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "podlogs_active_sessions",
			Help: "Number of log streaming sessions currently running.",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "podlogs_sessions_started_total",
			Help: "Total number of log streaming sessions started.",
		}),
		SessionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "podlogs_session_failures_total",
			Help: "Total number of sessions that ended with a source failure.",
		}),
		LinesBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Name: "podlogs_lines_broadcast_total",
			Help: "Total number of log lines broadcast to rooms.",
		}),
		DroppedDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "podlogs_dropped_deliveries_total",
			Help: "Total number of deliveries dropped because a client could not keep up.",
		}),
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
