package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for the connection registry.
type WebSocketMetrics struct {
	ActiveConnections  prometheus.Gauge
	ConnectionsTotal   prometheus.Counter
	UpgradesRejected   prometheus.Counter
	SlowClientsEvicted prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of open WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "Total number of accepted WebSocket connections.",
		}),
		UpgradesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "upgrades_rejected_total",
			Help:      "Total number of rejected WebSocket upgrade requests.",
		}),
		SlowClientsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_clients_evicted_total",
			Help:      "Total number of clients disconnected because their send buffer was full.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsTotal, m.UpgradesRejected, m.SlowClientsEvicted)
	return m
}
