// Package metrics defines the Prometheus collectors exported by
// rotator-server and the handler that serves them.
//
// Collectors are grouped per concern (WebSocketMetrics, BroadcastMetrics) and
// registered on an injected prometheus.Registerer so tests can use a fresh
// registry each time.
package metrics
