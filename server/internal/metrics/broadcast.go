package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasons used for the skip and failure label values.
const (
	ReasonSource   = "source"
	ReasonSnapshot = "snapshot"
	ReasonEncode   = "encode"
	ReasonGone     = "gone"
	ReasonFailed   = "failed"
)

// BroadcastMetrics holds Prometheus metrics for the tick loop.
type BroadcastMetrics struct {
	Ticks        prometheus.Counter
	TicksSkipped *prometheus.CounterVec
	SendAttempts prometheus.Counter
	SendFailures *prometheus.CounterVec
	TickDuration prometheus.Histogram
	Azimuth      prometheus.Gauge
	Elevation    prometheus.Gauge
}

// NewBroadcastMetrics creates and registers broadcaster metrics on the given registry.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	m := &BroadcastMetrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "ticks_total",
			Help:      "Total number of broadcast ticks.",
		}),
		TicksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "ticks_skipped_total",
			Help:      "Ticks that delivered nothing, by reason.",
		}, []string{"reason"}),
		SendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "send_attempts_total",
			Help:      "Total number of per-connection send attempts.",
		}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "send_failures_total",
			Help:      "Per-connection send failures, by reason.",
		}, []string{"reason"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "tick_duration_seconds",
			Help:      "Time spent producing and fanning out one sample.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		Azimuth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "azimuth_degrees",
			Help:      "Azimuth of the last broadcast sample.",
		}),
		Elevation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elevation_degrees",
			Help:      "Elevation of the last broadcast sample.",
		}),
	}

	reg.MustRegister(m.Ticks, m.TicksSkipped, m.SendAttempts, m.SendFailures,
		m.TickDuration, m.Azimuth, m.Elevation)
	return m
}
