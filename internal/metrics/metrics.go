package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the subsystem's Prometheus collectors. One instance is
// shared through Fx.
type Metrics struct {
	MigrationsTotal   *prometheus.CounterVec
	RetryQueueDepth   prometheus.Gauge
	HealthProbesTotal *prometheus.CounterVec
	PoolCapacityFree  prometheus.Gauge
}

// NewMetrics registers the collectors on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on a caller-provided registry. Tests pass a
// fresh registry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MigrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicepool",
			Name:      "migrations_total",
			Help:      "Resource migrations by outcome.",
		}, []string{"outcome"}),
		RetryQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicepool",
			Name:      "retry_queue_pending",
			Help:      "Pending migration attempts awaiting replay.",
		}),
		HealthProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicepool",
			Name:      "health_probes_total",
			Help:      "Credential health probes by resulting status.",
		}, []string{"status"}),
		PoolCapacityFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicepool",
			Name:      "pool_capacity_free",
			Help:      "Sum of unassigned agent slots across selectable credentials.",
		}),
	}

	reg.MustRegister(m.MigrationsTotal, m.RetryQueueDepth, m.HealthProbesTotal, m.PoolCapacityFree)
	return m
}
