package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the monitoring pipeline.
type Metrics struct {
	ChecksTotal *prometheus.CounterVec
	PassesTotal prometheus.Counter
}

func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_checks_total",
			Help: "Completed monitor checks by outcome",
		}, []string{"outcome"}), // ok, fetch_error, extract_error, not_found
		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_scheduler_passes_total",
			Help: "Scheduler passes that ran to completion",
		}),
	}
}

func (m *Metrics) IncCheck(outcome string) {
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}
