// Package metrics provides Prometheus metrics for the publishing engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the engine
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	BatchItemsTotal    *prometheus.CounterVec
	JobRunsTotal       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_transitions_total",
				Help: "Total number of requested publishing transitions",
			},
			[]string{"family", "action", "outcome"},
		),
		TransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_transition_duration_seconds",
				Help:    "Duration of publishing transitions in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"action"},
		),
		BatchItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_batch_items_total",
				Help: "Total number of items processed by batch operations",
			},
			[]string{"operation", "outcome"},
		),
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_job_runs_total",
				Help: "Total number of scheduled job runs",
			},
			[]string{"job", "outcome"},
		),
	}
}

// ObserveTransition records one transition. outcome is "ok" or an error reason code.
func (m *Metrics) ObserveTransition(family, action, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(family, action, outcome).Inc()
	m.TransitionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveBatchItem(operation, outcome string) {
	if m == nil {
		return
	}
	m.BatchItemsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveJobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, outcome).Inc()
}
