package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type EnrichmentMetrics struct {
	registry *prometheus.Registry

	scheduledTotal prometheus.Counter
	finishedTotal  *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

// NewEnrichmentMetrics builds the enrichment collectors. When registry is
// nil a private one is created and Handler serves it; pass the HTTP server
// registry to share a single /metrics endpoint.
func NewEnrichmentMetrics(service string, registry *prometheus.Registry) *EnrichmentMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	scheduledTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "enrichment",
			Name:      "tasks_scheduled_total",
			Help:      "Total enrichment tasks scheduled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	finishedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "enrichment",
			Name:      "tasks_finished_total",
			Help:      "Total finished enrichment tasks by outcome.",
		},
		[]string{"service", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grievance",
			Subsystem: "enrichment",
			Name:      "task_duration_seconds",
			Help:      "Enrichment task duration in seconds by outcome, delay included.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "outcome"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "grievance",
			Subsystem: "enrichment",
			Name:      "tasks_in_flight",
			Help:      "Number of pending or running enrichment tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(scheduledTotal, finishedTotal, duration, inFlight)

	return &EnrichmentMetrics{
		registry:       registry,
		scheduledTotal: scheduledTotal,
		finishedTotal:  finishedTotal,
		duration:       duration,
		inFlight:       inFlight,
	}
}

func (m *EnrichmentMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EnrichmentMetrics) StartTask() {
	m.scheduledTotal.Inc()
	m.inFlight.Inc()
}

func (m *EnrichmentMetrics) FinishTask(service, outcome string, took time.Duration) {
	m.inFlight.Dec()

	if outcome == "" {
		outcome = "unknown"
	}
	m.finishedTotal.WithLabelValues(service, outcome).Inc()
	m.duration.WithLabelValues(service, outcome).Observe(took.Seconds())
}

// Observer adapts FinishTask to the enrichment pipeline's outcome hook.
func (m *EnrichmentMetrics) Observer(service string) func(outcome string, took time.Duration) {
	return func(outcome string, took time.Duration) {
		m.FinishTask(service, outcome, took)
	}
}
