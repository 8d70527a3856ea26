package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the viewer
// sessions and the generation endpoint.
type Metrics struct {
	// Client session metrics.
	SessionsStarted    prometheus.Counter
	SessionOutcomes    *prometheus.CounterVec // labels: outcome={succeeded,failed,transport_failed,superseded}
	StreamEvents       *prometheus.CounterVec // labels: kind={progress,failure,success}
	StaleEventsDropped prometheus.Counter
	StatusTransitions  prometheus.Counter

	// Server generation metrics.
	Generations         *prometheus.CounterVec   // labels: product, outcome={success,error,invalid}
	GenerationDuration  *prometheus.HistogramVec // labels: product
	GenerationsInFlight prometheus.Gauge
	RecordPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SessionsStarted,
		m.SessionOutcomes,
		m.StreamEvents,
		m.StaleEventsDropped,
		m.StatusTransitions,
		m.Generations,
		m.GenerationDuration,
		m.GenerationsInFlight,
		m.RecordPublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "sessions_started_total",
			Help:      "Generation sessions opened by the viewer.",
		}),
		SessionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "session_outcomes_total",
			Help:      "Finished generation sessions by outcome.",
		}, []string{"outcome"}),
		StreamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "stream_events_total",
			Help:      "Stream events handled by the viewer, by kind.",
		}, []string{"kind"}),
		StaleEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "stale_events_dropped_total",
			Help:      "Deliveries ignored because their session was closed or superseded.",
		}),
		StatusTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "status_transitions_total",
			Help:      "Status label fade transitions started.",
		}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "generations_total",
			Help:      "Server-side generations by product and outcome.",
		}, []string{"product", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lightmap",
			Name:      "generation_duration_seconds",
			Help:      "Duration of a server-side generation stream.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"product"}),
		GenerationsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightmap",
			Name:      "generations_in_flight",
			Help:      "Generation streams currently open on the server.",
		}),
		RecordPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightmap",
			Name:      "record_publish_errors_total",
			Help:      "Generation audit records that could not be published.",
		}),
	}
}
