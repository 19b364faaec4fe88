// Package metrics exposes task runner and HTTP metrics in the Prometheus
// exposition format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gamegen"

// Metrics holds all Prometheus metrics. It implements task.MetricsRecorder.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	tasksSubmitted prometheus.Counter
	tasksResolved  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec

	// Gauges
	tasksInFlight prometheus.Gauge

	// Histograms
	generationDuration prometheus.Histogram
}

// New creates the metrics and registers them, plus the Go runtime and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_submitted_total",
				Help:      "Total number of generation tasks accepted",
			},
		),
		tasksResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_resolved_total",
				Help:      "Total number of tasks that reached a terminal status",
			},
			[]string{"status"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP responses by route and status code",
			},
			[]string{"route", "code"},
		),
		tasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tasks_in_flight",
				Help:      "Number of tasks currently being generated",
			},
		),
		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Backend generation latency in seconds",
				Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
	}

	m.registry.MustRegister(
		m.tasksSubmitted,
		m.tasksResolved,
		m.httpRequests,
		m.tasksInFlight,
		m.generationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// TaskSubmitted counts an accepted submission.
func (m *Metrics) TaskSubmitted() {
	m.tasksSubmitted.Inc()
}

// TaskResolved counts a terminal transition.
func (m *Metrics) TaskResolved(status domain.TaskStatus) {
	m.tasksResolved.WithLabelValues(string(status)).Inc()
}

// GenerationObserved records backend latency.
func (m *Metrics) GenerationObserved(elapsed time.Duration) {
	m.generationDuration.Observe(elapsed.Seconds())
}

// InFlightChanged adjusts the in-flight gauge.
func (m *Metrics) InFlightChanged(delta int) {
	m.tasksInFlight.Add(float64(delta))
}

// ObserveHTTP counts one HTTP response.
func (m *Metrics) ObserveHTTP(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
