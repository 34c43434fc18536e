package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dtn_ai_router"

// Metrics tracks dispatch outcomes, handler latency and pool occupancy.
//
// Metrics:
//   - dtn_ai_router_requests_total: dispatches by model and outcome
//   - dtn_ai_router_handler_duration_seconds: handler wall time by model
//   - dtn_ai_router_pool_in_flight: handler invocations currently running
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	poolInFlight    prometheus.Gauge
}

// NewMetrics creates and registers the router metrics with registry.
// A nil registry gets a fresh one that also carries the Go and process collectors.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of dispatched requests by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Handler invocation latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model"},
		),
		poolInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_in_flight",
				Help:      "Handler invocations currently running on the execution pool",
			},
		),
	}

	registry.MustRegister(m.requests, m.handlerDuration, m.poolInFlight)

	return m
}

// RecordDispatch counts one finished dispatch.
// model must come from the registry; the dispatcher labels unregistered ids as "unresolved".
func (m *Metrics) RecordDispatch(model, outcome string) {
	m.requests.WithLabelValues(model, outcome).Inc()
}

// ObserveHandler records how long a handler invocation took
func (m *Metrics) ObserveHandler(model string, elapsed time.Duration) {
	m.handlerDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// AddPoolInFlight moves the in-flight gauge by delta; it matches the pool observer signature
func (m *Metrics) AddPoolInFlight(delta int64) {
	m.poolInFlight.Add(float64(delta))
}

// Handler returns the Prometheus exposition handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
