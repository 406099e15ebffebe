package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process prometheus registry. All recording methods are
// nil-receiver safe so callers can run without metrics wired.
type Metrics struct {
	registry *prometheus.Registry

	breakerState       *prometheus.GaugeVec
	breakerCalls       *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec

	degradationLevel       prometheus.Gauge
	degradationTransitions *prometheus.CounterVec

	alertsDelivered prometheus.Counter
	alertsDropped   prometheus.Counter

	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "faultline_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"name"}),
		breakerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_breaker_calls_total",
			Help: "Calls per breaker, labelled by outcome.",
		}, []string{"name", "outcome"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_breaker_transitions_total",
			Help: "Breaker state transitions, labelled by target state.",
		}, []string{"name", "to"}),
		degradationLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "faultline_degradation_level",
			Help: "Current degradation level (0 normal .. 4 emergency).",
		}),
		degradationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_degradation_transitions_total",
			Help: "Degradation level changes, labelled by direction.",
		}, []string{"direction"}),
		alertsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faultline_alerts_delivered_total",
			Help: "Alerts handed to the sink.",
		}),
		alertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "faultline_alerts_dropped_total",
			Help: "Alerts dropped because the dispatch pool was full.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faultline_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		m.breakerState,
		m.breakerCalls,
		m.breakerTransitions,
		m.degradationLevel,
		m.degradationTransitions,
		m.alertsDelivered,
		m.alertsDropped,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) RemoveBreaker(name string) {
	if m == nil {
		return
	}
	m.breakerState.DeleteLabelValues(name)
}

func (m *Metrics) ObserveBreakerCall(name, outcome string) {
	if m == nil {
		return
	}
	m.breakerCalls.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) ObserveBreakerTransition(name, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.WithLabelValues(name, to).Inc()
}

func (m *Metrics) SetDegradationLevel(level int) {
	if m == nil {
		return
	}
	m.degradationLevel.Set(float64(level))
}

func (m *Metrics) ObserveDegradationTransition(direction string) {
	if m == nil {
		return
	}
	m.degradationTransitions.WithLabelValues(direction).Inc()
}

func (m *Metrics) AlertDelivered() {
	if m == nil {
		return
	}
	m.alertsDelivered.Inc()
}

func (m *Metrics) AlertDropped() {
	if m == nil {
		return
	}
	m.alertsDropped.Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
