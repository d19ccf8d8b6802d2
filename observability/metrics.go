package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oneshot"

// Metrics collects Prometheus metrics for request execution and async
// dispatch.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
	bodyReadErrors  prometheus.Counter

	dispatched   *prometheus.CounterVec
	inflight     *prometheus.GaugeVec
	panics       *prometheus.CounterVec
	queueDepth   prometheus.Gauge
	queueLatency prometheus.Histogram
}

// NewMetrics registers the collectors with reg. If reg is nil the default
// Prometheus registerer is used, so only one such Metrics may exist per
// process; pass a fresh [prometheus.Registry] in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests that produced a response, by method and status class.",
			},
			[]string{"method", "class"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from dial to response headers.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method"},
		),
		transportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_errors_total",
				Help:      "Requests that failed before a response was received.",
			},
			[]string{"method", "timeout"},
		),
		bodyReadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "body_read_errors_total",
				Help:      "Body reads that failed and were reported as empty.",
			},
		),
		dispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "tasks_total",
				Help:      "Tasks accepted, by dispatch policy.",
			},
			[]string{"policy"},
		),
		inflight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "inflight",
				Help:      "Tasks currently running, by dispatch policy.",
			},
			[]string{"policy"},
		),
		panics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "panics_total",
				Help:      "Tasks that panicked and were recovered.",
			},
			[]string{"policy"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "queue_depth",
				Help:      "Tasks waiting for a pool worker.",
			},
		),
		queueLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "queue_wait_seconds",
				Help:      "Time tasks spend queued before a worker picks them up.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
	}
}

// RecordResponse records a request that received a response.
func (m *Metrics) RecordResponse(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, StatusClass(code)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordTransportError records a request that failed in the transport.
func (m *Metrics) RecordTransportError(method string, timeout bool) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(method, strconv.FormatBool(timeout)).Inc()
}

// RecordBodyReadError records a swallowed body read failure.
func (m *Metrics) RecordBodyReadError() {
	if m == nil {
		return
	}
	m.bodyReadErrors.Inc()
}

// TaskStarted marks a task as accepted and running under policy.
func (m *Metrics) TaskStarted(policy string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(policy).Inc()
	m.inflight.WithLabelValues(policy).Inc()
}

// TaskFinished marks a task under policy as done.
func (m *Metrics) TaskFinished(policy string, panicked bool) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(policy).Dec()
	if panicked {
		m.panics.WithLabelValues(policy).Inc()
	}
}

// SetQueueDepth reports the number of tasks waiting in a pool.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ObserveQueueWait records how long a task waited for a worker.
func (m *Metrics) ObserveQueueWait(d time.Duration) {
	if m == nil {
		return
	}
	m.queueLatency.Observe(d.Seconds())
}

// StatusClass buckets a status code into "1xx" ... "5xx", or "unknown".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
