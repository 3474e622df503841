// Package metrics provides Prometheus metrics collection for the relay
// service: HTTP ops endpoints and the message-handling pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "relay"

// Message pipeline outcome labels.
const (
	OutcomeReplied     = "replied"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "failed"
)

// Metrics provides Prometheus metrics collection for the relay service.
type Metrics struct {
	reg *prometheus.Registry
	mu  sync.Mutex

	TotalHTTPRequestsCounter prometheus.Counter
	httpRequestsCounters     map[int]prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	MessagesCounter             *prometheus.CounterVec
	CompletionDurationHistogram prometheus.Histogram
	CompletionRetriesCounter    prometheus.Counter
	ProviderErrorsCounter       *prometheus.CounterVec
	ActiveSessionsGauge         prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		reg:                  prometheus.NewRegistry(),
		httpRequestsCounters: make(map[int]prometheus.Counter),
	}

	m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_http_requests",
		Help:      "Total HTTP requests",
	})
	m.reg.MustRegister(m.TotalHTTPRequestsCounter)

	m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 3.0},
	})
	m.reg.MustRegister(m.HTTPDurationHistogram)

	m.MessagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "messages_total",
		Help:      "Inbound messages handled, partitioned by outcome",
	}, []string{"outcome"})
	m.reg.MustRegister(m.MessagesCounter)

	m.CompletionDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "completion_duration_seconds",
		Help:      "Completion provider call duration in seconds",
		Buckets:   []float64{0.1, 0.3, 0.5, 1.0, 3.0, 5.0, 10.0, 30.0},
	})
	m.reg.MustRegister(m.CompletionDurationHistogram)

	m.CompletionRetriesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "completion_retries_total",
		Help:      "Completion attempts retried after a transient failure",
	})
	m.reg.MustRegister(m.CompletionRetriesCounter)

	m.ProviderErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "provider_errors_total",
		Help:      "Completion provider errors, partitioned by class",
	}, []string{"class"})
	m.reg.MustRegister(m.ProviderErrorsCounter)

	m.ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory",
	})
	m.reg.MustRegister(m.ActiveSessionsGauge)

	return m
}

// ObserveMessage records the outcome of one inbound message.
func (m *Metrics) ObserveMessage(outcome string) {
	m.MessagesCounter.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records a provider call's duration.
func (m *Metrics) ObserveCompletion(d time.Duration) {
	m.CompletionDurationHistogram.Observe(d.Seconds())
}

// ObserveProviderError records a provider error by class ("transient" or "fatal").
func (m *Metrics) ObserveProviderError(transient bool) {
	class := "fatal"
	if transient {
		class = "transient"
	}
	m.ProviderErrorsCounter.WithLabelValues(class).Inc()
}

// ObserveRetry records one retried completion attempt.
func (m *Metrics) ObserveRetry() {
	m.CompletionRetriesCounter.Inc()
}

// SetActiveSessions updates the active-session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessionsGauge.Set(float64(n))
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP
// status code, registering a new counter lazily on first use.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.httpRequestsCounters[code]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      fmt.Sprintf("total_%d_http_responses", code),
			Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
		})
		m.reg.MustRegister(c)
		m.httpRequestsCounters[code] = c
	}
	c.Inc()
}

// HTTPMiddleware returns a chi-compatible middleware that tracks HTTP metrics.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
