package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveMessageOutcomes(t *testing.T) {
	m := New()

	m.ObserveMessage(OutcomeReplied)
	m.ObserveMessage(OutcomeReplied)
	m.ObserveMessage(OutcomeRateLimited)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.MessagesCounter.WithLabelValues(OutcomeReplied)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesCounter.WithLabelValues(OutcomeRateLimited)), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.MessagesCounter.WithLabelValues(OutcomeFailed)), 1e-9)
}

func TestObserveProviderError(t *testing.T) {
	m := New()

	m.ObserveProviderError(true)
	m.ObserveProviderError(true)
	m.ObserveProviderError(false)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.ProviderErrorsCounter.WithLabelValues("transient")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ProviderErrorsCounter.WithLabelValues("fatal")), 1e-9)
}

func TestActiveSessionsGauge(t *testing.T) {
	m := New()

	m.SetActiveSessions(7)
	assert.InDelta(t, 7.0, testutil.ToFloat64(m.ActiveSessionsGauge), 1e-9)

	m.SetActiveSessions(0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ActiveSessionsGauge), 1e-9)
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	m := New()

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.InDelta(t, 3.0, testutil.ToFloat64(m.TotalHTTPRequestsCounter), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.httpRequestsCounters[http.StatusTeapot]), 1e-9)
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveMessage(OutcomeReplied)
	m.ObserveCompletion(250 * time.Millisecond)
	m.ObserveRetry()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "relay_messages_total")
	assert.Contains(t, body, "relay_completion_duration_seconds")
	assert.Contains(t, body, "relay_completion_retries_total")
}
