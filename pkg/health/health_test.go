package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoChecksReportsHealthy(t *testing.T) {
	h := New()

	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestFailureThreshold(t *testing.T) {
	h := New(WithFailureThreshold(2))
	h.AddReadinessCheck(NewCheckFunc("flaky", func(context.Context) error {
		return errors.New("unreachable")
	}))

	// First failure stays below the threshold.
	status, err := h.CheckReadiness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	// Second consecutive failure trips it.
	status, err = h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	require.Len(t, status.Checks, 1)
	assert.Equal(t, "unreachable", status.Checks[0].Error)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	var fail bool
	h := New(WithFailureThreshold(2))
	h.AddLivenessCheck(NewCheckFunc("toggle", func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}))

	fail = true
	_, err := h.CheckLiveness(context.Background())
	require.NoError(t, err)

	fail = false
	_, err = h.CheckLiveness(context.Background())
	require.NoError(t, err)

	// The earlier failure no longer counts toward the threshold.
	fail = true
	status, err := h.CheckLiveness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestMultipleChecksAggregated(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddReadinessCheck(NewCheckFunc("ok", func(context.Context) error { return nil }))
	h.AddReadinessCheck(NewCheckFunc("broken", func(context.Context) error {
		return errors.New("nope")
	}))

	status, err := h.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Len(t, status.Checks, 2)
	assert.Contains(t, err.Error(), "broken")
}

func TestReadinessHandlerJSON(t *testing.T) {
	h := New(WithFailureThreshold(1))
	h.AddReadinessCheck(NewCheckFunc("provider", func(context.Context) error {
		return errors.New("auth failed")
	}))

	rec := httptest.NewRecorder()
	h.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "error", resp.Checks["provider"].Status)
	assert.Equal(t, "auth failed", resp.Checks["provider"].Error)
}

func TestLivenessHandlerHealthy(t *testing.T) {
	h := New()
	h.AddLivenessCheck(NewCheckFunc("loop", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["loop"].Status)
}
