package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatch(t *testing.T) {
	m := New()

	m.ObserveBatch(3, 1, nil)
	m.ObserveBatch(2, 2, nil)
	m.ObserveBatch(0, 0, errors.New("boom"))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.entriesApplied))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entriesChanged))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBatch(1, 1, nil)
		m.ObserveSnapshot("manual")
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSnapshot("scheduled")
	m.ObserveRequest("GET", "/api/locations", 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `idit_ledger_snapshots_total{source="scheduled"} 1`)
	assert.Contains(t, body, "idit_http_request_duration_seconds_count")
	assert.Contains(t, body, "go_goroutines")
}
