package service

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceEditorCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordEditorOperation("")
	m.RecordEditorOperation("")
	m.RecordEditorOperation("TEACHER_DOUBLE_BOOKED")
	m.ObserveEditorSave(true, 20*time.Millisecond)
	m.ObserveEditorSave(false, time.Second)
	m.SetActiveEditorSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.editorOps.WithLabelValues("accepted", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.editorOps.WithLabelValues("rejected", "TEACHER_DOUBLE_BOOKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.editorSaves.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.editorSaves.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.editorSessions))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.Equal(t, 0.75, testutil.ToFloat64(m.cacheHitRatio))
}

func TestMetricsServiceHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("POST", "/api/v1/editor/sessions/:sessionId/moves", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "editor_active_sessions")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordEditorOperation("x")
	m.ObserveEditorSave(true, time.Second)
	m.SetActiveEditorSessions(1)
	m.ObserveDBQuery("q", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, rec.Code)
}
