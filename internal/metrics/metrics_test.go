package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.PipelineRun("crm.note", "hubspot", OutcomeSuccess, 2*time.Second)
	m.PipelineRun("crm.note", "hubspot", OutcomeSkipped, 0)
	m.RecordsPersisted("crm.note", "hubspot", 3)
	m.RecordsPersisted("crm.note", "hubspot", 0)
	m.TransformWarnings("crm.note", "hubspot", 1)
	m.WebhookFailure("crm.note.pulled")
	m.QueueDepth(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("crm.note", "hubspot", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("crm.note", "hubspot", OutcomeSkipped)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recordsPersisted.WithLabelValues("crm.note", "hubspot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transformWarnings.WithLabelValues("crm.note", "hubspot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookFailures.WithLabelValues("crm.note.pulled")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pipelineDuration), "skips are not timed")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PipelineRun("crm.note", "hubspot", OutcomeFailed, time.Second)
		m.RecordsPersisted("crm.note", "hubspot", 1)
		m.AdapterCall("hubspot", "fetch", 200, time.Millisecond)
		m.HTTPRequest("GET", "/health", 200, time.Millisecond)
		m.QueueDepth(1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AdapterCall("hubspot", "fetch", 200, 150*time.Millisecond)
	m.HTTPRequest("POST", "/api/v1/syncs", 202, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `syncd_adapter_call_duration_seconds_count{operation="fetch",provider="hubspot",status="200"} 1`)
	assert.Contains(t, string(body), `syncd_http_requests_total{method="POST",route="/api/v1/syncs",status="202"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
