package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/internal/config"
	"github.com/unifiedsync/syncd/internal/log"
	"github.com/unifiedsync/syncd/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogging_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, config.LogFormatJSON, "DEBUG")

	var seen string
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID, Logging(logger))
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		seen = log.CorrelationID(req.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, seen)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request completed", line["msg"])
	assert.EqualValues(t, http.StatusNoContent, line["status"])
	assert.Equal(t, seen, line["correlation_id"])
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/records/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/records/"+id, nil))
	}

	expected := `
# HELP syncd_http_requests_total HTTP requests served.
# TYPE syncd_http_requests_total counter
syncd_http_requests_total{method="GET",route="/records/{id}",status="200"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(m.Registry(), strings.NewReader(expected), "syncd_http_requests_total"))
}
