// Package metrics exposes syncd's prometheus instruments on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "syncd"

// Metrics holds the collectors.
type Metrics struct {
	registry          *prometheus.Registry
	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	recordsPersisted  *prometheus.CounterVec
	transformWarnings *prometheus.CounterVec
	adapterDuration   *prometheus.HistogramVec
	webhookFailures   *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector, plus Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by entity type, provider and outcome.",
		}, []string{"entity_type", "provider", "outcome"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end duration of one fetch, unify, persist and notify run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity_type"}),
		recordsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Canonical records written.",
		}, []string{"entity_type", "provider"}),
		transformWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_warnings_total",
			Help:      "Provider records dropped during unification.",
		}, []string{"entity_type", "provider"}),
		adapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_call_duration_seconds",
			Help:      "Provider adapter call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation", "status"}),
		webhookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_failures_total",
			Help:      "Webhook deliveries that returned an error.",
		}, []string{"event_type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_tasks",
			Help:      "Tasks waiting in the queue.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pipelineRuns,
		m.pipelineDuration,
		m.recordsPersisted,
		m.transformWarnings,
		m.adapterDuration,
		m.webhookFailures,
		m.queueDepth,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Outcome labels for PipelineRun.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// PipelineRun records one finished pipeline run.
func (m *Metrics) PipelineRun(entityType, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(entityType, provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.pipelineDuration.WithLabelValues(entityType).Observe(elapsed.Seconds())
	}
}

// RecordsPersisted adds n written records.
func (m *Metrics) RecordsPersisted(entityType, provider string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsPersisted.WithLabelValues(entityType, provider).Add(float64(n))
}

// TransformWarnings adds n dropped records.
func (m *Metrics) TransformWarnings(entityType, provider string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.transformWarnings.WithLabelValues(entityType, provider).Add(float64(n))
}

// AdapterCall observes one adapter call. status is the HTTP-like status
// code, or 0 when the call failed without one.
func (m *Metrics) AdapterCall(provider, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.adapterDuration.WithLabelValues(provider, operation, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// WebhookFailure counts one failed delivery.
func (m *Metrics) WebhookFailure(eventType string) {
	if m == nil {
		return
	}
	m.webhookFailures.WithLabelValues(eventType).Inc()
}

// QueueDepth sets the pending task gauge.
func (m *Metrics) QueueDepth(n int64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// HTTPRequest observes one served request. route should be the matched
// route pattern, not the raw path.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
