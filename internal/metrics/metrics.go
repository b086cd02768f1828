// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TurnsTotal        *prometheus.CounterVec
	TurnDuration      *prometheus.HistogramVec
	SynthesisFailures prometheus.Counter
	AssessmentsTotal  *prometheus.CounterVec
	ProgressFailures  prometheus.Counter
}

// New registers every collector under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tutor"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"route", "method"}),
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by reply path and outcome.",
		}, []string{"path", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from first event to completion of a chat turn.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"path"}),
		SynthesisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failures_total",
			Help:      "Reply segments delivered without audio.",
		}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pronunciation_assessments_total",
			Help:      "Pronunciation assessments by result.",
		}, []string{"result"}),
		ProgressFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gamification_failures_total",
			Help:      "Failed background progress updates.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TurnsTotal,
		m.TurnDuration,
		m.SynthesisFailures,
		m.AssessmentsTotal,
		m.ProgressFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordTurn records a finished chat turn.
func (m *Metrics) RecordTurn(path, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(path, outcome).Inc()
	m.TurnDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordSynthesisFailure counts a segment sent without audio.
func (m *Metrics) RecordSynthesisFailure() {
	if m == nil {
		return
	}
	m.SynthesisFailures.Inc()
}

// RecordAssessment counts an assessment attempt; result is "ok", "unavailable" or "skipped".
func (m *Metrics) RecordAssessment(result string) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(result).Inc()
}

// RecordProgressFailure counts a failed background progress update.
func (m *Metrics) RecordProgressFailure() {
	if m == nil {
		return
	}
	m.ProgressFailures.Inc()
}
