// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the dashboard service.
//
// # Description
//
// This package implements metrics for monitoring assessment operations.
// Metrics include:
//   - Request counters (by endpoint, status, error type)
//   - Assessment counters by combined risk level
//   - Latency histograms (assessment compute, narrative generation)
//   - Active live-session gauges
//
// Labels carry only endpoint names, status strings, and risk-level tiers.
// No label ever carries a patient identifier or a clinical measurement:
// a risk tier is an aggregate category, not a patient value.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "clarus"

// Subsystem for dashboard metrics
const dashboardSubsystem = "dashboard"

// AssessmentMetrics holds all Prometheus metrics for dashboard operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring assessment
// throughput and latency. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of API requests by endpoint and status
//   - AssessmentsTotal: Counter of completed assessments by combined level
//   - AssessmentDurationSeconds: Histogram of risk computation latency
//   - NarrativeDurationSeconds: Histogram of narrative generation latency
//   - ActiveLiveSessions: Gauge of open live-assessment websockets
//   - LiveRecomputesTotal: Counter of recomputes pushed over live sessions
//   - ReportsTotal: Counter of generated report documents by format
//   - RateLimitedTotal: Counter of requests rejected by the rate limiter
//   - ErrorsTotal: Counter of errors by endpoint and type
//
// # Thread Safety
//
// All operations are thread-safe.
type AssessmentMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (assess, narrative, report_pdf, ...), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// AssessmentsTotal counts completed assessments by combined risk level.
	// Labels: level (low, moderate, high, very_high)
	AssessmentsTotal *prometheus.CounterVec

	// AssessmentDurationSeconds measures end-to-end assessment handling time.
	// Labels: endpoint (assess, live)
	AssessmentDurationSeconds *prometheus.HistogramVec

	// NarrativeDurationSeconds measures narrative generation duration.
	// Labels: status (success, error)
	NarrativeDurationSeconds *prometheus.HistogramVec

	// ActiveLiveSessions tracks currently open live-assessment websockets.
	ActiveLiveSessions prometheus.Gauge

	// LiveRecomputesTotal counts recomputes pushed over live sessions.
	LiveRecomputesTotal prometheus.Counter

	// ReportsTotal counts generated report documents.
	// Labels: format (pdf, xlsx), status (success, error)
	ReportsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected with 429.
	// Labels: endpoint
	RateLimitedTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by endpoint and type.
	// Labels: endpoint, error_code (validation, llm_error, blocked, ...)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of AssessmentMetrics.
// Initialized by InitMetrics(). Handlers nil-check it so tests can run
// without registering collectors.
var DefaultMetrics *AssessmentMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *AssessmentMetrics: The initialized metrics instance.
//
// # Examples
//
//	func main() {
//	    observability.InitMetrics()
//	    // ... start server ...
//	}
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *AssessmentMetrics {
	DefaultMetrics = &AssessmentMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "requests_total",
				Help:      "Total number of API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		AssessmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "assessments_total",
				Help:      "Total completed assessments by combined risk level",
			},
			[]string{"level"},
		),

		AssessmentDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "assessment_duration_seconds",
				Help:      "End-to-end assessment handling time in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"endpoint"},
		),

		NarrativeDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "narrative_duration_seconds",
				Help:      "Narrative generation duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		ActiveLiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "active_live_sessions",
				Help:      "Number of currently open live-assessment websockets",
			},
		),

		LiveRecomputesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "live_recomputes_total",
				Help:      "Total recomputes pushed over live sessions",
			},
		),

		ReportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "reports_total",
				Help:      "Total generated report documents by format and status",
			},
			[]string{"format", "status"},
		),

		RateLimitedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "rate_limited_total",
				Help:      "Total requests rejected by the rate limiter",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: dashboardSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and type",
			},
			[]string{"endpoint", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeInvalidRecord indicates a record that failed clinical
	// precondition checks.
	ErrorCodeInvalidRecord ErrorCode = "invalid_record"

	// ErrorCodeLLMError indicates an LLM backend failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeBlocked indicates a narrative blocked by the site filter.
	ErrorCodeBlocked ErrorCode = "blocked"

	// ErrorCodeRender indicates a report rendering failure.
	ErrorCodeRender ErrorCode = "render"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents an API endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointAssess is the one-shot assessment endpoint.
	EndpointAssess Endpoint = "assess"

	// EndpointLive is the live-assessment websocket endpoint.
	EndpointLive Endpoint = "live"

	// EndpointNarrative is the narrative generation endpoint.
	EndpointNarrative Endpoint = "narrative"

	// EndpointReportPDF is the PDF report endpoint.
	EndpointReportPDF Endpoint = "report_pdf"

	// EndpointReportXLSX is the XLSX report endpoint.
	EndpointReportXLSX Endpoint = "report_xlsx"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed API request.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - success: Whether the request completed successfully.
func (m *AssessmentMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
//
// # Inputs
//
//   - endpoint: The endpoint where the error occurred.
//   - code: The error type code.
func (m *AssessmentMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordAssessment records one completed assessment.
//
// # Inputs
//
//   - level: The combined risk level of the result.
//   - endpoint: The endpoint the assessment ran under.
//   - seconds: Handling duration in seconds.
func (m *AssessmentMetrics) RecordAssessment(level string, endpoint Endpoint, seconds float64) {
	m.AssessmentsTotal.WithLabelValues(level).Inc()
	m.AssessmentDurationSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordNarrative records a narrative generation attempt.
//
// # Inputs
//
//   - seconds: Generation duration in seconds.
//   - success: Whether generation completed successfully.
func (m *AssessmentMetrics) RecordNarrative(seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.NarrativeDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordReport records a report document generation.
//
// # Inputs
//
//   - format: The document format ("pdf" or "xlsx").
//   - success: Whether rendering completed successfully.
func (m *AssessmentMetrics) RecordReport(format string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ReportsTotal.WithLabelValues(format, status).Inc()
}

// RecordRateLimited records a request rejected with 429.
//
// # Inputs
//
//   - endpoint: The endpoint that rejected the request.
func (m *AssessmentMetrics) RecordRateLimited(endpoint Endpoint) {
	m.RateLimitedTotal.WithLabelValues(string(endpoint)).Inc()
}

// SessionStarted increments the live-session gauge.
func (m *AssessmentMetrics) SessionStarted() {
	m.ActiveLiveSessions.Inc()
}

// SessionEnded decrements the live-session gauge.
func (m *AssessmentMetrics) SessionEnded() {
	m.ActiveLiveSessions.Dec()
}

// RecordLiveRecompute counts one recompute pushed over a live session.
func (m *AssessmentMetrics) RecordLiveRecompute() {
	m.LiveRecomputesTotal.Inc()
}
