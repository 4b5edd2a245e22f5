// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package handlers implements the HTTP handlers for the dashboard service.
//
// # Description
//
// Handlers parse and validate incoming requests, run the risk engine,
// delegate narrative generation to the LLM layer, and render report
// documents. All endpoints share one handler set so authorization,
// audit, metrics, and tracing behave identically across them.
//
// # Logging
//
// Patient records are processed in memory and never written to logs,
// spans, or metric labels. Handlers log request IDs, session IDs, and
// risk tiers only. Validation errors that echo submitted measurements
// are returned to the caller but kept out of the telemetry path.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
)

// =============================================================================
// Interface Definition
// =============================================================================

// AssessmentHandler defines the contract for dashboard HTTP handlers.
//
// # Description
//
// Defines handlers for one-shot assessment, live recomputation over a
// websocket, narrative generation, and report rendering. Implementations
// must be thread-safe as Gin invokes handlers concurrently.
//
// # Thread Safety
//
// Implementations must be thread-safe.
//
// # Assumptions
//
//   - Gin context is valid and not nil
type AssessmentHandler interface {
	// HandleAssess processes one-shot risk assessment requests.
	//
	// # Description
	//
	// Handles POST /v1/assessments requests. Validates the submitted
	// record, computes cardiovascular and renal timelines, the combined
	// level, and the counterfactual timeline at modifiable targets.
	//
	// # Inputs
	//
	//   - c: Gin context containing the HTTP request.
	//
	// # Outputs
	//
	// JSON response with the full result, or an error status:
	//   - 400 Bad Request: Malformed body, failed validation, or a
	//     record outside engine preconditions
	//   - 403 Forbidden: Authorization denied
	HandleAssess(c *gin.Context)

	// HandleLiveAssess upgrades the connection to a live assessment session.
	//
	// # Description
	//
	// Handles GET /v1/assessments/live requests. Upgrades to a websocket,
	// then recomputes and pushes the full result for every record the
	// client sends. Intended for dashboard sliders where inputs change
	// many times per second.
	//
	// # Inputs
	//
	//   - c: Gin context containing the HTTP upgrade request.
	//
	// # Outputs
	//
	// Websocket messages:
	//   - session_created: Sent once on connect with the session ID
	//   - risk_update: Full result for each submitted record
	//   - error: Validation errors (session stays open)
	HandleLiveAssess(c *gin.Context)

	// HandleNarrative generates a plain-language narrative for an assessment.
	//
	// # Description
	//
	// Handles POST /v1/narratives requests. Recomputes the risk result
	// from the submitted record, then asks the configured LLM backend
	// for a patient-facing summary. Blocked outputs are never partially
	// returned.
	//
	// # Inputs
	//
	//   - c: Gin context containing the HTTP request.
	//
	// # Outputs
	//
	// JSON response with the narrative text, or an error status:
	//   - 400 Bad Request: Malformed body or invalid record
	//   - 403 Forbidden: Authorization denied or output blocked by the
	//     site filter
	//   - 502 Bad Gateway: LLM backend failure
	HandleNarrative(c *gin.Context)

	// HandleReportPDF renders an assessment as a PDF document.
	//
	// # Description
	//
	// Handles POST /v1/reports/pdf requests. Recomputes the result from
	// the submitted record and streams a rendered PDF back with a
	// Content-Disposition attachment name derived from the sanitized
	// external ID.
	//
	// # Inputs
	//
	//   - c: Gin context containing the HTTP request.
	//
	// # Outputs
	//
	// application/pdf attachment, or an error status:
	//   - 400 Bad Request: Malformed body or invalid record
	//   - 403 Forbidden: Authorization denied
	//   - 500 Internal Server Error: Document rendering failure
	HandleReportPDF(c *gin.Context)

	// HandleReportXLSX renders an assessment as an XLSX workbook.
	//
	// # Description
	//
	// Handles POST /v1/reports/xlsx requests. Same flow as the PDF
	// endpoint with a two-sheet workbook as the output format.
	//
	// # Inputs
	//
	//   - c: Gin context containing the HTTP request.
	//
	// # Outputs
	//
	// XLSX attachment, or an error status:
	//   - 400 Bad Request: Malformed body or invalid record
	//   - 403 Forbidden: Authorization denied
	//   - 500 Internal Server Error: Document rendering failure
	HandleReportXLSX(c *gin.Context)
}

// =============================================================================
// Struct Definition
// =============================================================================

// assessmentHandler implements AssessmentHandler for production use.
//
// # Description
//
// assessmentHandler coordinates between the HTTP layer and the risk,
// narrative, and report packages:
//   - Request parsing and validation
//   - Authorization and audit via service options
//   - Metric and span emission
//   - Response shaping and document streaming
//
// # Fields
//
//   - generator: Narrative generator wrapping the LLM client
//   - opts: Extension options (authz provider, audit logger)
//   - tracer: OpenTelemetry tracer for distributed tracing
//
// # Thread Safety
//
// Thread-safe. All fields are read-only after construction.
// No shared mutable state between requests.
//
// # Assumptions
//
//   - Dependencies are non-nil and properly configured
type assessmentHandler struct {
	generator *narrative.Generator
	opts      extensions.ServiceOptions
	tracer    trace.Tracer
}

// =============================================================================
// Constructor
// =============================================================================

// NewAssessmentHandler creates an AssessmentHandler with the provided dependencies.
//
// # Description
//
// Creates a fully configured assessmentHandler for production use.
// Panics if generator is nil (programming error).
//
// # Inputs
//
//   - generator: Narrative generator. Must not be nil; the assessment
//     and report endpoints do not call it but the handler set is wired
//     as one unit.
//   - opts: Extension options (auth, authz, audit, filter). Zero-value
//     fields are filled with no-op defaults.
//
// # Outputs
//
//   - AssessmentHandler: Ready for use with the Gin router
//
// # Examples
//
//	handler := handlers.NewAssessmentHandler(generator, opts)
//	router.POST("/v1/assessments", handler.HandleAssess)
//	router.GET("/v1/assessments/live", handler.HandleLiveAssess)
//
// # Limitations
//
//   - Panics on nil generator
func NewAssessmentHandler(
	generator *narrative.Generator,
	opts extensions.ServiceOptions,
) AssessmentHandler {
	if generator == nil {
		panic("NewAssessmentHandler: generator must not be nil")
	}

	defaults := extensions.DefaultOptions()
	if opts.AuthProvider == nil {
		opts.AuthProvider = defaults.AuthProvider
	}
	if opts.AuthzProvider == nil {
		opts.AuthzProvider = defaults.AuthzProvider
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = defaults.AuditLogger
	}
	if opts.PromptFilter == nil {
		opts.PromptFilter = defaults.PromptFilter
	}

	return &assessmentHandler{
		generator: generator,
		opts:      opts,
		tracer:    otel.Tracer("clarus.dashboard.handlers"),
	}
}

// resolveUserID returns the authenticated user ID or "anonymous".
func resolveUserID(authInfo *extensions.AuthInfo) string {
	if authInfo != nil && authInfo.UserID != "" {
		return authInfo.UserID
	}
	return "anonymous"
}

// =============================================================================
// Health Check
// =============================================================================

// HealthCheck reports service liveness.
//
// # Description
//
// Handles GET /health requests. Always returns 200 with a static body;
// it carries no dependency checks and is safe for container probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
