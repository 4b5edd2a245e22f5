// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/datatypes"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/middleware"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// HandleNarrative generates a plain-language narrative for an assessment.
//
// # Description
//
// Handles POST /v1/narratives requests. The flow is:
//  1. Parse and validate the request body
//  2. Authorize the caller
//  3. Check the record against engine preconditions
//  4. Recompute the result from the record; caller-supplied figures are
//     never trusted
//  5. Generate the narrative through the configured LLM backend and the
//     site filter
//
// The generator audits its own outcomes (generated, blocked, error);
// this handler audits authorization denials only.
//
// # Inputs
//
//   - c: Gin context containing the HTTP request
//
// Request Body (datatypes.NarrativeRequest):
//   - request_id: Required. UUID v4 identifier for tracing.
//   - timestamp: Required. Unix timestamp in milliseconds (UTC).
//   - assessment_id: Optional. Echoed into audit events.
//   - external_id: Optional. Pseudonymous patient reference.
//   - record: Required. Full patient record.
//
// # Outputs
//
// HTTP Status:
//   - 200 OK: datatypes.NarrativeResponse with the narrative text
//   - 400 Bad Request: Invalid body, failed validation, or a record
//     outside engine preconditions
//   - 403 Forbidden: Authorization denied, or output blocked by the
//     site filter
//   - 502 Bad Gateway: LLM backend failure
//
// # Limitations
//
//   - Generation is synchronous; the narrative rate limiter bounds how
//     long the backend can be held busy
//
// # Assumptions
//
//   - Request body is valid JSON
//   - The LLM backend is reachable when narratives are requested
func (h *assessmentHandler) HandleNarrative(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointNarrative
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleNarrative")
	defer span.End()

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, success)
		}
	}()

	authInfo := middleware.GetAuthInfo(c)
	userID := resolveUserID(authInfo)

	// Step 1: Parse request body
	var req datatypes.NarrativeRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to bind narrative request", "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.EnsureDefaults()
	span.SetAttributes(attribute.String("request.id", req.RequestID))

	// Step 2: Validate request structure
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("Narrative request validation failed",
			"error", err,
			"request_id", req.RequestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: validation failed"})
		return
	}

	// Step 3: Authorize request
	if err := h.opts.AuthzProvider.Authorize(ctx, extensions.AuthzRequest{
		User:         authInfo,
		Action:       "create",
		ResourceType: "narrative",
		ResourceID:   req.RequestID,
	}); err != nil {
		span.SetStatus(codes.Error, "authorization denied")
		_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "authz.denied",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "create",
			ResourceType: "narrative",
			ResourceID:   req.RequestID,
			Outcome:      "denied",
			Metadata: map[string]any{
				"request_id": req.RequestID,
				"reason":     err.Error(),
			},
		})
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	// Step 4: Check engine preconditions. The error text echoes submitted
	// values, so it goes back to the caller but stays out of logs and spans.
	if err := riskengine.Validate(req.Record); err != nil {
		span.SetStatus(codes.Error, "record outside engine preconditions")
		slog.Warn("Rejected narrative record", "request_id", req.RequestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInvalidRecord)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Step 5: Recompute the result from the record
	result := riskengine.Assess(req.Record)
	optimal := riskengine.ComputeOptimalRisk(req.Record)
	span.SetAttributes(attribute.String("risk.level", string(result.Level)))

	// Step 6: Generate through the backend and site filter
	genStart := time.Now()
	nar, err := h.generator.Generate(ctx, narrative.Request{
		AssessmentID: req.AssessmentID,
		UserID:       userID,
		Record:       req.Record,
		Result:       result,
		Optimal:      &optimal,
	})
	if err != nil {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordNarrative(time.Since(genStart).Seconds(), false)
		}
		if errors.Is(err, extensions.ErrPromptBlocked) {
			span.SetStatus(codes.Error, "narrative blocked")
			slog.Warn("Narrative blocked by content filter", "request_id", req.RequestID)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeBlocked)
			}
			c.JSON(http.StatusForbidden, gin.H{"error": "narrative blocked by content filter"})
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		slog.Error("Narrative generation failed",
			"error", err,
			"request_id", req.RequestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeLLMError)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "narrative backend unavailable"})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordNarrative(time.Since(genStart).Seconds(), true)
	}

	resp := datatypes.NewNarrativeResponse(req.RequestID, req.AssessmentID, nar.Text, nar.WasFiltered)
	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()

	slog.Info("Narrative generated",
		"request_id", req.RequestID,
		"narrative_id", resp.NarrativeID,
		"filtered", nar.WasFiltered,
		"duration_ms", resp.ProcessingTimeMs,
	)

	success = true
	c.JSON(http.StatusOK, resp)
}
