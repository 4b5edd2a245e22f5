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
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// HandleAssess processes one-shot risk assessment requests.
//
// # Description
//
// Handles POST /v1/assessments requests. The flow is:
//  1. Parse and validate the request body
//  2. Authorize the caller
//  3. Check the record against engine preconditions
//  4. Compute both timelines, the combined level, and the
//     counterfactual timeline at modifiable targets
//  5. Return the full response with the matching recommendation
//
// # Inputs
//
//   - c: Gin context containing the HTTP request
//
// Request Body (datatypes.AssessmentRequest):
//   - request_id: Required. UUID v4 identifier for tracing.
//   - timestamp: Required. Unix timestamp in milliseconds (UTC).
//   - external_id: Optional. Pseudonymous patient reference.
//   - record: Required. Full patient record.
//
// # Outputs
//
// HTTP Status:
//   - 200 OK: datatypes.AssessmentResponse with result, optimal
//     timeline, and recommendation
//   - 400 Bad Request: Invalid body, failed validation, or a record
//     outside engine preconditions
//   - 403 Forbidden: Authorization denied
//
// # Limitations
//
//   - Results are not persisted; the response is the only copy
//
// # Assumptions
//
//   - Request body is valid JSON
func (h *assessmentHandler) HandleAssess(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointAssess
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleAssess")
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
	var req datatypes.AssessmentRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to bind assessment request", "error", err)
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
		slog.Error("Assessment request validation failed",
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
		ResourceType: "assessment",
		ResourceID:   req.RequestID,
	}); err != nil {
		span.SetStatus(codes.Error, "authorization denied")
		_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "authz.denied",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "create",
			ResourceType: "assessment",
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
		slog.Warn("Rejected assessment record", "request_id", req.RequestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInvalidRecord)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Step 5: Compute the full result
	result := riskengine.Assess(req.Record)
	optimal := riskengine.ComputeOptimalRisk(req.Record)

	resp := datatypes.NewAssessmentResponse(req.RequestID, req.ExternalID, result, optimal)
	span.SetAttributes(
		attribute.String("assessment.id", resp.AssessmentID),
		attribute.String("risk.level", string(result.Level)),
	)

	if m := observability.DefaultMetrics; m != nil {
		m.RecordAssessment(string(result.Level), endpoint, time.Since(startTime).Seconds())
	}

	_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
		EventType:    "assessment.computed",
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		Action:       "create",
		ResourceType: "assessment",
		ResourceID:   resp.AssessmentID,
		Outcome:      "success",
		Metadata: map[string]any{
			"request_id": req.RequestID,
			"risk_level": string(result.Level),
		},
	})

	slog.Info("Assessment computed",
		"request_id", req.RequestID,
		"assessment_id", resp.AssessmentID,
		"risk_level", string(result.Level),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	success = true
	c.JSON(http.StatusOK, resp)
}
