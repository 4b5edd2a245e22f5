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
	"bytes"
	"fmt"
	"io"
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
	"github.com/ClarusHealth/ClarusRisk/services/report"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HandleReportPDF renders an assessment as a PDF document.
//
// # Description
//
// Handles POST /v1/reports/pdf requests. Recomputes the result from the
// submitted record, renders the document, and streams it back as an
// attachment. See handleReport for the shared flow.
//
// # Outputs
//
//   - 200 OK: application/pdf attachment named
//     assessment_<ID>_<yyyymmdd>.pdf
//   - 400/403/500 per handleReport
func (h *assessmentHandler) HandleReportPDF(c *gin.Context) {
	h.handleReport(c, observability.EndpointReportPDF, "pdf", "application/pdf", report.WritePDF)
}

// HandleReportXLSX renders an assessment as an XLSX workbook.
//
// # Description
//
// Handles POST /v1/reports/xlsx requests. Same flow as the PDF endpoint;
// the workbook carries an assessment sheet and a timelines sheet.
//
// # Outputs
//
//   - 200 OK: XLSX attachment named assessment_<ID>_<yyyymmdd>.xlsx
//   - 400/403/500 per handleReport
func (h *assessmentHandler) HandleReportXLSX(c *gin.Context) {
	h.handleReport(c, observability.EndpointReportXLSX, "xlsx", xlsxContentType, report.WriteXLSX)
}

// handleReport runs the shared report flow:
//  1. Parse and validate the request body
//  2. Authorize the caller
//  3. Check the record against engine preconditions
//  4. Recompute the result and render the document into memory
//  5. Stream it back with a sanitized attachment name
//
// Rendering into a buffer first means a failure yields a clean 500
// instead of a truncated download. Neither the external ID nor the
// derived file name is written to logs or spans; the name reaches the
// caller in the Content-Disposition header only.
func (h *assessmentHandler) handleReport(
	c *gin.Context,
	endpoint observability.Endpoint,
	format string,
	contentType string,
	write func(io.Writer, report.Data) error,
) {
	startTime := time.Now()
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.format", format))

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(endpoint, success)
		}
	}()

	authInfo := middleware.GetAuthInfo(c)
	userID := resolveUserID(authInfo)

	// Step 1: Parse request body
	var req datatypes.ReportRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to bind report request", "error", err)
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
		slog.Error("Report request validation failed",
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
		ResourceType: "report",
		ResourceID:   req.RequestID,
	}); err != nil {
		span.SetStatus(codes.Error, "authorization denied")
		_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "authz.denied",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "create",
			ResourceType: "report",
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
		slog.Warn("Rejected report record", "request_id", req.RequestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInvalidRecord)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Step 5: Recompute and render
	result := riskengine.Assess(req.Record)
	optimal := riskengine.ComputeOptimalRisk(req.Record)
	span.SetAttributes(attribute.String("risk.level", string(result.Level)))

	generatedAt := time.UnixMilli(req.Timestamp).UTC()
	fileName, err := report.FileName(req.ExternalID, generatedAt, format)
	if err != nil {
		// Validation already enforced the ID pattern; reaching here means
		// the sanitizer and the validator disagree.
		span.SetStatus(codes.Error, "file name rejected")
		slog.Error("Report file name rejected", "request_id", req.RequestID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid external id"})
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, report.Data{
		ExternalID:  req.ExternalID,
		GeneratedAt: generatedAt,
		Record:      req.Record,
		Result:      result,
		Optimal:     &optimal,
		Narrative:   req.Narrative,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rendering failed")
		slog.Error("Report rendering failed",
			"error", err,
			"request_id", req.RequestID,
			"format", format,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeRender)
			m.RecordReport(format, false)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report rendering failed"})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordReport(format, true)
	}

	_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
		EventType:    "report.generated",
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		Action:       "create",
		ResourceType: "report",
		ResourceID:   req.RequestID,
		Outcome:      "success",
		Metadata: map[string]any{
			"request_id": req.RequestID,
			"format":     format,
			"bytes":      buf.Len(),
		},
	})

	slog.Info("Report generated",
		"request_id", req.RequestID,
		"format", format,
		"bytes", buf.Len(),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	success = true
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
