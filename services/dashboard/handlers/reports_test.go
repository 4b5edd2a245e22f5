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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/datatypes"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
)

// reportRouter wires both report endpoints onto a fresh router.
func reportRouter(handler AssessmentHandler) *gin.Engine {
	router := gin.New()
	router.POST("/v1/reports/pdf", handler.HandleReportPDF)
	router.POST("/v1/reports/xlsx", handler.HandleReportXLSX)
	return router
}

// reportRequestAt returns a valid report request with a fixed timestamp
// so the attachment name is deterministic.
func reportRequestAt(ts time.Time) datatypes.ReportRequest {
	return datatypes.ReportRequest{
		RequestID:  uuid.New().String(),
		Timestamp:  ts.UnixMilli(),
		ExternalID: "MRN-2024.0042",
		Record:     validAssessRecord(),
	}
}

// =============================================================================
// HandleReportPDF Tests
// =============================================================================

// TestHandleReportPDF_Success verifies the streamed document, content
// type, and attachment name.
func TestHandleReportPDF_Success(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	w := postJSON(t, router, "/v1/reports/pdf", reportRequestAt(ts))

	require.Equal(t, http.StatusOK, w.Code, "should return 200: %s", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	disposition := w.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "assessment_MRN-2024.0042_20260314.pdf")

	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"), "body should be a PDF document")
}

// TestHandleReportPDF_WithNarrative verifies that a narrative block is
// accepted and the document still renders.
func TestHandleReportPDF_WithNarrative(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	req := reportRequestAt(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	req.Narrative = "Your kidney function is stable. Blood pressure control is the best lever."

	w := postJSON(t, router, "/v1/reports/pdf", req)

	require.Equal(t, http.StatusOK, w.Code, "should return 200: %s", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	assert.Greater(t, w.Body.Len(), 1000, "rendered document should not be trivially small")
}

// TestHandleReportPDF_InvalidRequestBody verifies 400 for malformed JSON.
func TestHandleReportPDF_InvalidRequestBody(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	req, _ := http.NewRequest("POST", "/v1/reports/pdf", bytes.NewBufferString("no"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleReportPDF_MissingExternalID verifies that reports require a
// patient reference for the document header and file name.
func TestHandleReportPDF_MissingExternalID(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	req := reportRequestAt(time.Now())
	req.ExternalID = ""

	w := postJSON(t, router, "/v1/reports/pdf", req)

	assert.Equal(t, http.StatusBadRequest, w.Code, "should return 400 without an external ID")
}

// TestHandleReportPDF_RecordOutsidePreconditions verifies 400 for a
// record the engine cannot score.
func TestHandleReportPDF_RecordOutsidePreconditions(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	req := reportRequestAt(time.Now())
	req.Record.ACR = 0

	w := postJSON(t, router, "/v1/reports/pdf", req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "acr must be positive")
}

// =============================================================================
// HandleReportXLSX Tests
// =============================================================================

// TestHandleReportXLSX_Success verifies the workbook stream and name.
func TestHandleReportXLSX_Success(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	router := reportRouter(handler)

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	w := postJSON(t, router, "/v1/reports/xlsx", reportRequestAt(ts))

	require.Equal(t, http.StatusOK, w.Code, "should return 200: %s", w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	disposition := w.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "assessment_MRN-2024.0042_20260314.xlsx")

	// XLSX files are ZIP containers.
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "body should be a ZIP container")
}

// TestHandleReportXLSX_AuthzDenied verifies 403 before rendering.
func TestHandleReportXLSX_AuthzDenied(t *testing.T) {
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)
	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{
		AuthzProvider: &denyAuthzProvider{},
	})
	router := reportRouter(handler)

	w := postJSON(t, router, "/v1/reports/xlsx", reportRequestAt(time.Now()))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"), "no attachment on denial")
}

// TestHandleReport_AuditsSuccess verifies the audit event names the
// format but never the file name or external ID.
func TestHandleReport_AuditsSuccess(t *testing.T) {
	audit := &capturingAuditLogger{}
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)
	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{
		AuditLogger: audit,
	})
	router := reportRouter(handler)

	w := postJSON(t, router, "/v1/reports/pdf", reportRequestAt(time.Now()))
	require.Equal(t, http.StatusOK, w.Code)

	events := audit.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "report.generated", events[0].EventType)
	assert.Equal(t, "pdf", events[0].Metadata["format"])
	for _, v := range events[0].Metadata {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "MRN-2024.0042", "audit metadata must not carry the external ID")
		}
	}
}
