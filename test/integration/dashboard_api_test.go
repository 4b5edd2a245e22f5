// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package integration exercises the dashboard HTTP API in process: a real
// service built through dashboard.New, real Gin routing, real validation,
// real report rendering. No listener is bound; requests go straight to the
// router. Only the narrative test needs a live model backend, so it is
// gated behind RUN_INTEGRATION_TESTS.
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarusHealth/ClarusRisk/services/dashboard"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/datatypes"
	"github.com/ClarusHealth/ClarusRisk/services/keystore"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// =============================================================================
// Shared Service
// =============================================================================

// The suite shares one service so Prometheus vectors register once per
// process. The key store directory is left for the OS to reclaim; Badger
// holds its lock until the test binary exits.
var (
	sharedOnce   sync.Once
	sharedEngine http.Handler
	sharedErr    error
)

func sharedRouter(t *testing.T) http.Handler {
	t.Helper()
	sharedOnce.Do(func() {
		dir, err := os.MkdirTemp("", "clarus-integration-")
		if err != nil {
			sharedErr = err
			return
		}
		svc, err := dashboard.New(dashboard.Config{
			GinMode:       "test",
			LLMBackend:    "ollama",
			KeystorePath:  filepath.Join(dir, "keystore"),
			EnableMetrics: true,
		}, nil)
		if err != nil {
			sharedErr = err
			return
		}
		sharedEngine = svc.Router()
	})
	require.NoError(t, sharedErr, "shared dashboard service should build")
	return sharedEngine
}

// perform sends one request to the shared router and returns the recorder.
func perform(t *testing.T, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	sharedRouter(t).ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Fixtures
// =============================================================================

// lowRiskRecord mirrors the well-controlled profile used across the CLI
// suites: every marker inside the reference ranges.
func lowRiskRecord() riskengine.PatientRecord {
	return riskengine.PatientRecord{
		Age:              45,
		Sex:              riskengine.SexFemale,
		HeightCm:         165,
		WeightKg:         62,
		SystolicBP:       112,
		DiastolicBP:      72,
		TotalCholesterol: 170,
		HDLCholesterol:   62,
		EGFR:             98,
		ACR:              5,
	}
}

// highRiskRecord carries elevated pressure, adverse lipids, reduced kidney
// function, and an active smoking habit.
func highRiskRecord() riskengine.PatientRecord {
	return riskengine.PatientRecord{
		Age:                62,
		Sex:                riskengine.SexMale,
		HeightCm:           178,
		WeightKg:           92,
		SystolicBP:         148,
		DiastolicBP:        92,
		TotalCholesterol:   210,
		HDLCholesterol:     38,
		EGFR:               55,
		ACR:                120,
		Smoker:             true,
		OnHypertensionMeds: true,
	}
}

func newAssessmentRequest(record riskengine.PatientRecord) datatypes.AssessmentRequest {
	return datatypes.AssessmentRequest{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().Unix(),
		Record:    record,
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return body
}

// =============================================================================
// Health and Metrics
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	rec := perform(t, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	// Drive one assessment first so the counters have something to show.
	rec := perform(t, http.MethodPost, "/v1/assessments",
		mustMarshal(t, newAssessmentRequest(lowRiskRecord())), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perform(t, http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "assessments_total")
	// Labels stay at route and tier granularity. A patient value in the
	// exposition would be a privacy regression worth failing loudly on.
	assert.NotContains(t, body, "systolic")
}

// =============================================================================
// Assessments
// =============================================================================

func TestAssessmentEndpoint(t *testing.T) {
	request := newAssessmentRequest(lowRiskRecord())
	request.ExternalID = "P-0042"

	rec := perform(t, http.MethodPost, "/v1/assessments", mustMarshal(t, request), nil)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var resp datatypes.AssessmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, request.RequestID, resp.RequestID)
	assert.Equal(t, "P-0042", resp.ExternalID)
	assert.Equal(t, riskengine.EngineVersion, resp.EngineVersion)
	assert.NotEmpty(t, resp.AssessmentID)
	assert.NotEmpty(t, resp.Recommendation)

	assert.Equal(t, riskengine.RiskLow, resp.Result.Level)
	assert.Greater(t, resp.Result.Cardio.TenYear, 0.0)
	assert.LessOrEqual(t, resp.Result.Cardio.FiveYear, resp.Result.Cardio.TenYear,
		"cardiovascular risk must not shrink over a longer horizon")
	assert.LessOrEqual(t, resp.Result.Cardio.TenYear, resp.Result.Cardio.FifteenYear)
	assert.LessOrEqual(t, resp.Result.Renal.TwoYear, resp.Result.Renal.FiveYear)
	assert.LessOrEqual(t, resp.Result.Renal.FiveYear, resp.Result.Renal.TenYear)
}

func TestAssessmentHeadroom(t *testing.T) {
	rec := perform(t, http.MethodPost, "/v1/assessments",
		mustMarshal(t, newAssessmentRequest(highRiskRecord())), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp datatypes.AssessmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEqual(t, riskengine.RiskLow, resp.Result.Level)
	assert.Less(t, resp.Optimal.TenYear, resp.Result.Cardio.TenYear,
		"the optimal counterfactual should sit below the actual estimate for an adverse profile")
}

func TestAssessmentValidation(t *testing.T) {
	t.Run("Precondition_Violation_Rejected", func(t *testing.T) {
		// A zero pressure would hit a logarithm, so the boundary rejects it.
		request := newAssessmentRequest(lowRiskRecord())
		request.Record.SystolicBP = 0

		rec := perform(t, http.MethodPost, "/v1/assessments", mustMarshal(t, request), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		// Engine precondition errors go back to the caller verbatim so the
		// submitter can fix the record.
		assert.Contains(t, rec.Body.String(), "systolic_bp must be positive")
	})

	t.Run("Extreme_Age_Is_Clamped_Not_Rejected", func(t *testing.T) {
		// The cardiovascular model clamps age internally; out-of-range ages
		// are a caller presentation concern, not a contract violation.
		request := newAssessmentRequest(lowRiskRecord())
		request.Record.Age = 200

		rec := perform(t, http.MethodPost, "/v1/assessments", mustMarshal(t, request), nil)

		assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	})

	t.Run("Missing_Request_ID", func(t *testing.T) {
		request := newAssessmentRequest(lowRiskRecord())
		request.RequestID = ""

		rec := perform(t, http.MethodPost, "/v1/assessments", mustMarshal(t, request), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid request")
	})

	t.Run("Malformed_Body", func(t *testing.T) {
		rec := perform(t, http.MethodPost, "/v1/assessments", []byte("{not json"), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid request body")
	})
}

// =============================================================================
// Reports
// =============================================================================

func TestReportEndpoints(t *testing.T) {
	newReportRequest := func() datatypes.ReportRequest {
		return datatypes.ReportRequest{
			RequestID:  uuid.New().String(),
			Timestamp:  time.Now().Unix(),
			ExternalID: "MRN-2024-00123",
			Record:     highRiskRecord(),
		}
	}

	t.Run("PDF", func(t *testing.T) {
		rec := perform(t, http.MethodPost, "/v1/reports/pdf",
			mustMarshal(t, newReportRequest()), nil)

		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"),
			"response should begin with the PDF magic bytes")
	})

	t.Run("XLSX", func(t *testing.T) {
		rec := perform(t, http.MethodPost, "/v1/reports/xlsx",
			mustMarshal(t, newReportRequest()), nil)

		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"),
			"workbook should begin with the ZIP magic bytes")
	})

	t.Run("Missing_External_ID", func(t *testing.T) {
		request := newReportRequest()
		request.ExternalID = ""

		rec := perform(t, http.MethodPost, "/v1/reports/pdf",
			mustMarshal(t, request), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Bearer Authentication
// =============================================================================

// TestBearerAuthEnforcement builds a second service whose key store already
// holds a dashboard key, which switches /v1 from local-operator mode to
// bearer authentication. Metrics stay off so the Prometheus registration in
// the shared service is not repeated.
func TestBearerAuthEnforcement(t *testing.T) {
	const apiKey = "clk_integration_7f2da9"

	storePath := filepath.Join(t.TempDir(), "keystore")
	store, err := keystore.Open(keystore.DefaultConfig(storePath))
	require.NoError(t, err)
	require.NoError(t, store.Set(dashboard.DashboardKeyProvider, apiKey))
	// Badger locks the directory, so release it before the service opens
	// the same store.
	require.NoError(t, store.Close())

	svc, err := dashboard.New(dashboard.Config{
		GinMode:      "test",
		LLMBackend:   "ollama",
		KeystorePath: storePath,
	}, nil)
	require.NoError(t, err)
	router := svc.Router()

	send := func(authorization string) *httptest.ResponseRecorder {
		body := mustMarshal(t, newAssessmentRequest(lowRiskRecord()))
		req := httptest.NewRequest(http.MethodPost, "/v1/assessments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Missing_Key_Rejected", func(t *testing.T) {
		rec := send("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")
	})

	t.Run("Wrong_Key_Rejected", func(t *testing.T) {
		rec := send("Bearer clk_not_the_issued_key")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Issued_Key_Accepted", func(t *testing.T) {
		rec := send("Bearer " + apiKey)
		assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	})

	t.Run("Health_Stays_Open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// =============================================================================
// Narratives
// =============================================================================

// TestNarrativeEndpoint needs a live Ollama backend, so it only runs when
// explicitly requested.
func TestNarrativeEndpoint(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Set RUN_INTEGRATION_TESTS=1 to run this test")
	}

	request := datatypes.NarrativeRequest{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().Unix(),
		Record:    highRiskRecord(),
	}

	rec := perform(t, http.MethodPost, "/v1/narratives", mustMarshal(t, request), nil)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	var resp datatypes.NarrativeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, request.RequestID, resp.RequestID)
	assert.NotEmpty(t, resp.NarrativeID)
	assert.NotEmpty(t, resp.Text)
	t.Logf("narrative generated in %dms, filtered=%v", resp.ProcessingTimeMs, resp.WasFiltered)
}
