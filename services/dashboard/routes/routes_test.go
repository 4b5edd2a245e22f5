// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/telemetry"
	"github.com/ClarusHealth/ClarusRisk/services/llm"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.LLMClient
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock narrative", nil
}

// rejectingAuthProvider refuses every token, as a keystore-backed
// provider does when no key matches.
type rejectingAuthProvider struct{}

func (p *rejectingAuthProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	return nil, fmt.Errorf("unknown API key: %w", extensions.ErrUnauthorized)
}

func testGenerator() *narrative.Generator {
	return narrative.NewGenerator(&mockLLMClient{}, "ollama", nil)
}

func setupTestRoutes(router *gin.Engine) {
	SetupRoutes(router, testGenerator(), 10, 5, extensions.DefaultOptions())
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_CoreRoutes(t *testing.T) {
	router := gin.New()
	setupTestRoutes(router)

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/v1/assessments"},
		{"GET", "/v1/assessments/live"},
		{"POST", "/v1/narratives"},
		{"POST", "/v1/reports/pdf"},
		{"POST", "/v1/reports/xlsx"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_NilGenerator_Panics(t *testing.T) {
	router := gin.New()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected SetupRoutes to panic with nil generator")
		}
	}()

	SetupRoutes(router, nil, 10, 5, extensions.DefaultOptions())
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := gin.New()
	setupTestRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.TraceExporter = "none"
	cfg.MetricExporter = "prometheus"

	shutdown, err := telemetry.Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("telemetry.Init() failed: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	router := gin.New()
	setupTestRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	if w.Header().Get("Content-Type") == "" {
		t.Error("Metrics endpoint should return Content-Type header")
	}
}

// ============================================================================
// Authentication Wiring Tests
// ============================================================================

func TestSetupRoutes_NopProviderAdmitsLocalRequests(t *testing.T) {
	router := gin.New()
	setupTestRoutes(router)

	body, _ := json.Marshal(map[string]any{
		"record": riskengine.PatientRecord{
			Age: 54, Sex: riskengine.SexMale, HeightCm: 175, WeightKg: 82,
			SystolicBP: 128, DiastolicBP: 82, TotalCholesterol: 210,
			HDLCholesterol: 46, EGFR: 88, ACR: 12,
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/assessments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Assessment through Nop auth returned %d, want %d: %s",
			w.Code, http.StatusOK, w.Body.String())
	}
}

func TestSetupRoutes_KeyedProviderRejectsV1(t *testing.T) {
	router := gin.New()
	opts := extensions.DefaultOptions()
	opts.AuthProvider = &rejectingAuthProvider{}
	SetupRoutes(router, testGenerator(), 10, 5, opts)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/assessments", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer clk_wrong")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("V1 with rejected key returned %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestSetupRoutes_KeyedProviderLeavesHealthOpen(t *testing.T) {
	router := gin.New()
	opts := extensions.DefaultOptions()
	opts.AuthProvider = &rejectingAuthProvider{}
	SetupRoutes(router, testGenerator(), 10, 5, opts)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health with keyed provider returned %d, want %d", w.Code, http.StatusOK)
	}
}

// ============================================================================
// Rate Limiter Wiring Tests
// ============================================================================

func TestSetupRoutes_NarrativeRegisteredWithoutLimiter(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, testGenerator(), 0, 0, extensions.DefaultOptions())

	found := false
	for _, r := range router.Routes() {
		if r.Method == "POST" && r.Path == "/v1/narratives" {
			found = true
			break
		}
	}
	if !found {
		t.Error("POST /v1/narratives should be registered even with the limiter disabled")
	}
}

func TestSetupRoutes_NarrativeLimiterRejectsBurst(t *testing.T) {
	router := gin.New()
	// One request per hundred seconds, burst of one.
	SetupRoutes(router, testGenerator(), 0.01, 1, extensions.DefaultOptions())

	body, _ := json.Marshal(map[string]any{
		"record": riskengine.PatientRecord{
			Age: 54, Sex: riskengine.SexFemale, HeightCm: 163, WeightKg: 70,
			SystolicBP: 132, DiastolicBP: 84, TotalCholesterol: 195,
			HDLCholesterol: 52, EGFR: 74, ACR: 18,
		},
	})

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/narratives", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:40000"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK {
		t.Errorf("First narrative request returned %d, want %d", statuses[0], http.StatusOK)
	}
	if statuses[1] != http.StatusTooManyRequests {
		t.Errorf("Second narrative request returned %d, want %d", statuses[1], http.StatusTooManyRequests)
	}
}

// ============================================================================
// API Version Group Tests
// ============================================================================

func TestSetupRoutes_V1GroupExists(t *testing.T) {
	router := gin.New()
	setupTestRoutes(router)

	v1Routes := 0
	for _, r := range router.Routes() {
		if len(r.Path) > 3 && r.Path[:3] == "/v1" {
			v1Routes++
		}
	}

	if v1Routes == 0 {
		t.Error("Expected at least one /v1 route")
	}
}
