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
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/llm"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Setup
// =============================================================================

// mockNarrativeLLM implements llm.LLMClient for handler testing.
//
// # Description
//
// Returns a configured response or error from Generate and records the
// last prompt for inspection.
type mockNarrativeLLM struct {
	// Response is returned by Generate on success
	Response string
	// Err is returned by Generate when non-nil
	Err error
	// CallCount tracks how many times Generate was called
	CallCount int
	// LastPrompt stores the last prompt passed to Generate
	LastPrompt string
}

// Generate implements llm.LLMClient.Generate for testing.
func (m *mockNarrativeLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.CallCount++
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// denyAuthzProvider denies every action.
type denyAuthzProvider struct{}

func (p *denyAuthzProvider) Authorize(_ context.Context, _ extensions.AuthzRequest) error {
	return errors.New("role clinician required")
}

// capturingAuditLogger records audit events for assertions.
type capturingAuditLogger struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (l *capturingAuditLogger) Log(_ context.Context, event extensions.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *capturingAuditLogger) Query(_ context.Context, _ extensions.AuditFilter) ([]extensions.AuditEvent, error) {
	return []extensions.AuditEvent{}, nil
}

func (l *capturingAuditLogger) Flush(_ context.Context) error {
	return nil
}

func (l *capturingAuditLogger) snapshot() []extensions.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]extensions.AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

// blockingFilter rejects every prompt outright.
type blockingFilter struct{}

func (f *blockingFilter) FilterPrompt(_ context.Context, prompt string) (*extensions.FilterResult, error) {
	return &extensions.FilterResult{
		Original:    prompt,
		WasBlocked:  true,
		BlockReason: "identifier detected",
	}, nil
}

func (f *blockingFilter) FilterNarrative(_ context.Context, text string) (*extensions.FilterResult, error) {
	return &extensions.FilterResult{Original: text, Filtered: text}, nil
}

// validAssessRecord returns a record inside every engine precondition.
func validAssessRecord() riskengine.PatientRecord {
	return riskengine.PatientRecord{
		Age:              54,
		Sex:              riskengine.SexMale,
		HeightCm:         175,
		WeightKg:         82,
		SystolicBP:       128,
		DiastolicBP:      82,
		TotalCholesterol: 210,
		HDLCholesterol:   46,
		EGFR:             88,
		ACR:              12,
		Smoker:           true,
	}
}

// createTestHandler creates an AssessmentHandler over a mock LLM.
func createTestHandler(t *testing.T, mockLLM *mockNarrativeLLM) AssessmentHandler {
	t.Helper()

	generator := narrative.NewGenerator(mockLLM, "ollama", nil)
	return NewAssessmentHandler(generator, extensions.ServiceOptions{})
}

// =============================================================================
// NewAssessmentHandler Tests
// =============================================================================

// TestNewAssessmentHandler_PanicsOnNilGenerator verifies that the
// constructor panics when generator is nil.
func TestNewAssessmentHandler_PanicsOnNilGenerator(t *testing.T) {
	assert.Panics(t, func() {
		NewAssessmentHandler(nil, extensions.ServiceOptions{})
	}, "should panic on nil generator")
}

// TestNewAssessmentHandler_Success verifies that the constructor creates
// a valid handler when dependencies are provided.
func TestNewAssessmentHandler_Success(t *testing.T) {
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)

	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{})

	assert.NotNil(t, handler, "handler should not be nil")
}

// TestNewAssessmentHandler_FillsNopDefaults verifies that zero-value
// options are replaced with the no-op providers.
func TestNewAssessmentHandler_FillsNopDefaults(t *testing.T) {
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)

	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{})

	impl, ok := handler.(*assessmentHandler)
	require.True(t, ok)
	assert.NotNil(t, impl.opts.AuthProvider)
	assert.NotNil(t, impl.opts.AuthzProvider)
	assert.NotNil(t, impl.opts.AuditLogger)
	assert.NotNil(t, impl.opts.PromptFilter)
}

// TestNewAssessmentHandler_KeepsProvidedOptions verifies that populated
// options are not overwritten by defaults.
func TestNewAssessmentHandler_KeepsProvidedOptions(t *testing.T) {
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)
	audit := &capturingAuditLogger{}

	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{
		AuditLogger: audit,
	})

	impl, ok := handler.(*assessmentHandler)
	require.True(t, ok)
	assert.Same(t, audit, impl.opts.AuditLogger)
	assert.NotNil(t, impl.opts.AuthzProvider, "unset fields still get defaults")
}

// TestResolveUserID verifies the anonymous fallback.
func TestResolveUserID(t *testing.T) {
	assert.Equal(t, "anonymous", resolveUserID(nil))
	assert.Equal(t, "anonymous", resolveUserID(&extensions.AuthInfo{}))
	assert.Equal(t, "key-abc123", resolveUserID(&extensions.AuthInfo{UserID: "key-abc123"}))
}
