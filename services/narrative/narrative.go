// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package narrative turns a computed risk assessment into a short
// clinician-facing text summary.
//
// The package owns the prompt (see BuildPrompt) and the generation
// protocol; the model itself sits behind an injected llm.LLMClient. Every
// prompt and every generated text passes through the site's
// extensions.PromptFilter, so a deployment can screen for identifiers that
// should never reach an external model or a report.
//
// The filter protocol on a block is fixed: the generator records a
// "narrative.blocked" audit event and returns extensions.ErrPromptBlocked
// without contacting the backend.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/llm"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

var tracer = otel.Tracer("clarus.narrative")

// Generation defaults. Summaries should be stable and short: low
// temperature, bounded length.
const (
	narrativeTemperature = float32(0.2)
	narrativeMaxTokens   = 600
)

// Request carries one assessment into narrative generation.
type Request struct {
	// AssessmentID is the UUID assigned to the assessment. Used only as
	// the audit ResourceID; it never enters the prompt.
	AssessmentID string

	// UserID identifies the requesting user for audit events.
	// Defaults to "system" when empty.
	UserID string

	// Record is the assessed patient record.
	Record riskengine.PatientRecord

	// Result is the computed assessment for Record.
	Result riskengine.RiskResult

	// Optimal, when non-nil, adds the counterfactual headroom section to
	// the prompt.
	Optimal *riskengine.CardioTimeline
}

// Narrative is a generated summary.
type Narrative struct {
	// Text is the final narrative after output filtering.
	Text string `json:"text"`

	// GeneratedAt is when generation completed.
	GeneratedAt time.Time `json:"generated_at"`

	// WasFiltered reports whether the site filter modified the prompt or
	// the generated text on the way through.
	WasFiltered bool `json:"was_filtered"`
}

// Generator produces narratives through a configured backend.
//
// # Thread Safety
//
// Safe for concurrent use; all fields are set at construction and never
// mutated.
type Generator struct {
	client  llm.LLMClient
	backend string
	filter  extensions.PromptFilter
	audit   extensions.AuditLogger
	logger  *slog.Logger
}

// NewGenerator creates a Generator over the given backend client.
//
// backend is the backend's name ("ollama", "openai", "anthropic"), recorded
// on spans and audit events. opts supplies the site's prompt filter and
// audit logger; nil opts selects the Nop defaults.
func NewGenerator(client llm.LLMClient, backend string, opts *extensions.ServiceOptions) *Generator {
	if opts == nil {
		defaults := extensions.DefaultOptions()
		opts = &defaults
	}
	return &Generator{
		client:  client,
		backend: backend,
		filter:  opts.PromptFilter,
		audit:   opts.AuditLogger,
		logger:  slog.Default(),
	}
}

// Generate builds the prompt for a request, runs it through the site
// filter, the backend, and the output filter, and returns the narrative.
//
// Returns extensions.ErrPromptBlocked (wrapped) when either filter pass
// blocks; the block is audited before returning. Backend failures are
// returned wrapped and audited with outcome "error".
func (g *Generator) Generate(ctx context.Context, req Request) (*Narrative, error) {
	ctx, span := tracer.Start(ctx, "narrative.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.backend", g.backend))

	start := time.Now()
	userID := req.UserID
	if userID == "" {
		userID = "system"
	}

	prompt := BuildPrompt(req.Record, req.Result, req.Optimal)

	promptResult, err := g.filter.FilterPrompt(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt filter failed")
		return nil, fmt.Errorf("prompt filter: %w", err)
	}
	if promptResult.WasBlocked {
		return nil, g.blocked(ctx, span, req, userID, "prompt", promptResult.BlockReason)
	}

	temp := narrativeTemperature
	maxTokens := narrativeMaxTokens
	text, err := g.client.Generate(ctx, promptResult.Filtered, llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		g.auditEvent(ctx, req, userID, "narrative.generated", "error", map[string]any{
			"backend": g.backend,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("generate narrative: %w", err)
	}

	textResult, err := g.filter.FilterNarrative(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "narrative filter failed")
		return nil, fmt.Errorf("narrative filter: %w", err)
	}
	if textResult.WasBlocked {
		return nil, g.blocked(ctx, span, req, userID, "narrative", textResult.BlockReason)
	}

	wasFiltered := promptResult.WasModified || textResult.WasModified
	durationMS := time.Since(start).Milliseconds()

	g.auditEvent(ctx, req, userID, "narrative.generated", "success", map[string]any{
		"backend":     g.backend,
		"duration_ms": durationMS,
		"risk_level":  string(req.Result.Level),
		"filtered":    wasFiltered,
	})
	g.logger.Info("narrative generated",
		slog.String("backend", g.backend),
		slog.Int64("duration_ms", durationMS),
		slog.Bool("filtered", wasFiltered),
	)

	return &Narrative{
		Text:        textResult.Filtered,
		GeneratedAt: time.Now().UTC(),
		WasFiltered: wasFiltered,
	}, nil
}

// blocked runs the fixed block protocol: audit, span status, sentinel error.
func (g *Generator) blocked(ctx context.Context, span trace.Span, req Request, userID, stage, reason string) error {
	g.auditEvent(ctx, req, userID, "narrative.blocked", "blocked", map[string]any{
		"backend": g.backend,
		"stage":   stage,
		"reason":  reason,
	})
	span.SetStatus(codes.Error, "blocked by site filter")

	if reason == "" {
		return extensions.ErrPromptBlocked
	}
	return fmt.Errorf("%w: %s", extensions.ErrPromptBlocked, reason)
}

func (g *Generator) auditEvent(ctx context.Context, req Request, userID, eventType, outcome string, metadata map[string]any) {
	event := extensions.AuditEvent{
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		Action:       "create",
		ResourceType: "narrative",
		ResourceID:   req.AssessmentID,
		Outcome:      outcome,
		Metadata:     metadata,
	}
	if err := g.audit.Log(ctx, event); err != nil {
		g.logger.Warn("audit log failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
