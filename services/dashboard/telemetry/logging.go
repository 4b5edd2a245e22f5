// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains slog helpers that stitch log lines to the active
// trace so a log record can be found from its span and vice versa.

package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// LoggerWithTrace returns a logger carrying the trace_id and span_id of
// the span active in ctx.
//
// Description:
//
//	When ctx holds a valid span context, the returned logger emits
//	trace_id and span_id fields on every record. When there is no span,
//	the logger is returned unchanged. Nil inputs are tolerated so call
//	sites never have to guard.
//
// Inputs:
//
//	ctx - Context that may carry an active span. May be nil.
//	logger - Base logger. Nil falls back to slog.Default().
//
// Outputs:
//
//	*slog.Logger - Logger with trace correlation fields when available.
//
// Example:
//
//	log := telemetry.LoggerWithTrace(c.Request.Context(), slog.Default())
//	log.Info("Assessment computed", "level", result.Level)
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

// LoggerWithSession returns a logger carrying a live-session identifier.
//
// Session IDs are server-generated UUIDs, safe to log. Trace correlation
// from ctx is applied first so websocket log lines get both.
func LoggerWithSession(ctx context.Context, logger *slog.Logger, sessionID string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With("session_id", sessionID)
}
