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
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/middleware"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/telemetry"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// LiveRequest is one recompute message from a live dashboard client.
type LiveRequest struct {
	Record riskengine.PatientRecord `json:"record"`
}

// LiveUpdate is a server-to-client message on a live session.
//
// Actions:
//   - session_created: first message after connect, carries the session ID
//   - risk_update: full result for the most recent record
//   - error: the record failed engine preconditions; the session stays open
type LiveUpdate struct {
	Action    string                     `json:"action"`
	SessionID string                     `json:"session_id,omitempty"`
	Result    *riskengine.RiskResult     `json:"result,omitempty"`
	Optimal   *riskengine.CardioTimeline `json:"optimal,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// Records and results are small; 4KB covers both directions.
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write live session JSON", "error", err)
	}
	return err
}

// HandleLiveAssess upgrades the connection to a live assessment session.
//
// # Description
//
// Handles GET /v1/assessments/live requests. After the upgrade, every
// record the client sends is validated and assessed, and the full
// result (both timelines, combined level, counterfactual) is pushed
// back on the same connection. Records failing engine preconditions
// produce an error message without closing the session, so a slider
// passing through an invalid value does not drop the connection.
//
// # Inputs
//
//   - c: Gin context containing the HTTP upgrade request
//
// # Outputs
//
// Websocket messages (LiveUpdate):
//   - {"action":"session_created","session_id":"..."}
//   - {"action":"risk_update","result":{...},"optimal":{...}}
//   - {"action":"error","error":"..."}
//
// HTTP Status (before the upgrade):
//   - 403 Forbidden: Authorization denied
//
// # Limitations
//
//   - A malformed frame closes the session; only precondition failures
//     on well-formed records are recoverable
//
// # Assumptions
//
//   - Client speaks the websocket protocol and sends JSON text frames
func (h *assessmentHandler) HandleLiveAssess(c *gin.Context) {
	endpoint := observability.EndpointLive
	ctx := c.Request.Context()

	authInfo := middleware.GetAuthInfo(c)
	userID := resolveUserID(authInfo)

	// Authorize before upgrading so denials stay plain HTTP.
	if err := h.opts.AuthzProvider.Authorize(ctx, extensions.AuthzRequest{
		User:         authInfo,
		Action:       "create",
		ResourceType: "live_session",
	}); err != nil {
		_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "authz.denied",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "create",
			ResourceType: "live_session",
			Outcome:      "denied",
			Metadata: map[string]any{
				"reason": err.Error(),
			},
		})
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	ws, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade live session", "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		return
	}
	defer ws.Close()

	sessionID := uuid.New().String()
	logger := telemetry.LoggerWithSession(ctx, slog.Default(), sessionID)
	logger.Info("Live session started", "user_id", userID)

	if m := observability.DefaultMetrics; m != nil {
		m.SessionStarted()
		defer m.SessionEnded()
	}

	_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
		EventType:    "live.session_started",
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		Action:       "create",
		ResourceType: "live_session",
		ResourceID:   sessionID,
		Outcome:      "success",
	})

	recomputes := 0
	defer func() {
		_ = h.opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "live.session_ended",
			Timestamp:    time.Now().UTC(),
			UserID:       userID,
			Action:       "close",
			ResourceType: "live_session",
			ResourceID:   sessionID,
			Outcome:      "success",
			Metadata: map[string]any{
				"recomputes": recomputes,
			},
		})
		logger.Info("Live session ended", "recomputes", recomputes)
	}()

	if err := sendJSON(ws, LiveUpdate{Action: "session_created", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var req LiveRequest
		if err := ws.ReadJSON(&req); err != nil {
			logger.Info("Live client disconnected", "reason", err.Error())
			break
		}

		start := time.Now()

		// Precondition errors echo submitted values; mirror them to the
		// client, keep them out of logs.
		if err := riskengine.Validate(req.Record); err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeInvalidRecord)
			}
			if sendJSON(ws, LiveUpdate{Action: "error", Error: err.Error()}) != nil {
				return
			}
			continue
		}

		result := riskengine.Assess(req.Record)
		optimal := riskengine.ComputeOptimalRisk(req.Record)

		if m := observability.DefaultMetrics; m != nil {
			m.RecordLiveRecompute()
			m.RecordAssessment(string(result.Level), endpoint, time.Since(start).Seconds())
		}
		recomputes++

		if sendJSON(ws, LiveUpdate{Action: "risk_update", Result: &result, Optimal: &optimal}) != nil {
			return
		}
	}
}
