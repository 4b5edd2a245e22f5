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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
)

// dialLive starts a test server around the handler and dials the live
// endpoint. The caller owns both returned closers.
func dialLive(t *testing.T, handler AssessmentHandler) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	router := gin.New()
	router.GET("/v1/assessments/live", handler.HandleLiveAssess)
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/assessments/live"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dial should succeed")

	return ws, srv
}

// readUpdate reads one LiveUpdate with a deadline so a silent server
// fails the test instead of hanging it.
func readUpdate(t *testing.T, ws *websocket.Conn) LiveUpdate {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var update LiveUpdate
	require.NoError(t, ws.ReadJSON(&update))
	return update
}

// =============================================================================
// HandleLiveAssess Tests
// =============================================================================

// TestHandleLiveAssess_SessionCreated verifies the first message carries
// the session ID.
func TestHandleLiveAssess_SessionCreated(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	ws, srv := dialLive(t, handler)
	defer srv.Close()
	defer ws.Close()

	created := readUpdate(t, ws)
	assert.Equal(t, "session_created", created.Action)
	assert.NotEmpty(t, created.SessionID, "session ID should be assigned")
	assert.Nil(t, created.Result, "no result before the first record")
}

// TestHandleLiveAssess_PushesRiskUpdates verifies that each record
// produces a full result push.
func TestHandleLiveAssess_PushesRiskUpdates(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	ws, srv := dialLive(t, handler)
	defer srv.Close()
	defer ws.Close()

	readUpdate(t, ws) // session_created

	require.NoError(t, ws.WriteJSON(LiveRequest{Record: validAssessRecord()}))

	update := readUpdate(t, ws)
	assert.Equal(t, "risk_update", update.Action)
	require.NotNil(t, update.Result, "update should carry the result")
	assert.Greater(t, update.Result.Cardio.TenYear, 0.0)
	assert.Greater(t, update.Result.Renal.FiveYear, 0.0)
	require.NotNil(t, update.Optimal, "update should carry the counterfactual")
	assert.LessOrEqual(t, update.Optimal.TenYear, update.Result.Cardio.TenYear)
}

// TestHandleLiveAssess_RecomputesOnEachMessage verifies the session
// handles a burst of slider movements.
func TestHandleLiveAssess_RecomputesOnEachMessage(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	ws, srv := dialLive(t, handler)
	defer srv.Close()
	defer ws.Close()

	readUpdate(t, ws) // session_created

	record := validAssessRecord()
	var lastTenYear float64
	for i := 0; i < 5; i++ {
		record.SystolicBP = 120 + float64(i*10)
		require.NoError(t, ws.WriteJSON(LiveRequest{Record: record}))

		update := readUpdate(t, ws)
		require.Equal(t, "risk_update", update.Action)
		require.NotNil(t, update.Result)
		if i > 0 {
			assert.Greater(t, update.Result.Cardio.TenYear, lastTenYear,
				"risk should rise with systolic pressure")
		}
		lastTenYear = update.Result.Cardio.TenYear
	}
}

// TestHandleLiveAssess_InvalidRecordKeepsSessionOpen verifies that a
// precondition failure is reported without dropping the connection.
func TestHandleLiveAssess_InvalidRecordKeepsSessionOpen(t *testing.T) {
	handler := createTestHandler(t, &mockNarrativeLLM{})
	ws, srv := dialLive(t, handler)
	defer srv.Close()
	defer ws.Close()

	readUpdate(t, ws) // session_created

	bad := validAssessRecord()
	bad.Age = -1
	require.NoError(t, ws.WriteJSON(LiveRequest{Record: bad}))

	errorUpdate := readUpdate(t, ws)
	assert.Equal(t, "error", errorUpdate.Action)
	assert.Contains(t, errorUpdate.Error, "age must be positive")
	assert.Nil(t, errorUpdate.Result, "no result for an invalid record")

	// The same session accepts the corrected record.
	require.NoError(t, ws.WriteJSON(LiveRequest{Record: validAssessRecord()}))
	update := readUpdate(t, ws)
	assert.Equal(t, "risk_update", update.Action)
	require.NotNil(t, update.Result)
}

// TestHandleLiveAssess_AuthzDenied verifies that denial happens before
// the upgrade, as a plain 403.
func TestHandleLiveAssess_AuthzDenied(t *testing.T) {
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)
	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{
		AuthzProvider: &denyAuthzProvider{},
	})

	router := gin.New()
	router.GET("/v1/assessments/live", handler.HandleLiveAssess)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/assessments/live"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if ws != nil {
		ws.Close()
	}

	require.Error(t, err, "handshake should fail")
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestHandleLiveAssess_AuditsSessionLifecycle verifies start and end
// events with the recompute count.
func TestHandleLiveAssess_AuditsSessionLifecycle(t *testing.T) {
	audit := &capturingAuditLogger{}
	generator := narrative.NewGenerator(&mockNarrativeLLM{}, "ollama", nil)
	handler := NewAssessmentHandler(generator, extensions.ServiceOptions{
		AuditLogger: audit,
	})
	ws, srv := dialLive(t, handler)
	defer srv.Close()

	readUpdate(t, ws) // session_created
	require.NoError(t, ws.WriteJSON(LiveRequest{Record: validAssessRecord()}))
	readUpdate(t, ws) // risk_update
	ws.Close()

	// The ended event is written after the read loop notices the close.
	require.Eventually(t, func() bool {
		return len(audit.snapshot()) >= 2
	}, 5*time.Second, 10*time.Millisecond, "both lifecycle events should arrive")

	events := audit.snapshot()
	assert.Equal(t, "live.session_started", events[0].EventType)
	assert.Equal(t, "live.session_ended", events[1].EventType)
	assert.Equal(t, events[0].ResourceID, events[1].ResourceID, "same session ID on both events")
	assert.Equal(t, 1, events[1].Metadata["recomputes"])
}
