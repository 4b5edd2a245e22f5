// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
)

// =============================================================================
// RateLimitMiddleware Tests
// =============================================================================

func TestRateLimitMiddleware_AllowsWithinBurst(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(observability.EndpointNarrative, 1, 3))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}
}

func TestRateLimitMiddleware_RejectsOverBurst(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(observability.EndpointNarrative, 0.01, 2))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitMiddleware_PerClientIsolation(t *testing.T) {
	// Exhaust one user's bucket; a different user must be unaffected.
	var userID string

	router := gin.New()
	router.Use(func(c *gin.Context) {
		SetAuthInfo(c, &extensions.AuthInfo{UserID: userID})
		c.Next()
	})
	router.Use(RateLimitMiddleware(observability.EndpointNarrative, 0.01, 1))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	userID = "key-aaaa"
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	userID = "key-bbbb"
	assert.Equal(t, http.StatusOK, do())
}

// =============================================================================
// clientKey Tests
// =============================================================================

func TestClientKey_PrefersUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	SetAuthInfo(c, &extensions.AuthInfo{UserID: "key-3f6c2a91d04b"})

	assert.Equal(t, "key-3f6c2a91d04b", clientKey(c))
}

func TestClientKey_FallsBackToClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "203.0.113.7:51234"

	assert.Equal(t, "203.0.113.7", clientKey(c))
}

// =============================================================================
// Limiter Registry Tests
// =============================================================================

func TestLimiterRegistry_SweepEvictsStale(t *testing.T) {
	lr := newLimiterRegistry(1, 1)

	lr.allow("fresh-client")
	lr.allow("stale-client")

	lr.mu.Lock()
	lr.clients["stale-client"].lastSeen = time.Now().Add(-staleAfter - time.Minute)
	lr.sweepLocked()
	lr.mu.Unlock()

	lr.mu.Lock()
	defer lr.mu.Unlock()
	assert.Contains(t, lr.clients, "fresh-client")
	assert.NotContains(t, lr.clients, "stale-client")
}

func TestLimiterRegistry_NewClientGetsFullBurst(t *testing.T) {
	lr := newLimiterRegistry(0.01, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, lr.allow("client-a"), "request %d within burst", i+1)
	}
	assert.False(t, lr.allow("client-a"))

	// A different client still has its own full bucket.
	assert.True(t, lr.allow("client-b"))
}
