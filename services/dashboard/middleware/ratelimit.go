// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the per-client rate limiter applied to the narrative
// endpoint. Narrative generation holds an LLM backend busy for seconds per
// request, so it is the one route a single misbehaving client can use to
// starve everyone else.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
)

// =============================================================================
// Limiter Registry
// =============================================================================

const (
	// maxTrackedClients bounds the limiter map. When the map grows past
	// this size, entries idle longer than staleAfter are swept before a
	// new client is admitted.
	maxTrackedClients = 4096

	// staleAfter is how long a client may be idle before its limiter
	// state is eligible for eviction.
	staleAfter = 10 * time.Minute
)

// clientLimiter pairs a token bucket with its last activity time so idle
// entries can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterRegistry tracks one token bucket per client key.
//
// # Thread Safety
//
// All access goes through the mutex. rate.Limiter itself is safe for
// concurrent use, but the map is not.
type limiterRegistry struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newLimiterRegistry(rps float64, burst int) *limiterRegistry {
	return &limiterRegistry{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// allow reports whether the client identified by key may proceed, creating
// its bucket on first sight.
func (lr *limiterRegistry) allow(key string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	cl, ok := lr.clients[key]
	if !ok {
		if len(lr.clients) >= maxTrackedClients {
			lr.sweepLocked()
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(lr.rps, lr.burst)}
		lr.clients[key] = cl
	}
	cl.lastSeen = time.Now()

	return cl.limiter.Allow()
}

// sweepLocked evicts idle entries. Caller must hold lr.mu.
func (lr *limiterRegistry) sweepLocked() {
	cutoff := time.Now().Add(-staleAfter)
	for key, cl := range lr.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(lr.clients, key)
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware creates a Gin middleware that throttles requests
// per client.
//
// # Description
//
// Applies a token-bucket limit to each client independently. Clients are
// keyed by authenticated user ID when AuthMiddleware ran earlier in the
// chain, falling back to the client IP for unauthenticated routes. Requests
// over the limit receive 429 with a JSON error body.
//
// # Inputs
//
//   - endpoint: Metric label for rejected requests
//   - rps: Sustained requests per second allowed per client
//   - burst: Bucket size, the number of requests a client may send at once
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Examples
//
//	narratives := v1.Group("/narratives")
//	narratives.Use(middleware.RateLimitMiddleware(observability.EndpointNarrative, 0.2, 3))
//
// # Limitations
//
//   - State is per process; replicas do not share buckets
//   - Idle client state is evicted lazily, so a very large set of
//     distinct clients briefly holds memory until the next sweep
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func RateLimitMiddleware(endpoint observability.Endpoint, rps float64, burst int) gin.HandlerFunc {
	registry := newLimiterRegistry(rps, burst)

	return func(c *gin.Context) {
		key := clientKey(c)

		if !registry.allow(key) {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRateLimited(endpoint)
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// clientKey derives the throttling key for a request. Authenticated user
// IDs are preferred so a NAT full of distinct callers is not punished as
// one client.
func clientKey(c *gin.Context) string {
	if info := GetAuthInfo(c); info != nil && info.UserID != "" {
		return info.UserID
	}
	return c.ClientIP()
}
