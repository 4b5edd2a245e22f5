// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package routes registers the dashboard's HTTP routes.
//
// /health and /metrics are open; everything under /v1 passes through
// bearer authentication. The narrative endpoint additionally carries a
// per-client rate limiter because one request can hold the LLM backend
// busy for seconds.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/handlers"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/middleware"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/telemetry"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
)

// SetupRoutes registers all dashboard routes on the router.
//
// # Description
//
// Builds the handler set over the generator and wires:
//   - GET  /health (open)
//   - GET  /metrics (open; registered only after telemetry init)
//   - POST /v1/assessments
//   - GET  /v1/assessments/live
//   - POST /v1/narratives (rate limited)
//   - POST /v1/reports/pdf
//   - POST /v1/reports/xlsx
//
// # Inputs
//
//   - router: The Gin engine to register on. Must not be nil.
//   - generator: Narrative generator. Must not be nil (handler
//     construction panics).
//   - narrativeRPS: Sustained narrative requests per second per client.
//     Values <= 0 disable the limiter.
//   - narrativeBurst: Burst allowance for the narrative limiter.
//   - opts: Extension options shared by all handlers. The /v1 group
//     authenticates with opts.AuthProvider; the Nop provider admits
//     everything as the local operator.
//
// # Limitations
//
//   - /metrics is absent when telemetry.Init has not run with the
//     prometheus exporter; scrapes then see 404 rather than an empty page
func SetupRoutes(
	router *gin.Engine,
	generator *narrative.Generator,
	narrativeRPS float64,
	narrativeBurst int,
	opts extensions.ServiceOptions,
) {
	handler := handlers.NewAssessmentHandler(generator, opts)

	authProvider := opts.AuthProvider
	if authProvider == nil {
		authProvider = &extensions.NopAuthProvider{}
	}

	router.GET("/health", handlers.HealthCheck)
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(authProvider))
	{
		v1.POST("/assessments", handler.HandleAssess)
		v1.GET("/assessments/live", handler.HandleLiveAssess)

		if narrativeRPS > 0 {
			v1.POST("/narratives",
				middleware.RateLimitMiddleware(observability.EndpointNarrative, narrativeRPS, narrativeBurst),
				handler.HandleNarrative)
		} else {
			v1.POST("/narratives", handler.HandleNarrative)
		}

		reports := v1.Group("/reports")
		{
			reports.POST("/pdf", handler.HandleReportPDF)
			reports.POST("/xlsx", handler.HandleReportXLSX)
		}
	}
}
