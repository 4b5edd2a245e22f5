// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Command clarusd starts the Clarus risk dashboard HTTP server.
//
// This is the main entry point for running the dashboard as a service,
// whether on a clinician's workstation or in a container. It reads
// configuration from environment variables (a .env file in the working
// directory is honored) and starts the server.
//
// # Environment Variables
//
//   - CLARUS_PORT: HTTP server port (default: 8440)
//   - CLARUS_LLM_BACKEND: narrative backend - ollama, openai, anthropic (default: ollama)
//   - CLARUS_KEYSTORE_PATH: API key store directory (default: ~/.clarus/keystore)
//   - CLARUS_SECRETS_DIR: mounted secrets directory to watch for key rotation (optional)
//   - CLARUS_ENABLE_METRICS: expose Prometheus /metrics (default: true)
//   - CLARUS_NARRATIVE_RPS: per-client narrative rate limit (default: 0.5)
//   - CLARUS_NARRATIVE_BURST: narrative rate limiter burst (default: 3)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector for traces (optional)
//   - GIN_MODE: Gin framework mode (default: release)
//
// # Usage
//
//	# Build
//	go build -o clarusd ./cmd/clarusd
//
//	# Run locally
//	./clarusd
//
//	# Or in a container with mounted secrets
//	CLARUS_SECRETS_DIR=/run/secrets ./clarusd
package main

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ClarusHealth/ClarusRisk/services/dashboard"
)

func main() {
	// A .env beside the binary is a convenience for development setups.
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := dashboard.Config{
		Port:           getEnvInt("CLARUS_PORT", 8440),
		GinMode:        getEnvString("GIN_MODE", "release"),
		LLMBackend:     getEnvString("CLARUS_LLM_BACKEND", "ollama"),
		KeystorePath:   getEnvString("CLARUS_KEYSTORE_PATH", defaultKeystorePath()),
		SecretsDir:     os.Getenv("CLARUS_SECRETS_DIR"),
		OTelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableMetrics:  getEnvBool("CLARUS_ENABLE_METRICS", true),
		NarrativeRPS:   getEnvFloat("CLARUS_NARRATIVE_RPS", 0),
		NarrativeBurst: getEnvInt("CLARUS_NARRATIVE_BURST", 0),
	}

	slog.Info("Starting clarusd",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"keystore_path", cfg.KeystorePath,
		"metrics", cfg.EnableMetrics,
	)

	// Create the dashboard with default (no-op) extension options.
	// Site integrations pass custom ServiceOptions here.
	svc, err := dashboard.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create dashboard: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Dashboard error: %v", err)
	}
}

// defaultKeystorePath places the key store under the user's Clarus
// directory, shared with the CLI so issued keys take effect without
// extra configuration. Empty when no home directory is resolvable,
// which runs the server without a key store.
func defaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".clarus", "keystore")
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
