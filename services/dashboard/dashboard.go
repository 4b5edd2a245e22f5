// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package dashboard assembles the risk dashboard HTTP service.
//
// The package wires the risk engine, narrative generator, report writers,
// key store, and telemetry into a single Gin service. Construction follows
// a fixed order: telemetry first so every later step can emit spans and
// metrics, then the key store, then the LLM client and narrative generator
// that read keys from it, and the router last so handlers see the final
// extension options.
//
// Patient records flow through the handlers but are never persisted here;
// the only state the service owns on disk is the API key store.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/observability"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/routes"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard/telemetry"
	"github.com/ClarusHealth/ClarusRisk/services/keystore"
	"github.com/ClarusHealth/ClarusRisk/services/llm"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
	"github.com/ClarusHealth/ClarusRisk/services/phiguard"
)

// serviceName identifies the dashboard in traces and metrics.
const serviceName = "clarus-dashboard"

// metricsOnce guards Prometheus vector registration, which panics on a
// second attempt against the default registry.
var metricsOnce sync.Once

// Service defines the core dashboard service interface.
//
// # Description
//
// Provides the main entry points for running the assembled dashboard.
// Implementations own their dependencies (key store, telemetry, secret
// watcher) and release them when Run returns.
//
// # Methods
//
//   - Run: Starts the HTTP server and blocks until it exits.
//   - Router: Returns the underlying Gin engine, mainly for tests that
//     drive requests without binding a port.
type Service interface {
	// Run starts the dashboard server. Blocks until the server exits and
	// then releases the service's resources.
	Run() error

	// Router returns the configured Gin engine.
	Router() *gin.Engine
}

// Config holds the dashboard service configuration.
//
// The zero value is usable: New applies defaults suited to a clinician's
// workstation running everything locally.
type Config struct {
	// Port is the HTTP listen port.
	// Default: 8440.
	Port int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Empty leaves the mode untouched.
	GinMode string

	// LLMBackend selects the narrative backend: "ollama", "openai", or
	// "anthropic".
	// Default: "ollama", which needs no API key.
	LLMBackend string

	// KeystorePath is the directory of the BadgerDB API key store. Empty
	// runs without a key store: LLM keys come from the environment and
	// /run/secrets, and /v1 stays open as the local operator.
	KeystorePath string

	// SecretsDir, when set, is watched for rotated provider key files
	// (openai_api_key, anthropic_api_key) which are written into the key
	// store as they change. Requires KeystorePath.
	SecretsDir string

	// OTelEndpoint is the OTLP gRPC endpoint for trace export. Empty
	// disables trace export unless OTEL_TRACES_EXPORTER says otherwise.
	OTelEndpoint string

	// EnableMetrics exposes Prometheus metrics at /metrics.
	EnableMetrics bool

	// NarrativeRPS is the sustained per-client rate for /v1/narratives.
	// Zero applies the default; negative disables the limiter.
	// Default: 0.5 (one narrative every two seconds).
	NarrativeRPS float64

	// NarrativeBurst is the burst allowance for the narrative limiter.
	// Default: 3.
	NarrativeBurst int
}

// applyConfigDefaults fills zero-valued fields with workstation defaults.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8440
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.NarrativeRPS == 0 {
		cfg.NarrativeRPS = 0.5
	}
	if cfg.NarrativeBurst == 0 {
		cfg.NarrativeBurst = 3
	}
	return cfg
}

// service implements Service.
type service struct {
	config Config
	opts   extensions.ServiceOptions

	store       *keystore.Store
	watcher     *keystore.SecretWatcher
	generator   *narrative.Generator
	router      *gin.Engine
	httpMetrics *telemetry.Metrics

	telemetryShutdown func(context.Context) error
}

// Compile-time check that service implements Service.
var _ Service = (*service)(nil)

// New creates a dashboard service with the given configuration.
//
// # Description
//
// Assembles the full service: telemetry, Prometheus metrics, the API key
// store, the narrative generator over the configured LLM backend, the
// secret rotation watcher, and the HTTP router. When the key store holds
// a dashboard API key and no custom AuthProvider was supplied, bearer
// authentication is enabled for the /v1 group; otherwise requests run as
// the local operator.
//
// # Inputs
//
//   - cfg: Service configuration. Zero-valued fields receive defaults.
//   - opts: Extension options for auth, authorization, audit, and prompt
//     filtering. nil selects the Nop defaults.
//
// # Outputs
//
//   - Service: The assembled service, ready to Run.
//   - error: Non-nil when a required dependency cannot be initialized.
//     Resources acquired before the failure are released.
//
// # Examples
//
//	svc, err := dashboard.New(dashboard.Config{Port: 8440}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Limitations
//
//   - A configured KeystorePath that cannot be opened is fatal rather
//     than degraded: starting without the store would silently drop
//     bearer authentication.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	cfg = applyConfigDefaults(cfg)

	options := extensions.DefaultOptions()
	if opts != nil {
		options = *opts
	}

	s := &service{
		config: cfg,
		opts:   options,
	}

	if err := s.initTelemetry(); err != nil {
		return nil, err
	}

	if cfg.EnableMetrics {
		metricsOnce.Do(func() { observability.InitMetrics() })
	}

	if err := s.initKeystore(); err != nil {
		s.cleanup()
		return nil, err
	}

	if err := s.initGenerator(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.startSecretWatcher()
	s.initRouter()

	return s, nil
}

// initTelemetry configures trace and metric export and stores the
// shutdown hook for cleanup.
func (s *service) initTelemetry() error {
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = serviceName
	tcfg.AllowDegraded = true

	if s.config.OTelEndpoint != "" {
		tcfg.TraceExporter = "otlp"
		tcfg.OTLPEndpoint = s.config.OTelEndpoint
	} else if os.Getenv("OTEL_TRACES_EXPORTER") == "" {
		tcfg.TraceExporter = "none"
	}

	if s.config.EnableMetrics {
		tcfg.MetricExporter = "prometheus"
	} else {
		tcfg.MetricExporter = "none"
	}

	shutdown, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	if s.config.EnableMetrics {
		m, err := telemetry.NewMetrics(otel.Meter(serviceName))
		if err != nil {
			return fmt.Errorf("create http metrics: %w", err)
		}
		s.httpMetrics = m
	}
	return nil
}

// initKeystore opens the API key store and, when a dashboard key has been
// issued, swaps the keystore-backed AuthProvider in for the Nop default.
// A caller-supplied AuthProvider is never replaced.
func (s *service) initKeystore() error {
	if s.config.KeystorePath == "" {
		slog.Info("No key store configured, provider keys come from the environment")
		return nil
	}

	store, err := keystore.Open(keystore.DefaultConfig(s.config.KeystorePath))
	if err != nil {
		return fmt.Errorf("open key store: %w", err)
	}
	s.store = store

	_, isNop := s.opts.AuthProvider.(*extensions.NopAuthProvider)
	if s.opts.AuthProvider != nil && !isNop {
		return nil
	}

	_, err = store.Get(DashboardKeyProvider)
	switch {
	case err == nil:
		s.opts.AuthProvider = NewKeystoreAuthProvider(store)
		slog.Info("Dashboard API key present, bearer authentication enabled")
	case errors.Is(err, keystore.ErrKeyNotFound):
		slog.Warn("No dashboard API key issued, /v1 requests run as the local operator")
	default:
		return fmt.Errorf("check dashboard key: %w", err)
	}
	return nil
}

// initGenerator builds the LLM client and narrative generator. Provider
// keys resolve through the key store when one is open, falling back to
// the environment and /run/secrets.
//
// When no site filter was injected, the embedded identifier screen is
// swapped in for the Nop default. A caller-supplied PromptFilter is never
// replaced.
func (s *service) initGenerator() error {
	var lookup llm.KeyLookup
	if s.store != nil {
		lookup = s.store.KeyLookup()
	}

	client, err := llm.NewClient(s.config.LLMBackend, lookup)
	if err != nil {
		return fmt.Errorf("create narrative backend: %w", err)
	}

	_, isNop := s.opts.PromptFilter.(*extensions.NopPromptFilter)
	if s.opts.PromptFilter == nil || isNop {
		filter, err := phiguard.NewFilter()
		if err != nil {
			return fmt.Errorf("load identifier screen: %w", err)
		}
		s.opts.PromptFilter = filter
	}

	s.generator = narrative.NewGenerator(client, s.config.LLMBackend, &s.opts)
	return nil
}

// startSecretWatcher begins watching the mounted secrets directory for
// rotated provider keys. The watcher is a convenience for containerized
// deployments; failures log a warning and the service starts without it.
func (s *service) startSecretWatcher() {
	if s.config.SecretsDir == "" {
		return
	}
	if s.store == nil {
		slog.Warn("Secrets directory configured without a key store, rotation watch disabled",
			"dir", s.config.SecretsDir)
		return
	}

	watcher, err := keystore.NewSecretWatcher(s.store, s.config.SecretsDir, slog.Default())
	if err != nil {
		slog.Warn("Secret rotation watch disabled", "error", err)
		return
	}
	s.watcher = watcher

	go func() {
		if err := watcher.Start(context.Background()); err != nil {
			slog.Warn("Secret watcher exited", "error", err)
		}
	}()
}

// initRouter builds the Gin engine with tracing middleware and all
// dashboard routes. Runs last so handlers receive the final extension
// options, including any AuthProvider swap from initKeystore.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	if s.httpMetrics != nil {
		router.Use(telemetry.MetricsMiddleware(s.httpMetrics))
	}

	routes.SetupRoutes(router, s.generator, s.config.NarrativeRPS, s.config.NarrativeBurst, s.opts)

	s.router = router
}

// Run starts the dashboard server and blocks until it exits. Resources
// are released on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting dashboard service",
		"addr", addr,
		"backend", s.config.LLMBackend,
		"metrics", s.config.EnableMetrics,
	)

	return s.router.Run(addr)
}

// Router returns the configured Gin engine.
func (s *service) Router() *gin.Engine {
	return s.router
}

// cleanup releases service resources in reverse acquisition order. Safe
// to call with partially initialized state.
func (s *service) cleanup() {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			slog.Warn("Stopping secret watcher failed", "error", err)
		}
		s.watcher = nil
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Closing key store failed", "error", err)
		}
		s.store = nil
	}

	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
		s.telemetryShutdown = nil
	}
}
