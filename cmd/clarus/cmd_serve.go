// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ClarusHealth/ClarusRisk/cmd/clarus/config"
	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/services/dashboard"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
	"github.com/spf13/cobra"
)

// runServeCommand runs the dashboard server in-process. clarusd is the
// deployment entry point; this command covers a workstation session where
// the operator already has the CLI configured.
func runServeCommand(cmd *cobra.Command, args []string) {
	// clarusd emits JSON for collectors; a terminal session gets text.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := serveConfig(cmd)

	ux.Info(fmt.Sprintf("Starting the Clarus dashboard on port %d (backend %s)", cfg.Port, cfg.LLMBackend))
	ux.Muted("Press Ctrl-C to stop.")

	svc, err := dashboard.New(cfg, nil)
	if err != nil {
		outputServeError("Could not start the dashboard", err)
		os.Exit(riskengine.ExitError)
	}
	if err := svc.Run(); err != nil {
		outputServeError("Dashboard exited", err)
		os.Exit(riskengine.ExitError)
	}
}

// serveConfig builds the dashboard configuration from clarus.yaml with
// flag overrides. Container concerns (secrets dir, trace export) stay on
// their environment variables, shared with clarusd.
func serveConfig(cmd *cobra.Command) dashboard.Config {
	port := servePort
	if port == 0 {
		port = config.Global.Server.Port
	}
	backend := serveBackend
	if backend == "" {
		backend = config.Global.Backend.Type
	}
	storePath := serveKeystore
	if storePath == "" {
		storePath = config.Global.Keystore.Path
	}
	metrics := serveMetrics
	if !cmd.Flags().Changed("metrics") {
		metrics = config.Global.Server.EnableMetrics
	}

	applyBackendBaseURL(backend)

	return dashboard.Config{
		Port:          port,
		GinMode:       "release",
		LLMBackend:    backend,
		KeystorePath:  storePath,
		SecretsDir:    os.Getenv("CLARUS_SECRETS_DIR"),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableMetrics: metrics,
	}
}

func outputServeError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
