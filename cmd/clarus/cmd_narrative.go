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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ClarusHealth/ClarusRisk/cmd/clarus/config"
	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/services/keystore"
	"github.com/ClarusHealth/ClarusRisk/services/llm"
	"github.com/ClarusHealth/ClarusRisk/services/narrative"
	"github.com/ClarusHealth/ClarusRisk/services/phiguard"
	"github.com/ClarusHealth/ClarusRisk/services/report"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

func runNarrativeCommand(cmd *cobra.Command, args []string) {
	if narrativeInput == "" {
		outputNarrativeError("No patient record", fmt.Errorf("pass --input FILE"))
		os.Exit(riskengine.ExitError)
	}

	record, err := loadRecordFile(narrativeInput)
	if err != nil {
		outputNarrativeError("Failed to load record", err)
		os.Exit(riskengine.ExitError)
	}
	if err := riskengine.Validate(record); err != nil {
		outputNarrativeError("Invalid patient record", err)
		os.Exit(riskengine.ExitError)
	}

	result := riskengine.Assess(record)
	optimal := riskengine.ComputeOptimalRisk(record)

	backend := narrativeBackend
	if backend == "" {
		backend = config.Global.Backend.Type
	}
	applyBackendBaseURL(backend)

	lookup, closeStore := narrativeKeyLookup(backend)
	defer closeStore()

	client, err := llm.NewClient(backend, lookup)
	if err != nil {
		outputNarrativeError("Failed to create narrative backend", err)
		os.Exit(riskengine.ExitError)
	}

	filter, err := phiguard.NewFilter()
	if err != nil {
		outputNarrativeError("Failed to load the identifier screen", err)
		os.Exit(riskengine.ExitError)
	}
	opts := extensions.DefaultOptions().WithPromptFilter(filter)
	generator := narrative.NewGenerator(client, backend, &opts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(narrativeTimeout)*time.Second)
	defer cancel()

	req := narrative.Request{
		AssessmentID: uuid.New().String(),
		Record:       record,
		Result:       result,
		Optimal:      &optimal,
	}

	var n *narrative.Narrative
	err = ux.WithSpinner("Generating narrative", func() error {
		var genErr error
		n, genErr = generator.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		if errors.Is(err, extensions.ErrPromptBlocked) {
			outputNarrativeError("Narrative blocked by the site filter", err)
		} else {
			outputNarrativeError("Narrative generation failed", err)
		}
		os.Exit(riskengine.ExitError)
	}

	if narrativeJSON {
		outputNarrativeJSON(backend, n)
	} else {
		outputNarrativeText(n)
	}
	os.Exit(riskengine.ExitSuccess)
}

// applyBackendBaseURL carries a configured ollama base URL into the
// environment the client reads. An explicitly set variable wins.
func applyBackendBaseURL(backend string) {
	baseURL := config.Global.Backend.BaseURL
	if backend != "ollama" && backend != "" {
		return
	}
	if baseURL == "" || os.Getenv("OLLAMA_BASE_URL") != "" {
		return
	}
	os.Setenv("OLLAMA_BASE_URL", baseURL)
}

// narrativeKeyLookup opens the configured key store for providers that
// need API keys. A missing or unopenable store is not fatal: provider
// clients fall back to their environment variables.
func narrativeKeyLookup(backend string) (llm.KeyLookup, func()) {
	noop := func() {}

	if backend == "" || backend == "ollama" {
		return nil, noop
	}
	path := config.Global.Keystore.Path
	if path == "" {
		return nil, noop
	}
	if _, err := os.Stat(path); err != nil {
		// No store on disk yet.
		return nil, noop
	}

	store, err := keystore.Open(keystore.DefaultConfig(path))
	if err != nil {
		ux.Warning(fmt.Sprintf("Could not open the key store, using environment keys: %v", err))
		return nil, noop
	}
	return store.KeyLookup(), func() { store.Close() }
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputNarrativeError(msg string, err error) {
	if narrativeJSON {
		result := map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

func outputNarrativeJSON(backend string, n *narrative.Narrative) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]interface{}{
		"backend":   backend,
		"narrative": n,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(riskengine.ExitError)
	}
}

func outputNarrativeText(n *narrative.Narrative) {
	ux.Title("Clarus Narrative")
	fmt.Println()
	fmt.Println(n.Text)

	if n.WasFiltered {
		fmt.Println()
		ux.Info("The site filter adjusted this narrative.")
	}
	if ux.ShouldShowDisclaimer() {
		fmt.Println()
		ux.WarningBox("Clinical Use", report.Disclaimer)
	}
}
