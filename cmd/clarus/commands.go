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

	"github.com/ClarusHealth/ClarusRisk/cmd/clarus/config"
	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	narrativeInput   string
	narrativeBackend string
	narrativeJSON    bool
	narrativeTimeout int

	reportInput  string
	reportFormat string
	reportOutput string
	reportID     string

	keysStorePath string

	servePort     int
	serveBackend  string
	serveKeystore string
	serveMetrics  bool

	rootCmd = &cobra.Command{
		Use:   "clarus",
		Short: "A cli for the Clarus cardiovascular and renal risk platform",
		Long: `Clarus estimates long-term cardiovascular and renal risk from
				routine clinical measurements, stratifies the combined result,
				and shows the headroom an optimal modifiable profile would buy.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
			// Config failures fall back to defaults so read-only commands
			// still work on a broken install.
			if err := config.Load(); err != nil {
				ux.Warning(fmt.Sprintf("Could not load the config, continuing with defaults: %v", err))
				config.Global = config.DefaultConfig()
			}
		},
	}

	// --- Narrative / Reports ---
	narrativeCmd = &cobra.Command{
		Use:   "narrative",
		Short: "Generate a plain-language narrative for an assessed record",
		Run:   runNarrativeCommand, // Defined in cmd_narrative.go
	}
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Render an assessment to a PDF or XLSX file",
		Run:   runReportCommand, // Defined in cmd_report.go
	}

	// --- Key Store ---
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys in the local key store",
	}
	keysSetCmd = &cobra.Command{
		Use:   "set [provider] [key]",
		Short: "Store an API key for a provider (prompts when the key is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runKeysSet, // Defined in cmd_keys.go
	}
	keysListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored providers with key fingerprints (never values)",
		Run:   runKeysList, // Defined in cmd_keys.go
	}
	keysDeleteCmd = &cobra.Command{
		Use:   "delete [provider]",
		Short: "Remove a provider's key from the store",
		Args:  cobra.ExactArgs(1),
		Run:   runKeysDelete, // Defined in cmd_keys.go
	}

	// --- Dashboard ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the Clarus dashboard server in-process",
		Run:   runServeCommand, // Defined in cmd_serve.go
	}
)

// init runs when the Go program starts
func init() {
	// Global UX personality flag
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")

	rootCmd.AddCommand(narrativeCmd)
	narrativeCmd.Flags().StringVar(&narrativeInput, "input", "",
		"Patient record file (JSON or YAML)")
	narrativeCmd.Flags().StringVar(&narrativeBackend, "backend", "",
		"Narrative backend (ollama, openai, anthropic). Defaults to the configured one.")
	narrativeCmd.Flags().BoolVar(&narrativeJSON, "json", false,
		"Output as JSON")
	narrativeCmd.Flags().IntVar(&narrativeTimeout, "timeout", 120,
		"Generation timeout in seconds")

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportInput, "input", "",
		"Patient record file (JSON or YAML)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "pdf",
		"Report format: pdf or xlsx")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"Output path (default: generated name in the configured reports dir)")
	reportCmd.Flags().StringVar(&reportID, "id", "",
		"External record identifier printed on the report")

	// key store commands
	rootCmd.AddCommand(keysCmd)
	keysCmd.PersistentFlags().StringVar(&keysStorePath, "keystore", "",
		"Key store directory. Defaults to the configured one.")
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysDeleteCmd)

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Listen port. Defaults to the configured one.")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "",
		"Narrative backend (ollama, openai, anthropic). Defaults to the configured one.")
	serveCmd.Flags().StringVar(&serveKeystore, "keystore", "",
		"Key store directory. Defaults to the configured one.")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true,
		"Expose Prometheus metrics on /metrics")
}
