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
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ClarusHealth/ClarusRisk/cmd/clarus/config"
	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/services/report"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

func runReportCommand(cmd *cobra.Command, args []string) {
	if reportInput == "" {
		outputReportError("No patient record", fmt.Errorf("pass --input FILE"))
		os.Exit(riskengine.ExitError)
	}

	format := strings.ToLower(strings.TrimSpace(reportFormat))
	writer, err := reportWriter(format)
	if err != nil {
		outputReportError("Unsupported format", err)
		os.Exit(riskengine.ExitError)
	}

	record, err := loadRecordFile(reportInput)
	if err != nil {
		outputReportError("Failed to load record", err)
		os.Exit(riskengine.ExitError)
	}
	if err := riskengine.Validate(record); err != nil {
		outputReportError("Invalid patient record", err)
		os.Exit(riskengine.ExitError)
	}

	optimal := riskengine.ComputeOptimalRisk(record)
	data := report.Data{
		ExternalID:  reportID,
		GeneratedAt: time.Now().UTC(),
		Record:      record,
		Result:      riskengine.Assess(record),
		Optimal:     &optimal,
	}

	outPath, err := resolveReportPath(format, data.GeneratedAt)
	if err != nil {
		outputReportError("Failed to resolve output path", err)
		os.Exit(riskengine.ExitError)
	}

	f, err := os.Create(outPath)
	if err != nil {
		outputReportError("Failed to create output file", err)
		os.Exit(riskengine.ExitError)
	}
	if err := writer(f, data); err != nil {
		f.Close()
		os.Remove(outPath)
		outputReportError("Failed to render report", err)
		os.Exit(riskengine.ExitError)
	}
	if err := f.Close(); err != nil {
		outputReportError("Failed to finish output file", err)
		os.Exit(riskengine.ExitError)
	}

	ux.Success(fmt.Sprintf("Wrote %s", outPath))
	os.Exit(riskengine.ExitSuccess)
}

// reportWriter picks the document writer for a format.
func reportWriter(format string) (func(io.Writer, report.Data) error, error) {
	switch format {
	case "pdf":
		return report.WritePDF, nil
	case "xlsx":
		return report.WriteXLSX, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want pdf or xlsx)", format)
	}
}

// resolveReportPath honors --output, otherwise builds a generated name in
// the configured reports directory (current directory when unset).
func resolveReportPath(format string, generatedAt time.Time) (string, error) {
	if reportOutput != "" {
		return reportOutput, nil
	}

	name, err := report.FileName(reportID, generatedAt, format)
	if err != nil {
		return "", err
	}

	dir := config.Global.Reports.Dir
	if dir == "" {
		return name, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func outputReportError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
