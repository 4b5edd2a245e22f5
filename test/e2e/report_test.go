// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportPDF(t *testing.T) {
	input := writeTestFile(t, "patient.json", highRiskRecordJSON)
	output := filepath.Join(t.TempDir(), "assessment.pdf")

	stdout, stderr, code := runCLI(t, "", "report", "--input", input, "--format", "pdf", "-o", output)
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, output) {
		t.Errorf("Expected the output path in the confirmation, got %q", stdout)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Expected a report at %s: %v", output, err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Error("The report does not look like a PDF")
	}
}

func TestReportXLSX(t *testing.T) {
	input := writeTestFile(t, "patient.json", lowRiskRecordJSON)
	output := filepath.Join(t.TempDir(), "assessment.xlsx")

	_, stderr, code := runCLI(t, "", "report",
		"--input", input, "--format", "xlsx", "-o", output, "--id", "PANEL-7")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d\nstderr: %s", code, stderr)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Expected a report at %s: %v", output, err)
	}
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Error("The report does not look like an XLSX file")
	}
}

func TestReportUnknownFormat(t *testing.T) {
	input := writeTestFile(t, "patient.json", lowRiskRecordJSON)

	_, stderr, code := runCLI(t, "", "report", "--input", input, "--format", "docx")
	if code != 2 {
		t.Fatalf("Expected exit 2 for an unsupported format, got %d", code)
	}
	if !strings.Contains(stderr, "Error") {
		t.Errorf("Expected an error message on stderr, got %q", stderr)
	}
}

func TestReportRejectsTraversalID(t *testing.T) {
	input := writeTestFile(t, "patient.json", lowRiskRecordJSON)

	_, _, code := runCLI(t, "", "report", "--input", input, "--id", "../escape")
	if code != 2 {
		t.Fatalf("Expected exit 2 for a traversal identifier, got %d", code)
	}
}
