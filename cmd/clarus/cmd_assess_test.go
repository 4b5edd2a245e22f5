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
	"encoding/json"
	"strings"
	"testing"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// resetAssessFlags restores the package flag state tests mutate.
func resetAssessFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		assessInput = ""
		assessInteractive = false
		assessThreshold = "high"
		assessStrict = false
		assessPermissive = false
		assessJSON = false
		assessQuiet = false
		assessAge = 0
		assessSex = ""
		assessHeight = 0
		assessWeight = 0
		assessSystolic = 0
		assessDiastolic = 0
		assessTotalChol = 0
		assessHDLChol = 0
		assessEGFR = 0
		assessACR = 0
		assessDiabetes = false
		assessSmoker = false
		assessBPMeds = false
		assessStatins = false
	})
}

// TestAssessThresholdLevel tests the exit-gate resolution from flags.
func TestAssessThresholdLevel(t *testing.T) {
	tests := []struct {
		name       string
		strict     bool
		permissive bool
		threshold  string
		want       riskengine.RiskLevel
	}{
		{"default", false, false, "high", riskengine.RiskHigh},
		{"explicit_moderate", false, false, "moderate", riskengine.RiskModerate},
		{"medium_alias", false, false, "medium", riskengine.RiskModerate},
		{"strict_wins", true, false, "very_high", riskengine.RiskLow},
		{"permissive", false, true, "low", riskengine.RiskVeryHigh},
		{"strict_beats_permissive", true, true, "high", riskengine.RiskLow},
		{"unknown_fails_closed", false, false, "sideways", riskengine.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetAssessFlags(t)
			assessStrict = tt.strict
			assessPermissive = tt.permissive
			assessThreshold = tt.threshold

			if got := assessThresholdLevel(); got != tt.want {
				t.Errorf("assessThresholdLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRecordFromFlags tests the flag-to-record mapping.
func TestRecordFromFlags(t *testing.T) {
	resetAssessFlags(t)

	assessAge = 61
	assessSex = "F"
	assessHeight = 162
	assessWeight = 70
	assessSystolic = 142
	assessDiastolic = 88
	assessTotalChol = 228
	assessHDLChol = 51
	assessEGFR = 64
	assessACR = 31
	assessDiabetes = true
	assessSmoker = false
	assessBPMeds = true
	assessStatins = true

	rec := recordFromFlags()

	if rec.Age != 61 {
		t.Errorf("Age = %v, want 61", rec.Age)
	}
	if rec.Sex != riskengine.SexFemale {
		t.Errorf("Sex = %q, want %q (parsed from %q)", rec.Sex, riskengine.SexFemale, "F")
	}
	if rec.SystolicBP != 142 {
		t.Errorf("SystolicBP = %v, want 142", rec.SystolicBP)
	}
	if !rec.Diabetes || !rec.OnHypertensionMeds || !rec.OnStatins {
		t.Errorf("status flags = %v/%v/%v, want true/true/true",
			rec.Diabetes, rec.OnHypertensionMeds, rec.OnStatins)
	}
	if rec.Smoker {
		t.Error("Smoker = true, want false")
	}

	// The assembled record satisfies the engine preconditions.
	if err := riskengine.Validate(rec); err != nil {
		t.Errorf("Validate(recordFromFlags()) = %v, want nil", err)
	}
}

// TestResolveAssessRecord_NoSource tests the missing-record error.
func TestResolveAssessRecord_NoSource(t *testing.T) {
	resetAssessFlags(t)

	_, err := resolveAssessRecord(assessCmd)
	if err == nil {
		t.Fatal("expected error when no record source is given")
	}
	if !strings.Contains(err.Error(), "--input") {
		t.Errorf("error = %q, want usage hint mentioning --input", err)
	}
}

// TestResolveAssessRecord_FileWins tests file precedence over flags.
func TestResolveAssessRecord_FileWins(t *testing.T) {
	resetAssessFlags(t)

	assessInput = writeRecordFile(t, "record.json", recordJSON)
	assessAge = 99 // Should be ignored while --input is set

	rec, err := resolveAssessRecord(assessCmd)
	if err != nil {
		t.Fatalf("resolveAssessRecord failed: %v", err)
	}
	if rec.Age != 54 {
		t.Errorf("Age = %v, want 54 from the file", rec.Age)
	}
}

// TestAssessOutputShape tests the automation JSON field names.
func TestAssessOutputShape(t *testing.T) {
	rec := riskengine.PatientRecord{
		Age: 54, Sex: riskengine.SexMale,
		SystolicBP: 128, TotalCholesterol: 210, HDLCholesterol: 46,
		EGFR: 88, ACR: 12,
	}
	result := riskengine.Assess(rec)
	optimal := riskengine.ComputeOptimalRisk(rec)

	data, err := json.Marshal(assessOutput{
		EngineVersion:  riskengine.EngineVersion,
		Record:         rec,
		Result:         result,
		Optimal:        optimal,
		Recommendation: riskengine.Recommendations[result.Level],
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, key := range []string{
		`"engine_version"`, `"record"`, `"result"`, `"optimal"`,
		`"recommendation"`, `"combined_level"`, `"ten_year"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON output missing %s", key)
		}
	}
}
