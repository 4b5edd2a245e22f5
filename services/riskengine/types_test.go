// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package riskengine

import (
	"math"
	"testing"
)

// TestParseSex tests sex parsing including shorthands and case folding.
func TestParseSex(t *testing.T) {
	tests := []struct {
		input   string
		want    Sex
		wantErr bool
	}{
		{"male", SexMale, false},
		{"MALE", SexMale, false},
		{"m", SexMale, false},
		{"female", SexFemale, false},
		{"Female", SexFemale, false},
		{"f", SexFemale, false},
		{" male ", SexMale, false},
		{"other", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSex(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSex_Valid tests variant checking.
func TestSex_Valid(t *testing.T) {
	if !SexMale.Valid() || !SexFemale.Valid() {
		t.Error("defined variants should be valid")
	}
	if Sex("unknown").Valid() {
		t.Error("undefined variant should be invalid")
	}
	if Sex("").Valid() {
		t.Error("zero value should be invalid")
	}
}

// TestParseRiskLevel tests level parsing and the fail-closed default.
func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		input string
		want  RiskLevel
	}{
		{"low", RiskLow},
		{"LOW", RiskLow},
		{"moderate", RiskModerate},
		{"medium", RiskModerate},
		{"high", RiskHigh},
		{"very_high", RiskVeryHigh},
		{"very-high", RiskVeryHigh},
		{"VERY_HIGH", RiskVeryHigh},
		{"unknown", RiskHigh}, // Fail closed
		{"", RiskHigh},        // Fail closed
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseRiskLevel(tt.input); got != tt.want {
				t.Errorf("ParseRiskLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

// TestRiskLevel_Order tests severity ordering.
func TestRiskLevel_Order(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  int
	}{
		{RiskLow, 0},
		{RiskModerate, 1},
		{RiskHigh, 2},
		{RiskVeryHigh, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Order(); got != tt.want {
				t.Errorf("RiskLevel(%s).Order() = %d, want %d", tt.level, got, tt.want)
			}
		})
	}
}

// TestRiskLevel_Exceeds tests threshold comparison.
func TestRiskLevel_Exceeds(t *testing.T) {
	tests := []struct {
		level     RiskLevel
		threshold RiskLevel
		want      bool
	}{
		{RiskLow, RiskLow, false},
		{RiskModerate, RiskLow, true},
		{RiskHigh, RiskModerate, true},
		{RiskVeryHigh, RiskHigh, true},
		{RiskLow, RiskHigh, false},
		{RiskModerate, RiskVeryHigh, false},
		{RiskVeryHigh, RiskVeryHigh, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level)+"_exceeds_"+string(tt.threshold), func(t *testing.T) {
			if got := tt.level.Exceeds(tt.threshold); got != tt.want {
				t.Errorf("RiskLevel(%s).Exceeds(%s) = %v, want %v",
					tt.level, tt.threshold, got, tt.want)
			}
		})
	}
}

// TestRecommendations tests that every level has follow-up wording.
func TestRecommendations(t *testing.T) {
	for _, level := range []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh} {
		if Recommendations[level] == "" {
			t.Errorf("missing recommendation for %s", level)
		}
	}
}

// TestPatientRecord_BMI tests derived BMI and the zero-height guard.
func TestPatientRecord_BMI(t *testing.T) {
	tests := []struct {
		name     string
		heightCm float64
		weightKg float64
		want     float64
	}{
		{"average", 175, 70, 70 / (1.75 * 1.75)},
		{"tall", 190, 95, 95 / (1.90 * 1.90)},
		{"zero_height", 0, 70, 0},
		{"negative_height", -10, 70, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := PatientRecord{HeightCm: tt.heightCm, WeightKg: tt.weightKg}
			if got := rec.BMI(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("BMI() = %v, want %v", got, tt.want)
			}
		})
	}
}
