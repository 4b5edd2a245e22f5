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
	"fmt"
	"strings"
)

// EngineVersion is the version of the risk computation core.
// Increment when a coefficient, constant, or combination rule changes.
const EngineVersion = "1.0"

// Exit codes for threshold-gated assessments (used by the CLI and CI hooks).
const (
	ExitSuccess        = 0 // Combined level at or below threshold
	ExitAboveThreshold = 1 // Combined level above threshold
	ExitError          = 2 // Invalid input or assessment failure
)

// =============================================================================
// Sex
// =============================================================================

// Sex is the biological sex category used to select the cardiovascular
// coefficient vector and the renal sex indicator. It is deliberately a
// two-variant enumeration rather than a boolean so the model branching
// stays self-documenting.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex parses a string into a Sex value. Matching is case-insensitive
// and accepts the single-letter shorthands "m" and "f".
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return SexMale, nil
	case "female", "f":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("unknown sex %q (want %q or %q)", s, SexMale, SexFemale)
	}
}

// Valid reports whether the value is one of the two defined variants.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// =============================================================================
// Patient Record
// =============================================================================

// PatientRecord is the immutable input to one risk computation.
//
// # Fields
//
//   - Age: years. The cardiovascular model is clinically valid for 30-79
//     and clamps internally to that window; the stored value is never
//     modified.
//   - Sex: biological sex, see Sex.
//   - HeightCm / WeightKg: anthropometrics. Used only for the derived BMI;
//     neither model consumes them.
//   - SystolicBP / DiastolicBP: mmHg. Systolic feeds the cardiovascular
//     model through a logarithm and must be positive.
//   - TotalCholesterol / HDLCholesterol: mg/dL, both logarithm arguments.
//   - EGFR: estimated glomerular filtration rate, mL/min/1.73m².
//   - ACR: urine albumin-to-creatinine ratio, mg/g. Strictly positive; it
//     feeds the renal model through a logarithm.
//   - Diabetes, Smoker, OnHypertensionMeds, OnStatins: status flags. The
//     hypertension-medication flag selects between two systolic-pressure
//     coefficients; the statin flag applies a fixed relative risk
//     reduction to cardiovascular output.
//
// # Thread Safety
//
// PatientRecord is a plain value; copies are independent. The engine never
// retains or mutates a caller's record.
type PatientRecord struct {
	Age              float64 `json:"age" yaml:"age"`
	Sex              Sex     `json:"sex" yaml:"sex"`
	HeightCm         float64 `json:"height_cm" yaml:"height_cm"`
	WeightKg         float64 `json:"weight_kg" yaml:"weight_kg"`
	SystolicBP       float64 `json:"systolic_bp" yaml:"systolic_bp"`
	DiastolicBP      float64 `json:"diastolic_bp" yaml:"diastolic_bp"`
	TotalCholesterol float64 `json:"total_cholesterol" yaml:"total_cholesterol"`
	HDLCholesterol   float64 `json:"hdl_cholesterol" yaml:"hdl_cholesterol"`
	EGFR             float64 `json:"egfr" yaml:"egfr"`
	ACR              float64 `json:"acr" yaml:"acr"`

	Diabetes           bool `json:"diabetes" yaml:"diabetes"`
	Smoker             bool `json:"smoker" yaml:"smoker"`
	OnHypertensionMeds bool `json:"on_hypertension_meds" yaml:"on_hypertension_meds"`
	OnStatins          bool `json:"on_statins" yaml:"on_statins"`
}

// BMI returns weight/height² in kg/m². It is a presentation convenience:
// neither risk model consumes it, and the engine never checks a supplied
// BMI against the derived one. Returns 0 when height is non-positive.
func (r PatientRecord) BMI() float64 {
	if r.HeightCm <= 0 {
		return 0
	}
	heightM := r.HeightCm / 100
	return r.WeightKg / (heightM * heightM)
}

// =============================================================================
// Timelines
// =============================================================================

// CardioTimeline holds cardiovascular event risk percentages at the three
// projected horizons. Every value lies in [0.1, 100].
type CardioTimeline struct {
	FiveYear    float64 `json:"five_year"`
	TenYear     float64 `json:"ten_year"`
	FifteenYear float64 `json:"fifteen_year"`
}

// RenalTimeline holds kidney-failure risk percentages at the three renal
// horizons. Renal outputs are intentionally unclamped: extreme inputs can
// produce values outside ordinary bounds, and that is accepted behavior
// rather than something to correct silently.
type RenalTimeline struct {
	TwoYear  float64 `json:"two_year"`
	FiveYear float64 `json:"five_year"`
	TenYear  float64 `json:"ten_year"`
}

// =============================================================================
// Risk Level
// =============================================================================

// RiskLevel is the combined qualitative tier derived from the ten-year
// cardiovascular and five-year renal figures.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// ParseRiskLevel parses a string to a RiskLevel. Unknown input defaults to
// RiskHigh so a mistyped CLI threshold fails closed rather than open.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "moderate", "medium":
		return RiskModerate
	case "high":
		return RiskHigh
	case "very_high", "very-high", "veryhigh":
		return RiskVeryHigh
	default:
		return RiskHigh
	}
}

// Order returns the numeric severity order of this level (low = 0).
func (l RiskLevel) Order() int {
	switch l {
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskVeryHigh:
		return 3
	default:
		return 0
	}
}

// Exceeds reports whether this level is strictly more severe than the
// threshold.
func (l RiskLevel) Exceeds(threshold RiskLevel) bool {
	return l.Order() > threshold.Order()
}

// Recommendations maps each combined level to the follow-up wording shown
// on reports and CLI output.
var Recommendations = map[RiskLevel]string{
	RiskLow:      "Maintain current lifestyle; reassess at routine intervals",
	RiskModerate: "Discuss modifiable risk factors at the next scheduled visit",
	RiskHigh:     "Clinical follow-up recommended; review blood pressure and lipid management",
	RiskVeryHigh: "Prompt clinical review recommended across cardiovascular and renal findings",
}

// =============================================================================
// Result
// =============================================================================

// RiskResult is the complete output of one assessment. It is freshly
// constructed on every call and carries no identity beyond that call:
// recomputing with an identical record yields a bit-identical value.
//
// LongTerm is the ten-year cardiovascular risk scaled by a fixed factor
// and capped at 100. It is a crude multiplicative projection for charting,
// not a separately fitted model, and must not be read as clinically
// validated.
type RiskResult struct {
	Cardio   CardioTimeline `json:"cardiovascular"`
	Renal    RenalTimeline  `json:"renal"`
	Level    RiskLevel      `json:"combined_level"`
	LongTerm float64        `json:"long_term"`
}
