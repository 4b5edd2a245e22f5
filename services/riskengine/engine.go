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

// =============================================================================
// Stratification Thresholds
// =============================================================================

// Combined-level tier boundaries over the ten-year cardiovascular and
// five-year renal percentages. Comparison is strict greater-than, checked
// most severe first: a value on a boundary belongs to the tier below it.
const (
	veryHighCardioThreshold = 20.0
	veryHighRenalThreshold  = 15.0
	highCardioThreshold     = 10.0
	highRenalThreshold      = 10.0
	moderateCardioThreshold = 5.0
	moderateRenalThreshold  = 5.0
)

// longTermScale projects the ten-year cardiovascular figure to the
// long-term display value. A crude multiplicative extrapolation for
// charting, capped at 100; it carries no clinical validation of its own.
const longTermScale = 2.5

// Counterfactual values forced onto the modifiable fields by
// ComputeOptimalRisk. Diabetes and the renal and demographic fields are
// deliberately carried through unchanged so the comparison isolates
// blood-pressure, lipid, and smoking headroom.
const (
	optimalSystolicBP       = 115.0
	optimalDiastolicBP      = 75.0
	optimalTotalCholesterol = 160.0
	optimalHDLCholesterol   = 55.0
)

// =============================================================================
// Assessment
// =============================================================================

// Assess computes both sub-models for one record and combines them. It is
// the engine's single logical boundary: a pure function from PatientRecord
// to RiskResult with no I/O, no shared state, and no time dependence.
// Callers at input boundaries should run Validate first; Assess itself
// assumes the documented preconditions hold.
func Assess(rec PatientRecord) RiskResult {
	return Combine(ComputeCardiovascularRisk(rec), ComputeRenalRisk(rec))
}

// Combine merges the two sub-model timelines into a RiskResult, deriving
// the combined level and the long-term extrapolation.
//
// The level tiers are evaluated in order from most to least severe and the
// first match wins; a figure that satisfies several tiers therefore lands
// on the highest one. Boundary values use strict greater-than: a ten-year
// cardiovascular risk of exactly 20.0 is high, not very_high.
func Combine(cardio CardioTimeline, renal RenalTimeline) RiskResult {
	var level RiskLevel
	switch {
	case cardio.TenYear > veryHighCardioThreshold || renal.FiveYear > veryHighRenalThreshold:
		level = RiskVeryHigh
	case cardio.TenYear > highCardioThreshold || renal.FiveYear > highRenalThreshold:
		level = RiskHigh
	case cardio.TenYear > moderateCardioThreshold || renal.FiveYear > moderateRenalThreshold:
		level = RiskModerate
	default:
		level = RiskLow
	}

	longTerm := cardio.TenYear * longTermScale
	if longTerm > 100 {
		longTerm = 100
	}

	return RiskResult{
		Cardio:   cardio,
		Renal:    renal,
		Level:    level,
		LongTerm: longTerm,
	}
}

// ComputeOptimalRisk evaluates the cardiovascular model on a counterfactual
// copy of the record whose modifiable fields are set to target values:
// systolic 115, diastolic 75, total cholesterol 160, HDL 55, non-smoking,
// no hypertension medication, no statins. Everything else, including
// diabetes status, carries through unchanged. The result is the "best
// achievable" cardiovascular timeline used to visualize treatment headroom
// against the actual projection.
func ComputeOptimalRisk(rec PatientRecord) CardioTimeline {
	optimal := rec
	optimal.SystolicBP = optimalSystolicBP
	optimal.DiastolicBP = optimalDiastolicBP
	optimal.TotalCholesterol = optimalTotalCholesterol
	optimal.HDLCholesterol = optimalHDLCholesterol
	optimal.Smoker = false
	optimal.OnHypertensionMeds = false
	optimal.OnStatins = false

	return ComputeCardiovascularRisk(optimal)
}
