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

import "math"

// Four-variable kidney-failure risk equation (Tangri et al., JAMA 2011),
// North American calibration. Each covariate is centered on its derivation
// cohort mean before weighting: age per decade, male-sex indicator, eGFR
// per 5 mL/min/1.73m², and the natural log of ACR.
const (
	renalAgeCoef    = -0.2201
	renalAgeCenter  = 7.036
	renalSexCoef    = 0.2467
	renalSexCenter  = 0.5642
	renalEGFRCoef   = -0.5567
	renalEGFRCenter = 7.222
	renalACRCoef    = 0.4510
	renalACRCenter  = 5.137
)

// Baseline event-free survival of the reference cohort per horizon. Unlike
// the cardiovascular model, each horizon carries its own constant. The 2-
// and 5-year values are fitted; the published equation defines no 10-year
// baseline, so that value is a linear extension of the first two and
// should be read as an estimate, not a fitted constant.
const (
	renalBaseline2y  = 0.9832
	renalBaseline5y  = 0.9365
	renalBaseline10y = 0.8587
)

// ComputeRenalRisk evaluates the kidney-failure risk equation for one
// record at the 2-, 5-, and 10-year horizons.
//
// # Description
//
// A linear predictor over the four centered covariates is exponentiated
// into a hazard multiplier; each horizon's baseline survival is raised to
// that multiplier and the complement reported as a percentage. Outputs
// are not clamped: extreme inputs can mathematically exceed ordinary
// bounds and the value is reported as computed. Age is not clamped here;
// the 30-79 window applies only to the cardiovascular model, and that
// asymmetry is preserved deliberately.
//
// # Inputs
//
//   - rec: patient record. ACR must be strictly positive (logarithm
//     argument); see Validate.
//
// # Outputs
//
//   - RenalTimeline: percentages at 2, 5, and 10 years, unclamped.
func ComputeRenalRisk(rec PatientRecord) RenalTimeline {
	maleIndicator := 0.0
	if rec.Sex == SexMale {
		maleIndicator = 1.0
	}

	lp := renalAgeCoef*(rec.Age/10-renalAgeCenter) +
		renalSexCoef*(maleIndicator-renalSexCenter) +
		renalEGFRCoef*(rec.EGFR/5-renalEGFRCenter) +
		renalACRCoef*(math.Log(rec.ACR)-renalACRCenter)

	hazard := math.Exp(lp)

	return RenalTimeline{
		TwoYear:  renalRiskFrom(renalBaseline2y, hazard),
		FiveYear: renalRiskFrom(renalBaseline5y, hazard),
		TenYear:  renalRiskFrom(renalBaseline10y, hazard),
	}
}

// renalRiskFrom converts a baseline survival and hazard multiplier into an
// event probability percentage.
func renalRiskFrom(baselineSurvival, hazard float64) float64 {
	return (1 - math.Pow(baselineSurvival, hazard)) * 100
}
