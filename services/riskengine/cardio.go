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

// =============================================================================
// Model Constants
// =============================================================================

const (
	// Age window the pooled-cohort equations were derived on. The model
	// input is clamped to this window; the caller's record is untouched.
	cardioMinModelAge = 30.0
	cardioMaxModelAge = 79.0

	// Horizon the baseline survival constants were fitted at. Other
	// horizons are projected by exponentiating the baseline survival to
	// t/10, a constant-hazard approximation the upstream equations do not
	// define natively.
	cardioReferenceHorizon = 10.0

	// Relative risk retained under statin therapy. Applied after the
	// survival exponentiation and before the final clamp, at every horizon.
	statinRiskFactor = 0.75

	// Output clamp, percentage units.
	cardioMinRiskPct = 0.1
	cardioMaxRiskPct = 100.0
)

// cardioCoefficients is one sex stratum of the pooled-cohort equations
// (Goff et al., 2013 ACC/AHA guideline, white/other cohort). The two
// systolic terms encode the treatment-effect modifier: the coefficient
// differs by antihypertensive-medication status.
//
// The squared log-age term is zero for the male stratum; only the female
// equation carries it.
type cardioCoefficients struct {
	lnAge          float64
	lnAgeSquared   float64
	lnTotalChol    float64
	lnAgeLnTC      float64
	lnHDL          float64
	lnAgeLnHDL     float64
	lnSBPTreated   float64
	lnSBPUntreated float64
	smoker         float64
	lnAgeSmoker    float64
	diabetes       float64

	// meanLP is the cohort mean linear predictor subtracted before
	// exponentiation; baselineSurvival is the cohort event-free
	// probability at the reference horizon.
	meanLP           float64
	baselineSurvival float64
}

var cardioMale = cardioCoefficients{
	lnAge:            12.344,
	lnTotalChol:      11.853,
	lnAgeLnTC:        -2.664,
	lnHDL:            -7.990,
	lnAgeLnHDL:       1.769,
	lnSBPTreated:     1.797,
	lnSBPUntreated:   1.764,
	smoker:           7.837,
	lnAgeSmoker:      -1.795,
	diabetes:         0.658,
	meanLP:           61.18,
	baselineSurvival: 0.9144,
}

var cardioFemale = cardioCoefficients{
	lnAge:            -29.799,
	lnAgeSquared:     4.884,
	lnTotalChol:      13.540,
	lnAgeLnTC:        -3.114,
	lnHDL:            -13.578,
	lnAgeLnHDL:       3.149,
	lnSBPTreated:     2.019,
	lnSBPUntreated:   1.957,
	smoker:           7.574,
	lnAgeSmoker:      -1.665,
	diabetes:         0.661,
	meanLP:           -29.18,
	baselineSurvival: 0.9665,
}

// =============================================================================
// Cardiovascular Model
// =============================================================================

// ComputeCardiovascularRisk evaluates the pooled-cohort cardiovascular
// model for one record and projects it to the 5-, 10-, and 15-year
// horizons.
//
// # Description
//
// The model is a sex-stratified proportional-hazards form: a linear
// combination of log-transformed covariates and their interactions is
// centered on the cohort mean and exponentiated into an individual risk
// multiplier, which then scales the cohort baseline survival. The
// systolic-pressure coefficient is selected by the
// hypertension-medication flag. Horizons other than ten years reuse the
// ten-year baseline under a constant-hazard assumption; that scaling is
// reproduced exactly as the source equations use it rather than replaced
// with a fitted multi-horizon model.
//
// Active statin therapy multiplies each horizon's risk by 0.75 after the
// survival exponentiation and before clamping. Each output is clamped to
// [0.1, 100].
//
// # Inputs
//
//   - rec: patient record. Age, total cholesterol, HDL cholesterol, and
//     systolic pressure must be strictly positive (logarithm arguments).
//
// # Outputs
//
//   - CardioTimeline: percentages at 5, 10, and 15 years, each in
//     [0.1, 100].
//
// # Examples
//
//	tl := riskengine.ComputeCardiovascularRisk(rec)
//	fmt.Printf("10y: %.1f%%\n", tl.TenYear)
//
// # Limitations
//
//   - Derived for ages 30-79; the model input is clamped to that window.
//   - Outputs are population estimates, not diagnoses.
//
// # Assumptions
//
//   - Preconditions hold (see Validate). A non-positive logarithm argument
//     yields unspecified NaN/Inf-propagating results; the engine never
//     substitutes defaults for such inputs because that would mask a
//     caller bug.
func ComputeCardiovascularRisk(rec PatientRecord) CardioTimeline {
	return CardioTimeline{
		FiveYear:    cardiovascularRiskAt(rec, 5),
		TenYear:     cardiovascularRiskAt(rec, cardioReferenceHorizon),
		FifteenYear: cardiovascularRiskAt(rec, 15),
	}
}

// cardiovascularRiskAt computes the event probability at a single horizon,
// as a percentage.
func cardiovascularRiskAt(rec PatientRecord, horizonYears float64) float64 {
	coef := cardioMale
	if rec.Sex == SexFemale {
		coef = cardioFemale
	}

	age := clamp(rec.Age, cardioMinModelAge, cardioMaxModelAge)
	lnAge := math.Log(age)
	lnTC := math.Log(rec.TotalCholesterol)
	lnHDL := math.Log(rec.HDLCholesterol)
	lnSBP := math.Log(rec.SystolicBP)

	sbpCoef := coef.lnSBPUntreated
	if rec.OnHypertensionMeds {
		sbpCoef = coef.lnSBPTreated
	}

	lp := coef.lnAge*lnAge +
		coef.lnAgeSquared*lnAge*lnAge +
		coef.lnTotalChol*lnTC +
		coef.lnAgeLnTC*lnAge*lnTC +
		coef.lnHDL*lnHDL +
		coef.lnAgeLnHDL*lnAge*lnHDL +
		sbpCoef*lnSBP
	if rec.Smoker {
		lp += coef.smoker + coef.lnAgeSmoker*lnAge
	}
	if rec.Diabetes {
		lp += coef.diabetes
	}

	multiplier := math.Exp(lp - coef.meanLP)
	survival := math.Pow(coef.baselineSurvival, horizonYears/cardioReferenceHorizon)
	risk := (1 - math.Pow(survival, multiplier)) * 100

	if rec.OnStatins {
		risk *= statinRiskFactor
	}

	return clamp(risk, cardioMinRiskPct, cardioMaxRiskPct)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
