// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package narrative

import (
	"fmt"
	"strings"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// BuildPrompt renders a risk assessment into the model prompt.
//
// # Description
//
// The prompt is fully deterministic: the same record, result, and optimal
// timeline always produce the same string, so prompt content can be asserted
// in tests and cached upstream. It contains the measurements and estimates
// the model needs and nothing else. No patient identifier ever enters the
// prompt; the function does not even accept one.
//
// # Inputs
//
//   - rec: The assessed record. Only clinical fields are read.
//   - result: The combined assessment output.
//   - optimal: Optional counterfactual cardiovascular timeline. When nil,
//     the headroom section and its writing instruction are omitted.
//
// # Outputs
//
//   - string: The complete prompt, ready for any narrative backend.
func BuildPrompt(rec riskengine.PatientRecord, result riskengine.RiskResult, optimal *riskengine.CardioTimeline) string {
	var b strings.Builder

	b.WriteString("Write a concise clinical summary of the following risk assessment for the treating clinician.\n\n")

	b.WriteString("Patient context:\n")
	fmt.Fprintf(&b, "- Age %.0f, %s\n", rec.Age, rec.Sex)
	if bmi := rec.BMI(); bmi > 0 {
		fmt.Fprintf(&b, "- Body mass index %.1f\n", bmi)
	}
	fmt.Fprintf(&b, "- Current smoker: %s\n", yesNo(rec.Smoker))
	fmt.Fprintf(&b, "- Diabetes: %s\n", yesNo(rec.Diabetes))
	fmt.Fprintf(&b, "- On blood pressure medication: %s\n", yesNo(rec.OnHypertensionMeds))
	fmt.Fprintf(&b, "- On statin therapy: %s\n", yesNo(rec.OnStatins))

	b.WriteString("\nMeasurements:\n")
	fmt.Fprintf(&b, "- Blood pressure %.0f/%.0f mmHg\n", rec.SystolicBP, rec.DiastolicBP)
	fmt.Fprintf(&b, "- Total cholesterol %.0f mg/dL, HDL %.0f mg/dL\n", rec.TotalCholesterol, rec.HDLCholesterol)
	fmt.Fprintf(&b, "- eGFR %.0f mL/min/1.73m2, urine ACR %.1f mg/g\n", rec.EGFR, rec.ACR)

	b.WriteString("\nModel estimates (population-based, not individual predictions):\n")
	fmt.Fprintf(&b, "- Cardiovascular event risk: %.1f%% at 5 years, %.1f%% at 10 years, %.1f%% at 15 years\n",
		result.Cardio.FiveYear, result.Cardio.TenYear, result.Cardio.FifteenYear)
	fmt.Fprintf(&b, "- Kidney failure risk: %.1f%% at 2 years, %.1f%% at 5 years, %.1f%% at 10 years\n",
		result.Renal.TwoYear, result.Renal.FiveYear, result.Renal.TenYear)
	fmt.Fprintf(&b, "- Combined risk level: %s\n", result.Level)
	fmt.Fprintf(&b, "- Long-term cardiovascular projection: %.1f%%\n", result.LongTerm)

	if optimal != nil {
		fmt.Fprintf(&b, "\nIf the modifiable risk factors reached target values (blood pressure 115/75, "+
			"total cholesterol 160, HDL 55, non-smoking), the 10-year cardiovascular estimate "+
			"would be %.1f%% instead of %.1f%%.\n", optimal.TenYear, result.Cardio.TenYear)
	}

	fmt.Fprintf(&b, "\nSuggested follow-up: %s.\n", riskengine.Recommendations[result.Level])

	b.WriteString("\n")
	if optimal != nil {
		b.WriteString("Write three short paragraphs: the current risk picture, what drives it, " +
			"and the headroom under target risk-factor values.\n")
	} else {
		b.WriteString("Write two short paragraphs: the current risk picture and what drives it.\n")
	}
	b.WriteString("Requirements:\n")
	b.WriteString("- Plain language a clinician can skim.\n")
	b.WriteString("- Do not recommend specific medications or doses.\n")
	b.WriteString("- Do not state or invent any value that is not listed above.\n")
	b.WriteString("- Refer to the patient only as \"the patient\"; never use a name or identifier.\n")
	b.WriteString("- Note that the figures are population-derived estimates, not individual predictions.\n")

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
