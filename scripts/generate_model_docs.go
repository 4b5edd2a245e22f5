// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// generate_model_docs renders the model reference card as markdown.
//
// Usage:
//
//	go run scripts/generate_model_docs.go > docs/model_reference.md
//
// The card runs a fixed set of reference profiles through the released
// engine and tabulates the computed estimates, so a diff of the generated
// file shows reviewers exactly which outputs moved when the engine
// changes. The profiles are synthetic; none describes a real patient.
package main

import (
	"fmt"
	"time"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// referenceProfile pairs a label with a synthetic record. Keep the set
// append-only: removing a profile hides a regression from the diff.
type referenceProfile struct {
	Label  string
	Record riskengine.PatientRecord
}

var referenceProfiles = []referenceProfile{
	{
		Label: "Low-risk baseline (female, 45)",
		Record: riskengine.PatientRecord{
			Age: 45, Sex: riskengine.SexFemale,
			HeightCm: 165, WeightKg: 62,
			SystolicBP: 112, DiastolicBP: 72,
			TotalCholesterol: 170, HDLCholesterol: 62,
			EGFR: 98, ACR: 5,
		},
	},
	{
		Label: "Moderate cardiovascular (male, 55)",
		Record: riskengine.PatientRecord{
			Age: 55, Sex: riskengine.SexMale,
			HeightCm: 176, WeightKg: 84,
			SystolicBP: 132, DiastolicBP: 84,
			TotalCholesterol: 205, HDLCholesterol: 44,
			EGFR: 85, ACR: 12,
		},
	},
	{
		Label: "High combined (male, 62, smoker)",
		Record: riskengine.PatientRecord{
			Age: 62, Sex: riskengine.SexMale,
			HeightCm: 178, WeightKg: 91,
			SystolicBP: 148, DiastolicBP: 92,
			TotalCholesterol: 210, HDLCholesterol: 38,
			EGFR: 55, ACR: 120,
			Smoker: true, OnHypertensionMeds: true,
		},
	},
	{
		Label: "Very high renal (female, 70, diabetic)",
		Record: riskengine.PatientRecord{
			Age: 70, Sex: riskengine.SexFemale,
			HeightCm: 160, WeightKg: 74,
			SystolicBP: 152, DiastolicBP: 88,
			TotalCholesterol: 228, HDLCholesterol: 41,
			EGFR: 32, ACR: 480,
			Diabetes: true, OnHypertensionMeds: true,
		},
	},
}

func main() {
	fmt.Println("# Clarus Model Reference Card")
	fmt.Println()
	fmt.Printf("Engine version: %s\n", riskengine.EngineVersion)
	fmt.Printf("Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Println()
	fmt.Println("All figures are population-derived estimates for synthetic reference")
	fmt.Println("profiles. Regenerate this file whenever the engine changes and review")
	fmt.Println("the diff before release.")
	fmt.Println()

	fmt.Println("## Reference profiles")
	fmt.Println()
	fmt.Println("| Profile | CV 5y | CV 10y | CV 15y | Renal 2y | Renal 5y | Renal 10y | Level | Optimal CV 10y |")
	fmt.Println("|---------|------:|-------:|-------:|---------:|---------:|----------:|-------|---------------:|")

	counts := map[riskengine.RiskLevel]int{}
	for _, profile := range referenceProfiles {
		result := riskengine.Assess(profile.Record)
		optimal := riskengine.ComputeOptimalRisk(profile.Record)
		counts[result.Level]++

		fmt.Printf("| %s | %.1f%% | %.1f%% | %.1f%% | %.1f%% | %.1f%% | %.1f%% | %s | %.1f%% |\n",
			profile.Label,
			result.Cardio.FiveYear, result.Cardio.TenYear, result.Cardio.FifteenYear,
			result.Renal.TwoYear, result.Renal.FiveYear, result.Renal.TenYear,
			result.Level, optimal.TenYear)
	}

	fmt.Println()
	fmt.Println("## Follow-up recommendations")
	fmt.Println()
	fmt.Println("| Level | Suggested follow-up |")
	fmt.Println("|-------|---------------------|")
	for _, level := range []riskengine.RiskLevel{
		riskengine.RiskLow, riskengine.RiskModerate, riskengine.RiskHigh, riskengine.RiskVeryHigh,
	} {
		fmt.Printf("| %s | %s |\n", level, riskengine.Recommendations[level])
	}

	fmt.Println()
	fmt.Println("## Summary")
	fmt.Println()
	fmt.Printf("- Profiles: %d\n", len(referenceProfiles))
	for _, level := range []riskengine.RiskLevel{
		riskengine.RiskLow, riskengine.RiskModerate, riskengine.RiskHigh, riskengine.RiskVeryHigh,
	} {
		if counts[level] > 0 {
			fmt.Printf("- %s: %d\n", level, counts[level])
		}
	}
}
