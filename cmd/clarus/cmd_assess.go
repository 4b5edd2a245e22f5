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
	"fmt"
	"os"

	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/services/report"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	assessInput       string
	assessInteractive bool
	assessThreshold   string
	assessStrict      bool
	assessPermissive  bool
	assessJSON        bool
	assessQuiet       bool

	assessAge       float64
	assessSex       string
	assessHeight    float64
	assessWeight    float64
	assessSystolic  float64
	assessDiastolic float64
	assessTotalChol float64
	assessHDLChol   float64
	assessEGFR      float64
	assessACR       float64
	assessDiabetes  bool
	assessSmoker    bool
	assessBPMeds    bool
	assessStatins   bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess cardiovascular and renal risk for one patient record",
	Long: `Estimate cardiovascular and kidney-failure risk from routine
clinical measurements.

The assess command runs both models on one record, stratifies the combined
result into a risk tier, and shows the headroom an optimal modifiable
profile (blood pressure, lipids, smoking) would buy. Records come from a
file, an interactive intake form, or individual flags.

Record precedence: -i wins over --input, which wins over the clinical flags.

Examples:
  clarus assess --input patient.json      # Assess a record file (JSON/YAML)
  clarus assess -i                        # Interactive intake form
  clarus assess --age 54 --sex male \
    --systolic 128 --total-chol 210 \
    --hdl-chol 46 --egfr 88 --acr 12      # Assess from flags
  clarus assess --input p.json --json     # JSON output for automation
  clarus assess --input p.json \
    --threshold moderate                  # Fail if risk > moderate
  clarus assess --input p.json --strict   # Fail on any risk (threshold=low)

Exit Codes:
  0 = Combined risk at or below threshold
  1 = Combined risk above threshold (clinical follow-up indicated)
  2 = Error (invalid record, unreadable input)`,
	Run: runAssessCommand,
}

func init() {
	assessCmd.Flags().StringVar(&assessInput, "input", "",
		"Patient record file (JSON or YAML)")
	assessCmd.Flags().BoolVarP(&assessInteractive, "interactive", "i", false,
		"Enter the record through an intake form")
	assessCmd.Flags().StringVar(&assessThreshold, "threshold", "high",
		"Exit 0 if at/below: low, moderate, high, very_high")
	assessCmd.Flags().BoolVar(&assessStrict, "strict", false,
		"Alias for --threshold low")
	assessCmd.Flags().BoolVar(&assessPermissive, "permissive", false,
		"Alias for --threshold very_high")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false,
		"Output as JSON")
	assessCmd.Flags().BoolVar(&assessQuiet, "quiet", false,
		"Only exit code, no output")

	assessCmd.Flags().Float64Var(&assessAge, "age", 0, "Age in years")
	assessCmd.Flags().StringVar(&assessSex, "sex", "", "Sex: male or female")
	assessCmd.Flags().Float64Var(&assessHeight, "height", 0, "Height in cm")
	assessCmd.Flags().Float64Var(&assessWeight, "weight", 0, "Weight in kg")
	assessCmd.Flags().Float64Var(&assessSystolic, "systolic", 0, "Systolic blood pressure in mmHg")
	assessCmd.Flags().Float64Var(&assessDiastolic, "diastolic", 0, "Diastolic blood pressure in mmHg")
	assessCmd.Flags().Float64Var(&assessTotalChol, "total-chol", 0, "Total cholesterol in mg/dL")
	assessCmd.Flags().Float64Var(&assessHDLChol, "hdl-chol", 0, "HDL cholesterol in mg/dL")
	assessCmd.Flags().Float64Var(&assessEGFR, "egfr", 0, "Estimated GFR in mL/min/1.73m²")
	assessCmd.Flags().Float64Var(&assessACR, "acr", 0, "Urine albumin-to-creatinine ratio in mg/g")
	assessCmd.Flags().BoolVar(&assessDiabetes, "diabetes", false, "Diagnosed diabetes")
	assessCmd.Flags().BoolVar(&assessSmoker, "smoker", false, "Current smoker")
	assessCmd.Flags().BoolVar(&assessBPMeds, "bp-meds", false, "On blood pressure medication")
	assessCmd.Flags().BoolVar(&assessStatins, "statins", false, "On statins")

	// Add to root
	rootCmd.AddCommand(assessCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runAssessCommand(cmd *cobra.Command, args []string) {
	record, err := resolveAssessRecord(cmd)
	if err != nil {
		outputAssessError("No patient record", err)
		os.Exit(riskengine.ExitError)
	}

	if err := riskengine.Validate(record); err != nil {
		outputAssessError("Invalid patient record", err)
		os.Exit(riskengine.ExitError)
	}

	result := riskengine.Assess(record)
	optimal := riskengine.ComputeOptimalRisk(record)

	if !assessQuiet {
		if assessJSON {
			outputAssessJSON(record, result, optimal)
		} else {
			outputAssessText(record, result, optimal)
		}
	}

	if result.Level.Exceeds(assessThresholdLevel()) {
		os.Exit(riskengine.ExitAboveThreshold)
	}
	os.Exit(riskengine.ExitSuccess)
}

// resolveAssessRecord picks the record source by precedence: interactive
// form, record file, then the clinical flags.
func resolveAssessRecord(cmd *cobra.Command) (riskengine.PatientRecord, error) {
	if assessInteractive {
		return runInteractiveIntake()
	}
	if assessInput != "" {
		return loadRecordFile(assessInput)
	}
	if !cmd.Flags().Changed("age") {
		return riskengine.PatientRecord{},
			fmt.Errorf("pass --input FILE, use -i, or set the clinical flags (see --help)")
	}
	return recordFromFlags(), nil
}

// recordFromFlags assembles a record from the per-field flags.
func recordFromFlags() riskengine.PatientRecord {
	// A bad --sex value parses to the empty variant, which Validate then
	// rejects with a precise message.
	sex, _ := riskengine.ParseSex(assessSex)
	return riskengine.PatientRecord{
		Age:                assessAge,
		Sex:                sex,
		HeightCm:           assessHeight,
		WeightKg:           assessWeight,
		SystolicBP:         assessSystolic,
		DiastolicBP:        assessDiastolic,
		TotalCholesterol:   assessTotalChol,
		HDLCholesterol:     assessHDLChol,
		EGFR:               assessEGFR,
		ACR:                assessACR,
		Diabetes:           assessDiabetes,
		Smoker:             assessSmoker,
		OnHypertensionMeds: assessBPMeds,
		OnStatins:          assessStatins,
	}
}

// assessThresholdLevel resolves the exit gate from flags.
func assessThresholdLevel() riskengine.RiskLevel {
	if assessStrict {
		return riskengine.RiskLow
	}
	if assessPermissive {
		return riskengine.RiskVeryHigh
	}
	return riskengine.ParseRiskLevel(assessThreshold)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputAssessError(msg string, err error) {
	if assessJSON {
		result := map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// assessOutput is the JSON shape for automation. The record is echoed back
// so piped consumers keep inputs and outputs together.
type assessOutput struct {
	EngineVersion  string                    `json:"engine_version"`
	Record         riskengine.PatientRecord  `json:"record"`
	Result         riskengine.RiskResult     `json:"result"`
	Optimal        riskengine.CardioTimeline `json:"optimal"`
	Recommendation string                    `json:"recommendation"`
}

func outputAssessJSON(rec riskengine.PatientRecord, result riskengine.RiskResult, optimal riskengine.CardioTimeline) {
	out := assessOutput{
		EngineVersion:  riskengine.EngineVersion,
		Record:         rec,
		Result:         result,
		Optimal:        optimal,
		Recommendation: riskengine.Recommendations[result.Level],
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(riskengine.ExitError)
	}
}

func outputAssessText(rec riskengine.PatientRecord, result riskengine.RiskResult, optimal riskengine.CardioTimeline) {
	ux.Title("Clarus Risk Assessment")
	fmt.Println()

	fmt.Printf("Combined Risk: %s\n", ux.RiskBadge(string(result.Level)))
	fmt.Printf("Recommendation: %s\n", riskengine.Recommendations[result.Level])
	fmt.Println()

	fmt.Println("Cardiovascular event risk:")
	fmt.Printf("   5-year: %6.1f%%\n", result.Cardio.FiveYear)
	fmt.Printf("  10-year: %6.1f%%\n", result.Cardio.TenYear)
	fmt.Printf("  15-year: %6.1f%%\n", result.Cardio.FifteenYear)
	fmt.Println()

	fmt.Println("Kidney failure risk:")
	fmt.Printf("   2-year: %6.1f%%\n", result.Renal.TwoYear)
	fmt.Printf("   5-year: %6.1f%%\n", result.Renal.FiveYear)
	fmt.Printf("  10-year: %6.1f%%\n", result.Renal.TenYear)
	fmt.Println()

	fmt.Printf("Long-term projection: %.1f%% (scaled 10-year cardiovascular figure)\n", result.LongTerm)
	if bmi := rec.BMI(); bmi > 0 {
		fmt.Printf("BMI: %.1f kg/m²\n", bmi)
	}
	fmt.Println()

	headroom := result.Cardio.TenYear - optimal.TenYear
	fmt.Println("With optimal blood pressure and lipids:")
	fmt.Printf("  10-year cardiovascular risk: %.1f%% (headroom %.1f points)\n",
		optimal.TenYear, headroom)

	if ux.ShouldShowDisclaimer() {
		fmt.Println()
		ux.WarningBox("Clinical Use", report.Disclaimer)
	}
}
