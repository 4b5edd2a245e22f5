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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// loadRecordFile reads a single patient record from a JSON or YAML file.
// The format is chosen by extension so a mislabeled file fails loudly
// instead of half-parsing.
func loadRecordFile(path string) (riskengine.PatientRecord, error) {
	var rec riskengine.PatientRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read record file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &rec); err != nil {
			return rec, fmt.Errorf("parse record file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return rec, fmt.Errorf("parse record file: %w", err)
		}
	default:
		return rec, fmt.Errorf("unsupported record format %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}

	return rec, nil
}

// requireFloat validates an interactive numeric field.
func requireFloat(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return fmt.Errorf("enter a number")
	}
	return nil
}

// requirePositiveFloat validates fields the models feed through a
// logarithm.
func requirePositiveFloat(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if v <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// mustFloat converts a form value already checked by a validator.
func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// runInteractiveIntake walks the operator through a patient record field by
// field and returns the assembled record. The caller still runs the full
// engine validation afterwards; form validators only keep obviously broken
// values out.
func runInteractiveIntake() (riskengine.PatientRecord, error) {
	var (
		age              string
		sex              string
		heightCm         string
		weightKg         string
		systolicBP       string
		diastolicBP      string
		totalCholesterol string
		hdlChol          string
		egfr             string
		acr              string

		diabetes bool
		smoker   bool
		bpMeds   bool
		statins  bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Age (years)").
				Placeholder("54").
				Validate(requirePositiveFloat).
				Value(&age),
			huh.NewSelect[string]().
				Title("Sex").
				Options(
					huh.NewOption("Female", "female"),
					huh.NewOption("Male", "male"),
				).
				Value(&sex),
			huh.NewInput().
				Title("Height (cm)").
				Placeholder("175").
				Validate(requireFloat).
				Value(&heightCm),
			huh.NewInput().
				Title("Weight (kg)").
				Placeholder("82").
				Validate(requireFloat).
				Value(&weightKg),
		).Title("Demographics"),

		huh.NewGroup(
			huh.NewInput().
				Title("Systolic blood pressure (mmHg)").
				Placeholder("128").
				Validate(requirePositiveFloat).
				Value(&systolicBP),
			huh.NewInput().
				Title("Diastolic blood pressure (mmHg)").
				Placeholder("82").
				Validate(requireFloat).
				Value(&diastolicBP),
			huh.NewInput().
				Title("Total cholesterol (mg/dL)").
				Placeholder("210").
				Validate(requirePositiveFloat).
				Value(&totalCholesterol),
			huh.NewInput().
				Title("HDL cholesterol (mg/dL)").
				Placeholder("46").
				Validate(requirePositiveFloat).
				Value(&hdlChol),
		).Title("Pressure and Lipids"),

		huh.NewGroup(
			huh.NewInput().
				Title("eGFR (mL/min/1.73m²)").
				Placeholder("88").
				Validate(requireFloat).
				Value(&egfr),
			huh.NewInput().
				Title("Urine ACR (mg/g)").
				Placeholder("12").
				Validate(requirePositiveFloat).
				Value(&acr),
		).Title("Renal Panel"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Diagnosed diabetes?").
				Value(&diabetes),
			huh.NewConfirm().
				Title("Current smoker?").
				Value(&smoker),
			huh.NewConfirm().
				Title("On blood pressure medication?").
				Value(&bpMeds),
			huh.NewConfirm().
				Title("On statins?").
				Value(&statins),
		).Title("History"),
	)

	if err := form.Run(); err != nil {
		return riskengine.PatientRecord{}, fmt.Errorf("intake form: %w", err)
	}

	return riskengine.PatientRecord{
		Age:                mustFloat(age),
		Sex:                riskengine.Sex(sex),
		HeightCm:           mustFloat(heightCm),
		WeightKg:           mustFloat(weightKg),
		SystolicBP:         mustFloat(systolicBP),
		DiastolicBP:        mustFloat(diastolicBP),
		TotalCholesterol:   mustFloat(totalCholesterol),
		HDLCholesterol:     mustFloat(hdlChol),
		EGFR:               mustFloat(egfr),
		ACR:                mustFloat(acr),
		Diabetes:           diabetes,
		Smoker:             smoker,
		OnHypertensionMeds: bpMeds,
		OnStatins:          statins,
	}, nil
}
