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
	"errors"
	"strings"
	"testing"
)

// TestValidate exercises each precondition: every failure must wrap
// ErrInvalidRecord and name the offending field.
func TestValidate(t *testing.T) {
	valid := treatedMale50()

	tests := []struct {
		name    string
		mutate  func(*PatientRecord)
		wantErr string
	}{
		{"valid", func(r *PatientRecord) {}, ""},
		{"valid_female", func(r *PatientRecord) { r.Sex = SexFemale }, ""},
		{"missing_sex", func(r *PatientRecord) { r.Sex = "" }, "sex"},
		{"unknown_sex", func(r *PatientRecord) { r.Sex = "other" }, "sex"},
		{"zero_age", func(r *PatientRecord) { r.Age = 0 }, "age"},
		{"negative_age", func(r *PatientRecord) { r.Age = -4 }, "age"},
		{"zero_total_cholesterol", func(r *PatientRecord) { r.TotalCholesterol = 0 }, "total_cholesterol"},
		{"zero_hdl", func(r *PatientRecord) { r.HDLCholesterol = 0 }, "hdl_cholesterol"},
		{"zero_systolic", func(r *PatientRecord) { r.SystolicBP = 0 }, "systolic_bp"},
		{"zero_acr", func(r *PatientRecord) { r.ACR = 0 }, "acr"},
		{"negative_acr", func(r *PatientRecord) { r.ACR = -12.5 }, "acr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)

			err := Validate(rec)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("error %v does not wrap ErrInvalidRecord", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not name field %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// TestValidate_ReportsFirstViolation verifies that a record violating
// several preconditions reports the sex check before the numeric checks.
func TestValidate_ReportsFirstViolation(t *testing.T) {
	rec := PatientRecord{}

	err := Validate(rec)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "sex") {
		t.Errorf("error %q should report the sex violation first", err.Error())
	}
}

// TestValidate_AllowsOptionalZeroes verifies that fields outside the
// logarithm set (height, weight, diastolic pressure, eGFR) may be zero.
func TestValidate_AllowsOptionalZeroes(t *testing.T) {
	rec := treatedMale50()
	rec.HeightCm = 0
	rec.WeightKg = 0
	rec.DiastolicBP = 0
	rec.EGFR = 0

	if err := Validate(rec); err != nil {
		t.Errorf("Validate() = %v, want nil for zeroed optional fields", err)
	}
}
