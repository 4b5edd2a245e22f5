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
	"fmt"
)

// ErrInvalidRecord is wrapped by every validation failure so callers can
// branch with errors.Is.
var ErrInvalidRecord = errors.New("invalid patient record")

// Validate checks the engine's preconditions: the sex variant is defined
// and every logarithm argument (age, total cholesterol, HDL cholesterol,
// systolic pressure, ACR) is strictly positive.
//
// The compute functions do not call Validate and do not coerce bad inputs;
// feeding a violating record into them yields unspecified NaN/Inf results.
// Input boundaries (HTTP handlers, CLI, batch readers) reject first so a
// caller bug surfaces as a labeled error instead of a quiet default.
func Validate(rec PatientRecord) error {
	if !rec.Sex.Valid() {
		return fmt.Errorf("%w: sex must be %q or %q, got %q",
			ErrInvalidRecord, SexMale, SexFemale, rec.Sex)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"age", rec.Age},
		{"total_cholesterol", rec.TotalCholesterol},
		{"hdl_cholesterol", rec.HDLCholesterol},
		{"systolic_bp", rec.SystolicBP},
		{"acr", rec.ACR},
	} {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v",
				ErrInvalidRecord, f.name, f.value)
		}
	}
	return nil
}
