// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package validation

import (
	"testing"
)

func TestValidateExternalID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid identifiers
		{"mrn style", "MRN-2024-00123", false},
		{"single char", "A", false},
		{"digits only", "8839021", false},
		{"dotted", "SITE.12.0042", false},
		{"max length", strings64(), false},

		// Invalid identifiers - injection attempts
		{"empty", "", true},
		{"path traversal", "../../etc/passwd", true},
		{"key separator smuggling", "MRN/2024", true},
		{"newline injection", "MRN-1\nlevel=low", true},
		{"lowercase", "mrn-2024-00123", true}, // Must be uppercase
		{"too long", strings64() + "X", true},
		{"special chars", "MRN@#$", true},
		{"spaces", "MRN 2024", true},
		{"starts with dot", ".MRN", true},
		{"starts with hyphen", "-MRN", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExternalID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExternalID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

// strings64 builds a 64-character identifier at the length ceiling.
func strings64() string {
	s := "ID-"
	for len(s) < 64 {
		s += "7"
	}
	return s
}

func TestValidateExternalIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{"all valid", []string{"MRN-1", "MRN-2", "STUDY.44"}, false},
		{"one invalid", []string{"MRN-1", "bad!", "MRN-3"}, true},
		{"all invalid", []string{"mrn-1", "mrn-2"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExternalIDs(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExternalIDs(%v) error = %v, wantErr %v", tt.ids, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeExternalID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"uppercase passthrough", "MRN-2024-00123", "MRN-2024-00123", false},
		{"lowercase normalized", "mrn-2024-00123", "MRN-2024-00123", false},
		{"mixed case", "Mrn-2024-00123", "MRN-2024-00123", false},
		{"with spaces trimmed", "  MRN-1  ", "MRN-1", false},
		{"invalid rejected", "bad!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeExternalID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeExternalID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeExternalID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
