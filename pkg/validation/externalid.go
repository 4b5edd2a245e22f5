// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// storage keys, report file names, or log attributes. Using these validators
// prevents injection attacks (key-space collisions, path traversal, log forgery).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// externalIDPattern matches pseudonymous patient references as issued by
// site record systems.
// Allows: uppercase letters, digits, dots, hyphens (MRN-2024-00123)
// Max length: 64 characters
var externalIDPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,63}$`)

// ValidateExternalID validates a pseudonymous patient reference before it is
// used as a storage key or report file name.
//
// Valid identifiers:
//   - 1-64 characters
//   - Uppercase letters A-Z
//   - Digits 0-9
//   - Dots (.) and hyphens (-) as separators, never leading
//
// The identifier must already be pseudonymous. Nothing here can tell a
// medical record number from a study code; it only guarantees the value is
// safe to embed in keys and paths.
//
// Example:
//
//	if err := validation.ValidateExternalID(extID); err != nil {
//	    return nil, fmt.Errorf("invalid external id: %w", err)
//	}
//	// Safe to use as a storage key
func ValidateExternalID(id string) error {
	if id == "" {
		return fmt.Errorf("external id cannot be empty")
	}

	if !externalIDPattern.MatchString(id) {
		return fmt.Errorf("invalid external id format: %q (must be 1-64 uppercase alphanumeric chars, dots, or hyphens)", id)
	}

	return nil
}

// ValidateExternalIDs validates multiple patient references.
// Returns an error listing all invalid identifiers if any fail validation.
func ValidateExternalIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateExternalID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid external ids: %v", invalid)
	}
	return nil
}

// SanitizeExternalID normalizes and validates a patient reference.
// Returns the uppercase identifier if valid, or an error if invalid.
//
// Use this at intake boundaries where casing and whitespace vary:
//
//	safeID, err := validation.SanitizeExternalID(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeID is uppercase and validated
func SanitizeExternalID(id string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	if err := ValidateExternalID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
