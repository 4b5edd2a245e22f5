// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package report renders a completed assessment into downloadable
// documents: a clinician-facing PDF and an XLSX workbook of the underlying
// figures.
//
// Reports are the one place patient measurements legitimately leave the
// process, on their way to the requesting clinician. The writers stream to
// an io.Writer and keep nothing; file naming goes through the same external
// ID validation as every other boundary.
package report

import (
	"fmt"
	"time"

	"github.com/ClarusHealth/ClarusRisk/pkg/validation"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// Disclaimer appears on every rendered document.
const Disclaimer = "Estimates are derived from population-level models and support, " +
	"but do not replace, clinical judgment. They are not a diagnosis. " +
	"Figures outside each model's validated range are extrapolations."

// Data is everything a document writer needs for one assessment.
type Data struct {
	// ExternalID is the pseudonymous patient reference printed on the
	// document. Optional; validated when present.
	ExternalID string

	// GeneratedAt is the assessment timestamp. Zero means time.Now().
	GeneratedAt time.Time

	// Record holds the assessed inputs.
	Record riskengine.PatientRecord

	// Result holds the computed timelines and combined level.
	Result riskengine.RiskResult

	// Optimal, when non-nil, adds the counterfactual comparison section.
	Optimal *riskengine.CardioTimeline

	// Narrative, when non-empty, is printed as a summary section on the
	// PDF. The XLSX carries figures only.
	Narrative string
}

// generatedAt returns the effective timestamp for rendering.
func (d Data) generatedAt() time.Time {
	if d.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return d.GeneratedAt
}

// validate checks the parts of Data that embed into documents and names.
func (d Data) validate() error {
	if d.ExternalID != "" {
		if err := validation.ValidateExternalID(d.ExternalID); err != nil {
			return fmt.Errorf("report data: %w", err)
		}
	}
	return nil
}

// FileName builds a safe download name for an assessment document:
// assessment_<ID>_<yyyymmdd>.<ext>, or assessment_<yyyymmdd>.<ext> when no
// external ID accompanies the assessment. The ID is sanitized before use.
func FileName(externalID string, generatedAt time.Time, ext string) (string, error) {
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	datePart := generatedAt.Format("20060102")

	if externalID == "" {
		return fmt.Sprintf("assessment_%s.%s", datePart, ext), nil
	}

	safeID, err := validation.SanitizeExternalID(externalID)
	if err != nil {
		return "", fmt.Errorf("report file name: %w", err)
	}
	return fmt.Sprintf("assessment_%s_%s.%s", safeID, datePart, ext), nil
}

// levelColor maps a combined risk level to its badge color (RGB).
func levelColor(level riskengine.RiskLevel) (r, g, b int) {
	switch level {
	case riskengine.RiskLow:
		return 46, 125, 50
	case riskengine.RiskModerate:
		return 249, 168, 37
	case riskengine.RiskHigh:
		return 230, 81, 0
	case riskengine.RiskVeryHigh:
		return 183, 28, 28
	default:
		return 97, 97, 97
	}
}

// levelLabel renders a level for documents ("very_high" prints badly).
func levelLabel(level riskengine.RiskLevel) string {
	switch level {
	case riskengine.RiskLow:
		return "Low"
	case riskengine.RiskModerate:
		return "Moderate"
	case riskengine.RiskHigh:
		return "High"
	case riskengine.RiskVeryHigh:
		return "Very High"
	default:
		return string(level)
	}
}
