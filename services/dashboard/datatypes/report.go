// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// This file contains request types for the report endpoints. Report
// responses are streamed documents, not JSON, so there is no response type.

package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxNarrativeBytes is the maximum size of a caller-supplied narrative
	// block embedded into a report. Larger payloads are rejected to bound
	// memory use during document rendering.
	MaxNarrativeBytes = 16 * 1024 // 16KB
)

// validateMaxBytes validates that a string field does not exceed
// MaxNarrativeBytes.
//
// # Description
//
// Custom validator enforcing the narrative size cap. Checks byte length
// (not rune count) to bound memory with multi-byte payloads.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if content <= 16KB, false otherwise
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxNarrativeBytes
}

// =============================================================================
// Report Request Types
// =============================================================================

// ReportRequest represents a report-generation request body.
//
// # Description
//
// ReportRequest carries everything a rendered document needs: the patient
// record, an external identifier for the filename, and an optional
// pre-generated narrative block. The risk result and optimal timeline are
// recomputed server-side from the record. This type backs both
// POST /v1/reports/pdf and POST /v1/reports/xlsx.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this request (UUID v4).
//     Filled by EnsureDefaults when the client omits it.
//   - Timestamp: Required. Unix timestamp in milliseconds (UTC).
//     Filled by EnsureDefaults when omitted.
//   - ExternalID: Required. Patient reference embedded into the report
//     header and the download filename, so it must satisfy the patientid
//     character rules. The filename derivation re-sanitizes it as a second
//     line of defense.
//   - Record: Required. The patient record the report describes.
//   - Narrative: Optional. Pre-generated narrative text to embed. Callers
//     typically pass the text returned by POST /v1/narratives. Capped at
//     MaxNarrativeBytes.
//
// # Validation
//
//   - RequestID: required, must be valid UUID v4
//   - Timestamp: required, must be > 0
//   - ExternalID: required, patientid character rules
//   - Record: required, must not be the zero record
//   - Narrative: max 16384 bytes
type ReportRequest struct {
	RequestID  string                   `json:"request_id" validate:"required,uuid4"`
	Timestamp  int64                    `json:"timestamp" validate:"required,gt=0"`
	ExternalID string                   `json:"external_id" validate:"required,patientid"`
	Record     riskengine.PatientRecord `json:"record" validate:"required"`
	Narrative  string                   `json:"narrative,omitempty" validate:"omitempty,maxbytes"`
}

// Validate validates the ReportRequest fields.
func (r *ReportRequest) Validate() error {
	return recordValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them.
func (r *ReportRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}
