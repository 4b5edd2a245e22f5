// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// This file contains request and response types for the narrative
// endpoint. For assessment types, see assessment.go.

package datatypes

import (
	"time"

	"github.com/google/uuid"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// =============================================================================
// Narrative Request Types
// =============================================================================

// NarrativeRequest represents a narrative-generation request body.
//
// # Description
//
// NarrativeRequest carries a patient record for which a clinician-tone
// plain-language summary should be generated. The service recomputes the
// risk result from the record rather than trusting caller-supplied numbers,
// so the narrative always matches the engine's own output. This is used for
// the POST /v1/narratives endpoint.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this request (UUID v4).
//     Filled by EnsureDefaults when the client omits it.
//   - Timestamp: Required. Unix timestamp in milliseconds (UTC).
//     Filled by EnsureDefaults when omitted.
//   - AssessmentID: Optional. The assessment this narrative refers to,
//     echoed into the audit trail for correlation. The service keeps no
//     assessment store, so the ID is never resolved.
//   - ExternalID: Optional. Opaque patient reference from the caller.
//   - Record: Required. The patient record to summarize.
//
// # Validation
//
//   - RequestID: required, must be valid UUID v4
//   - Timestamp: required, must be > 0
//   - AssessmentID: optional, must be valid UUID v4 when present
//   - ExternalID: optional, patientid character rules when present
//   - Record: required, must not be the zero record
//
// # Limitations
//
//   - Generation latency is dominated by the configured LLM backend and
//     can reach tens of seconds for local models
//   - The endpoint is rate limited per client
type NarrativeRequest struct {
	RequestID    string                   `json:"request_id" validate:"required,uuid4"`
	Timestamp    int64                    `json:"timestamp" validate:"required,gt=0"`
	AssessmentID string                   `json:"assessment_id,omitempty" validate:"omitempty,uuid4"`
	ExternalID   string                   `json:"external_id,omitempty" validate:"omitempty,patientid"`
	Record       riskengine.PatientRecord `json:"record" validate:"required"`
}

// Validate validates the NarrativeRequest fields.
func (r *NarrativeRequest) Validate() error {
	return recordValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them.
func (r *NarrativeRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Narrative Response Types
// =============================================================================

// NarrativeResponse represents the response from a narrative request.
//
// # Description
//
// Contains the generated summary text. WasFiltered reports whether the
// prompt filter rewrote or redacted part of the model output before it was
// returned.
//
// # Fields
//
//   - NarrativeID: Unique identifier for this narrative (UUID v4).
//   - RequestID: Echo of the request ID for correlation.
//   - AssessmentID: Echo of the assessment ID, if the request carried one.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when generation
//     finished.
//   - Text: The generated clinician-tone summary.
//   - WasFiltered: True when the guardrail filter altered the output.
//   - ProcessingTimeMs: Generation time in milliseconds.
type NarrativeResponse struct {
	NarrativeID      string `json:"narrative_id"`
	RequestID        string `json:"request_id"`
	AssessmentID     string `json:"assessment_id,omitempty"`
	Timestamp        int64  `json:"timestamp"`
	Text             string `json:"text"`
	WasFiltered      bool   `json:"was_filtered,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
}

// NewNarrativeResponse creates a new NarrativeResponse with an
// auto-generated ID and timestamp.
//
// # Inputs
//
//   - requestID: The request ID to echo back for correlation
//   - assessmentID: The assessment ID from the request, may be empty
//   - text: The generated narrative text
//   - filtered: Whether the guardrail filter altered the output
func NewNarrativeResponse(requestID, assessmentID, text string, filtered bool) *NarrativeResponse {
	return &NarrativeResponse{
		NarrativeID:  uuid.New().String(),
		RequestID:    requestID,
		AssessmentID: assessmentID,
		Timestamp:    time.Now().UnixMilli(),
		Text:         text,
		WasFiltered:  filtered,
	}
}
