// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package datatypes provides request and response types for the dashboard
// service.
//
// This file contains types for the assessment endpoints. Narrative types
// live in narrative.go and report types in report.go.
//
// All request types in this package embed a full patient record. Patient
// measurements are PHI and must never appear in logs or error messages;
// handlers log request IDs and risk levels only.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ClarusHealth/ClarusRisk/pkg/validation"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// recordValidate is the validator instance for dashboard datatypes.
// Initialized in init() with custom validators.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()

	// Register custom validator for patient external identifiers
	_ = recordValidate.RegisterValidation("patientid", validatePatientID)

	// Register custom validator for byte-length caps on free text
	_ = recordValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validatePatientID validates that a field is a well-formed patient
// external identifier.
//
// # Description
//
// Wraps pkg/validation.ValidateExternalID so the same character-set and
// length rules apply at the API boundary as at the report and keystore
// layers, where the identifier is embedded into filenames and keys.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if the identifier is well formed, false otherwise
func validatePatientID(fl validator.FieldLevel) bool {
	return validation.ValidateExternalID(fl.Field().String()) == nil
}

// =============================================================================
// Assessment Request Types
// =============================================================================

// AssessmentRequest represents a risk-assessment request body.
//
// # Description
//
// AssessmentRequest carries a single patient record for evaluation. This is
// used for the POST /v1/assessments endpoint. Every request includes a
// unique ID and timestamp for tracing and audit correlation.
//
// # Fields
//
//   - RequestID: Required. Unique identifier for this request (UUID v4).
//     Generated server-side via EnsureDefaults when the client omits it.
//   - Timestamp: Required. Unix timestamp in milliseconds (UTC) when the
//     request was created. Filled by EnsureDefaults when omitted.
//   - ExternalID: Optional. Opaque patient reference assigned by the
//     calling system. Never interpreted, only echoed and embedded into
//     report filenames. Must satisfy the patientid character rules.
//   - Record: Required. The patient record to assess. Field-level clinical
//     validation happens in the risk engine, not here.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: required, must be valid UUID v4
//   - Timestamp: required, must be > 0
//   - ExternalID: optional, patientid character rules when present
//   - Record: required, must not be the zero record
//
// Structural validation only. Clinical preconditions (age bounds, blood
// pressure ordering, measurement ranges) are enforced by
// riskengine.Validate, which handlers call after this method.
//
// # Examples
//
//	req := AssessmentRequest{
//	    RequestID: "550e8400-e29b-41d4-a716-446655440000",
//	    Timestamp: time.Now().UnixMilli(),
//	    Record:    record,
//	}
//
// # Limitations
//
//   - A structurally valid record may still fail clinical validation
//   - ExternalID is not checked for uniqueness; the service keeps no
//     patient registry
type AssessmentRequest struct {
	RequestID  string                   `json:"request_id" validate:"required,uuid4"`
	Timestamp  int64                    `json:"timestamp" validate:"required,gt=0"`
	ExternalID string                   `json:"external_id,omitempty" validate:"omitempty,patientid"`
	Record     riskengine.PatientRecord `json:"record" validate:"required"`
}

// Validate validates the AssessmentRequest fields.
//
// # Description
//
// Performs structural validation using go-playground/validator tags and
// custom validators. Call after binding the JSON request and after
// EnsureDefaults.
//
// # Outputs
//
//   - error: Non-nil if validation failed, with details about which field
func (r *AssessmentRequest) Validate() error {
	return recordValidate.Struct(r)
}

// EnsureDefaults populates default values for optional fields.
//
// # Description
//
// Generates RequestID and Timestamp if not provided by the client so every
// request has proper identifiers for tracing and auditing.
//
// # Examples
//
//	req := &AssessmentRequest{Record: record}
//	req.EnsureDefaults()
//	// req.RequestID is now a UUID
//	// req.Timestamp is now a Unix timestamp
func (r *AssessmentRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Assessment Response Types
// =============================================================================

// AssessmentResponse represents the response from an assessment request.
//
// # Description
//
// Contains the computed risk result plus the optimal-profile cardiovascular
// timeline for the same patient, which the dashboard overlays as a
// comparison series. Every response includes a unique assessment ID and
// timestamp for audit correlation.
//
// # Fields
//
//   - AssessmentID: Unique identifier for this assessment (UUID v4).
//     Generated server-side. Narrative and report requests may echo it.
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC) when the assessment
//     was computed.
//   - EngineVersion: Version of the risk engine that produced the result.
//   - ExternalID: Echo of the caller-supplied patient reference, if any.
//   - Result: The combined risk result (cardiovascular and renal timelines,
//     combined level, long-term estimate).
//   - Optimal: Cardiovascular timeline recomputed with modifiable factors
//     set to their optimal values.
//   - Recommendation: Guidance text for the combined risk level.
type AssessmentResponse struct {
	AssessmentID   string                    `json:"assessment_id"`
	RequestID      string                    `json:"request_id"`
	Timestamp      int64                     `json:"timestamp"`
	EngineVersion  string                    `json:"engine_version"`
	ExternalID     string                    `json:"external_id,omitempty"`
	Result         riskengine.RiskResult     `json:"result"`
	Optimal        riskengine.CardioTimeline `json:"optimal"`
	Recommendation string                    `json:"recommendation"`
}

// NewAssessmentResponse creates a new AssessmentResponse with an
// auto-generated assessment ID and timestamp.
//
// # Inputs
//
//   - requestID: The request ID to echo back for correlation
//   - externalID: The caller-supplied patient reference, may be empty
//   - result: The computed risk result
//   - optimal: The optimal-profile cardiovascular timeline
//
// # Outputs
//
//   - *AssessmentResponse: A new response with AssessmentID, Timestamp,
//     EngineVersion, and Recommendation set
func NewAssessmentResponse(requestID, externalID string, result riskengine.RiskResult, optimal riskengine.CardioTimeline) *AssessmentResponse {
	return &AssessmentResponse{
		AssessmentID:   uuid.New().String(),
		RequestID:      requestID,
		Timestamp:      time.Now().UnixMilli(),
		EngineVersion:  riskengine.EngineVersion,
		ExternalID:     externalID,
		Result:         result,
		Optimal:        optimal,
		Recommendation: riskengine.Recommendations[result.Level],
	}
}
