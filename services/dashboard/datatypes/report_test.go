// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package datatypes

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ReportRequest Validation Tests
// =============================================================================

func TestReportRequest_Validate_Success(t *testing.T) {
	req := &ReportRequest{
		RequestID:  "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:  time.Now().UnixMilli(),
		ExternalID: "MRN-2024.0042",
		Record:     validTestRecord(),
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestReportRequest_Validate_MissingExternalID(t *testing.T) {
	req := &ReportRequest{
		RequestID: "550e8400-e29b-41d4-a716-446655440000",
		Timestamp: time.Now().UnixMilli(),
		Record:    validTestRecord(),
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing external_id, got nil")
	}
}

func TestReportRequest_Validate_InvalidExternalID(t *testing.T) {
	req := &ReportRequest{
		RequestID:  "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:  time.Now().UnixMilli(),
		ExternalID: "../../../etc/passwd",
		Record:     validTestRecord(),
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for path-traversal external_id, got nil")
	}
}

func TestReportRequest_Validate_WithNarrative(t *testing.T) {
	req := &ReportRequest{
		RequestID:  "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:  time.Now().UnixMilli(),
		ExternalID: "MRN-0042",
		Record:     validTestRecord(),
		Narrative:  "The assessment places this patient in the moderate range.",
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request with narrative, got error: %v", err)
	}
}

func TestReportRequest_Validate_NarrativeTooLarge(t *testing.T) {
	req := &ReportRequest{
		RequestID:  "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:  time.Now().UnixMilli(),
		ExternalID: "MRN-0042",
		Record:     validTestRecord(),
		Narrative:  strings.Repeat("x", MaxNarrativeBytes+1),
	}

	if err := req.Validate(); err == nil {
		t.Errorf("expected error for narrative > %d bytes, got nil", MaxNarrativeBytes)
	}
}

func TestReportRequest_Validate_NarrativeExactlyMaxSize(t *testing.T) {
	req := &ReportRequest{
		RequestID:  "550e8400-e29b-41d4-a716-446655440000",
		Timestamp:  time.Now().UnixMilli(),
		ExternalID: "MRN-0042",
		Record:     validTestRecord(),
		Narrative:  strings.Repeat("x", MaxNarrativeBytes),
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request with exactly %d bytes narrative, got error: %v",
			MaxNarrativeBytes, err)
	}
}

// =============================================================================
// EnsureDefaults Tests
// =============================================================================

func TestReportRequest_EnsureDefaults(t *testing.T) {
	req := &ReportRequest{
		ExternalID: "MRN-0042",
		Record:     validTestRecord(),
	}

	req.EnsureDefaults()

	if req.RequestID == "" {
		t.Error("expected EnsureDefaults to generate RequestID, got empty string")
	}
	if req.Timestamp == 0 {
		t.Error("expected EnsureDefaults to generate Timestamp, got 0")
	}
}

// =============================================================================
// Constants Tests
// =============================================================================

func TestReportConstants(t *testing.T) {
	if MaxNarrativeBytes != 16*1024 {
		t.Errorf("expected MaxNarrativeBytes to be 16KB, got %d", MaxNarrativeBytes)
	}
}
