// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package extensions

import (
	"context"
	"errors"
)

// ErrPromptBlocked is returned when a narrative prompt is rejected by the
// filter. Site implementations should wrap this error with the reason.
//
// Example:
//
//	if containsIdentifier(prompt) {
//	    return fmt.Errorf("prompt contains a patient identifier: %w", ErrPromptBlocked)
//	}
var ErrPromptBlocked = errors.New("prompt blocked by filter")

// FilterResult contains the outcome of a filter pass.
//
// Provides detail about what the filter did, for audit events and for
// telling the caller why a narrative was refused.
//
// Example:
//
//	result := FilterResult{
//	    Original:    "62-year-old male, DOB 03/14/1962, eGFR 38",
//	    Filtered:    "62-year-old male, DOB [REMOVED], eGFR 38",
//	    WasModified: true,
//	    Detections: []Detection{
//	        {Type: "dob", Location: "characters 20-34", Action: "redacted"},
//	    },
//	}
type FilterResult struct {
	// Original is the input text before filtering.
	Original string

	// Filtered is the text after filtering transformations.
	// If WasModified is false, this equals Original.
	Filtered string

	// WasModified indicates if any transformations were applied.
	WasModified bool

	// WasBlocked indicates if the text was rejected outright.
	// If true, Filtered should not be used.
	WasBlocked bool

	// BlockReason explains why the text was blocked (if WasBlocked).
	BlockReason string

	// Detections lists what the filter found.
	// Useful for audit events and for tuning site policies.
	Detections []Detection
}

// Detection describes a single item found by the filter.
//
// Example:
//
//	detection := Detection{
//	    Type:     "phone",
//	    Location: "characters 45-57",
//	    Action:   "redacted",
//	}
type Detection struct {
	// Type categorizes what was detected.
	// Common types: "mrn", "name", "dob", "phone", "address", "ssn",
	// "api_key", "prompt_injection"
	Type string

	// Location describes where in the text the item was found.
	// Format is implementation-specific (e.g., "characters 10-20", "line 3")
	Location string

	// Action describes what was done with the detected item.
	// Values: "redacted", "masked", "replaced", "blocked", "flagged"
	Action string

	// Original is the detected content (only populated in debug mode).
	// WARNING: may contain an identifier. Never log or transmit it.
	Original string

	// Replacement is what the content was replaced with (if Action is "replaced").
	Replacement string
}

// PromptFilter screens text that crosses the process boundary on the
// narrative path.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Filter Pipeline
//
// Text flows through the filter at two points:
//
//  1. FilterPrompt: before a narrative prompt is sent to a model backend.
//     The prompt builder already works from a de-identified record, so
//     this is the second line of defense against an identifier slipping
//     into outbound text (a free-text note field, a misconfigured intake).
//
//  2. FilterNarrative: before a generated narrative is returned or
//     embedded in a report. Catches identifiers or key material the model
//     echoed back or invented.
//
// # Local Behavior
//
// The default NopPromptFilter passes all text through unchanged. On a
// workstation with a local Ollama backend nothing leaves the machine, so
// screening is optional.
//
// # Site Implementation
//
// Sites that route narratives to a hosted model implement identifier
// detection to enforce their de-identification policy.
//
// Example site implementation:
//
//	type IdentifierScreen struct {
//	    patterns []IdentifierPattern
//	}
//
//	func (s *IdentifierScreen) FilterPrompt(ctx context.Context, prompt string) (*FilterResult, error) {
//	    result := &FilterResult{Original: prompt, Filtered: prompt}
//	    for _, pattern := range s.patterns {
//	        if locs := pattern.FindAll(prompt); len(locs) > 0 {
//	            result.WasBlocked = true
//	            result.BlockReason = "identifier detected: " + pattern.Name
//	            result.Detections = append(result.Detections, Detection{
//	                Type:   pattern.Name,
//	                Action: "blocked",
//	            })
//	        }
//	    }
//	    return result, nil
//	}
//
// # Blocking vs Transforming
//
// Filters can either:
//   - Transform: redact the finding and let the text through
//   - Block: reject the text entirely
//
// To block, return a FilterResult with WasBlocked=true and BlockReason
// set. The caller then returns ErrPromptBlocked without contacting the
// backend.
type PromptFilter interface {
	// FilterPrompt screens a narrative prompt before it is sent to a
	// model backend.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prompt: The assembled narrative prompt
	//
	// Returns:
	//   - *FilterResult: The screened prompt and detections
	//   - error: Non-nil only for filter failures (not for blocks)
	//
	// If WasBlocked is true, the caller should:
	//  1. Record the block via AuditLogger ("narrative.blocked")
	//  2. Return ErrPromptBlocked to the user
	//  3. NOT send the prompt to the backend
	FilterPrompt(ctx context.Context, prompt string) (*FilterResult, error)

	// FilterNarrative screens a generated narrative before it is
	// returned to the caller or embedded in a report.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - narrative: The backend's generated text
	//
	// Returns:
	//   - *FilterResult: The screened narrative and detections
	//   - error: Non-nil only for filter failures (not for blocks)
	//
	// Common narrative filtering:
	//   - Redact identifiers the model echoed or invented
	//   - Strip key material accidentally present in the output
	FilterNarrative(ctx context.Context, narrative string) (*FilterResult, error)
}

// NopPromptFilter is the default prompt filter.
//
// It passes all text through unchanged without any transformation or
// blocking. Appropriate for workstations using a local backend.
//
// Thread-safe: This implementation has no mutable state.
//
// Example:
//
//	filter := &NopPromptFilter{}
//	result, err := filter.FilterPrompt(ctx, prompt)
//	// result.Filtered == prompt (unchanged)
//	// result.WasModified == false
//	// err == nil
type NopPromptFilter struct{}

// FilterPrompt returns the prompt unchanged.
//
// No transformations or blocking are applied.
func (f *NopPromptFilter) FilterPrompt(ctx context.Context, prompt string) (*FilterResult, error) {
	return &FilterResult{
		Original:    prompt,
		Filtered:    prompt,
		WasModified: false,
		WasBlocked:  false,
		Detections:  nil,
	}, nil
}

// FilterNarrative returns the narrative unchanged.
//
// No transformations or blocking are applied.
func (f *NopPromptFilter) FilterNarrative(ctx context.Context, narrative string) (*FilterResult, error) {
	return &FilterResult{
		Original:    narrative,
		Filtered:    narrative,
		WasModified: false,
		WasBlocked:  false,
		Detections:  nil,
	}, nil
}

// Compile-time interface compliance check.
var _ PromptFilter = (*NopPromptFilter)(nil)
