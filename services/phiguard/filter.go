// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package phiguard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
)

// redactedMark replaces matched content in generated text.
const redactedMark = "[REMOVED]"

// Filter adapts a Guard to the extensions.PromptFilter interface. It is
// the shipped default filter on the narrative path.
//
// Prompts and narratives get different treatment:
//
//   - FilterPrompt blocks on any finding. The prompt builder works from a
//     de-identified record, so a hit means something upstream is feeding
//     identifiers in; refusing is safer than repairing.
//   - FilterNarrative redacts. Generated text can contain an invented
//     identifier-shaped string, and removing it keeps an otherwise good
//     narrative usable.
type Filter struct {
	guard *Guard
}

// NewFilter builds a Filter over the embedded identifier patterns.
func NewFilter() (*Filter, error) {
	guard, err := NewGuard()
	if err != nil {
		return nil, err
	}
	return &Filter{guard: guard}, nil
}

// FilterPrompt screens an assembled prompt before it is sent to a model
// backend. Any finding blocks the prompt outright.
//
// The block reason names the matched pattern IDs only; neither the
// reason nor the detections carry the matched text.
func (f *Filter) FilterPrompt(ctx context.Context, prompt string) (*extensions.FilterResult, error) {
	result := &extensions.FilterResult{Original: prompt, Filtered: prompt}

	findings := f.guard.Scan(prompt)
	if len(findings) == 0 {
		return result, nil
	}

	result.WasBlocked = true
	result.BlockReason = "identifier pattern matched: " + strings.Join(patternIDs(findings), ", ")
	for _, finding := range findings {
		result.Detections = append(result.Detections, extensions.Detection{
			Type:     strings.ToLower(finding.PatternID),
			Location: fmt.Sprintf("line %d", finding.Line),
			Action:   "blocked",
		})
	}
	return result, nil
}

// FilterNarrative screens generated text before it reaches the caller or
// a report. Matches are replaced with a redaction mark and the text
// passes through modified.
func (f *Filter) FilterNarrative(ctx context.Context, narrative string) (*extensions.FilterResult, error) {
	result := &extensions.FilterResult{Original: narrative, Filtered: narrative}

	findings := f.guard.Scan(narrative)
	if len(findings) == 0 {
		return result, nil
	}

	filtered := narrative
	for _, classifier := range f.guard.Classifiers {
		for _, pattern := range classifier.Patterns {
			filtered = pattern.compiled.ReplaceAllString(filtered, redactedMark)
		}
	}
	result.Filtered = filtered
	result.WasModified = true
	for _, finding := range findings {
		result.Detections = append(result.Detections, extensions.Detection{
			Type:        strings.ToLower(finding.PatternID),
			Location:    fmt.Sprintf("line %d", finding.Line),
			Action:      "redacted",
			Replacement: redactedMark,
		})
	}
	return result, nil
}

// patternIDs returns the unique pattern IDs across findings, sorted for
// stable block reasons.
func patternIDs(findings []Finding) []string {
	seen := make(map[string]bool, len(findings))
	var ids []string
	for _, finding := range findings {
		if !seen[finding.PatternID] {
			seen[finding.PatternID] = true
			ids = append(ids, finding.PatternID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Compile-time interface compliance check.
var _ extensions.PromptFilter = (*Filter)(nil)
