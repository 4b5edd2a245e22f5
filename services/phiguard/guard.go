// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package phiguard scans text for identifier-like content on the
// narrative egress path.
//
// The patterns ship embedded in the binary (see the enforcement
// subpackage), so every build enforces the same screening floor. Sites
// that need stricter or looser screening inject their own
// extensions.PromptFilter rather than editing the pattern file.
//
// The prompt builder already works from a de-identified record; the guard
// is the second line of defense, catching an identifier that arrives
// through a misconfigured intake or comes back invented in generated
// text.
package phiguard

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ClarusHealth/ClarusRisk/services/phiguard/enforcement"
)

// Guard classifies text against the loaded identifier patterns.
//
// # Thread Safety
//
// Safe for concurrent use. The classifier set is built once in NewGuard
// and never mutated, and compiled regexps are safe for concurrent
// matching.
type Guard struct {
	// Classifiers holds the loaded classifications, highest priority
	// first.
	Classifiers []Classification
}

// NewGuard loads the identifier patterns embedded in the binary.
//
// It unmarshals the pattern file, compiles every regular expression, and
// sorts the classifications by descending priority so Classify reports
// the most severe category first.
//
// An error here means a malformed pattern file, which is a broken build
// rather than a runtime condition.
func NewGuard() (*Guard, error) {
	var file patternFile
	if err := yaml.Unmarshal(enforcement.IdentifierPatterns, &file); err != nil {
		return nil, fmt.Errorf("unmarshal embedded patterns: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, err
	}
	file.sortByPriority()
	return &Guard{Classifiers: file.Classifications}, nil
}

// Classify reports the name of the highest-priority classification that
// matches data, or "clear" when nothing matches.
//
// This is the fast path for callers that need a category, not the full
// finding list.
func (g *Guard) Classify(data []byte) string {
	for _, classifier := range g.Classifiers {
		for _, pattern := range classifier.Patterns {
			if pattern.compiled.Match(data) {
				return classifier.Name
			}
		}
	}
	return "clear"
}

// Scan checks every line of text against every pattern and returns one
// Finding per matching pattern and line. An empty slice means the text
// is clear.
func (g *Guard) Scan(text string) []Finding {
	var findings []Finding
	for lineNum, line := range strings.Split(text, "\n") {
		for _, classifier := range g.Classifiers {
			for _, pattern := range classifier.Patterns {
				if pattern.compiled.MatchString(line) {
					findings = append(findings, Finding{
						Classification: classifier.Name,
						PatternID:      pattern.ID,
						Description:    pattern.Description,
						Confidence:     pattern.Confidence,
						Line:           lineNum + 1,
					})
				}
			}
		}
	}
	return findings
}
