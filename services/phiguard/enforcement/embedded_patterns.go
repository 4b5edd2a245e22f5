// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

/*
This file bridges the pattern definitions into the build. The go:embed
directive bakes identifier_patterns.yaml into the compiled binary, so the
screening floor travels with the executable and cannot be edited on the
host filesystem without recompiling.
*/

package enforcement

import (
	_ "embed"
)

// IdentifierPatterns holds the raw byte content of identifier_patterns.yaml.
//
// The variable is populated at compile time by the embed directive and is
// consumed by phiguard.NewGuard, which unmarshals it into the classifier
// set. Treat the pattern file as append-only across releases: removing a
// pattern silently weakens every deployment that upgrades.
//
// Usage:
//
//	err := yaml.Unmarshal(enforcement.IdentifierPatterns, &targetStruct)
//
//go:embed identifier_patterns.yaml
var IdentifierPatterns []byte
