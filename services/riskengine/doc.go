// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

// Package riskengine implements the Clarus risk computation core: pure
// functions mapping a patient record to cardiovascular and kidney-failure
// risk timelines, a combined qualitative level, and an optimal
// counterfactual for comparison.
//
// # Models
//
// Two published closed-form equations are evaluated with fixed
// coefficients:
//
//   - Cardiovascular: the sex-stratified pooled-cohort equations
//     (Goff et al., 2013 ACC/AHA guideline), projected to 5/10/15 years
//     from the fitted 10-year baseline under a constant-hazard assumption.
//   - Renal: the four-variable kidney-failure risk equation
//     (Tangri et al., JAMA 2011), with per-horizon baseline constants at
//     2/5/10 years.
//
// # Purity
//
// Every function here is stateless, synchronous, and side-effect free: no
// I/O, no locks, no randomness, no time dependence beyond the record's own
// fields. Re-invoking with an identical record yields a bit-identical
// result, so results may be cached or recomputed on every input change at
// the caller's discretion, and records may be evaluated concurrently
// without coordination.
//
// # Preconditions
//
// Age, total cholesterol, HDL cholesterol, systolic pressure, and ACR feed
// logarithms and must be strictly positive. Validate rejects violations
// with labeled errors; the compute functions assume validity and propagate
// NaN/Inf rather than substituting defaults.
//
// Outputs are population-level statistical estimates for decision support.
// They are not a diagnosis and not a substitute for clinical judgment.
package riskengine
