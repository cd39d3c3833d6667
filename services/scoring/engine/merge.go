// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the expectation scoring rules: merging
// collector results into a single expectation's score, and propagating
// child outcomes up the agent → asset → asset-group hierarchy.
//
// Everything in this package is a pure function over data supplied by the
// caller. Persistence and transaction boundaries belong to the Service,
// which composes these rules with a Store.
package engine

import (
	"time"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

// =============================================================================
// Result Merge
// =============================================================================

// FailedScore is the terminal score written for a failed or expired
// expectation.
const FailedScore = 0.0

// ResolveScore computes an expectation's own score from its collector
// results.
//
// # Description
//
// The rule is success-dominant OR across sources:
//
//   - no results        → nil (pending)
//   - any success       → expectedScore
//   - only failures     → 0
//
// It is insensitive to result order and to how many failing sources exist
// once one success has been recorded. Removing a failing result never
// changes an already-successful score; removing the only success re-runs
// this same rule over the remainder.
//
// # Inputs
//
//   - results: The expectation's current source results.
//   - expectedScore: The expectation's success threshold.
//
// # Outputs
//
//   - *float64: nil for pending, otherwise the resolved score.
func ResolveScore(results []datatypes.SourceResult, expectedScore float64) *float64 {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if r.Success {
			return datatypes.ScoreValue(expectedScore)
		}
	}
	return datatypes.ScoreValue(FailedScore)
}

// ComputeScore returns the score a boolean verdict resolves to for the
// given expectation: the expected score on success, FailedScore otherwise.
func ComputeScore(e datatypes.Expectation, success bool) float64 {
	if success {
		return e.ExpectedScore
	}
	return FailedScore
}

// ApplyResult returns a new results snapshot with the given result
// upserted, keyed by SourceID. A collector that reports twice replaces its
// earlier verdict instead of stacking a second entry.
//
// The input slice is not modified; the store persists the returned
// snapshot.
func ApplyResult(results []datatypes.SourceResult, result datatypes.SourceResult, now time.Time) []datatypes.SourceResult {
	result.Timestamp = now
	out := make([]datatypes.SourceResult, 0, len(results)+1)
	replaced := false
	for _, r := range results {
		if r.SourceID == result.SourceID {
			out = append(out, result)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, result)
	}
	return out
}

// RemoveResult returns a new results snapshot without the given source's
// entry. The second return is false when the source had no entry.
func RemoveResult(results []datatypes.SourceResult, sourceID string) ([]datatypes.SourceResult, bool) {
	out := make([]datatypes.SourceResult, 0, len(results))
	removed := false
	for _, r := range results {
		if r.SourceID == sourceID {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}
