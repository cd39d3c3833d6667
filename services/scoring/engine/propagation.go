// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

// =============================================================================
// Parent Score Propagation
// =============================================================================

// ComputeParentScore recomputes one parent expectation's score from its
// direct children.
//
// # Description
//
// Children are the next level down for the same inject and type: an
// asset's children are its agent rows, an asset-group's children are its
// member assets' own rows (never agents transitively).
//
// The decision depends on the parent's IsGroup flag:
//
//   - Non-group ("must hold everywhere"): a single confirmed failure is
//     conclusive; success requires every child to have reported and
//     passed.
//   - Group ("holds somewhere is enough"): a single confirmed success is
//     conclusive; failure requires every child to have reported and
//     failed.
//
// In both modes a fully-pending child set short-circuits to pending, and a
// mixed set with pending children resolves to pending unless the dominant
// direction has a confirmed outcome.
//
// # Inputs
//
//   - children: The parent's direct children. May be empty.
//   - parent: The parent being recomputed. Only ExpectedScore, IsGroup and
//     Type are consulted; deadlines never are.
//
// # Outputs
//
//   - *float64: The parent's new score; nil means pending.
//   - error: ErrInvalidState if the parent's type is not a known type.
//
// # Limitations
//
//   - The caller owns consistency of the child snapshot: a recompute that
//     races with a child update may produce a transiently stale decision,
//     corrected by the next child update.
func ComputeParentScore(children []datatypes.Expectation, parent datatypes.Expectation) (*float64, error) {
	if !parent.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown expectation type %q", ErrInvalidState, parent.Type)
	}

	expected := parent.ExpectedScore

	if allPending(children) {
		return nil, nil
	}

	atLeast := func(score float64) bool { return score >= expected }
	below := func(score float64) bool { return score < expected }

	if parent.IsGroup {
		if anyMatch(children, atLeast) {
			return datatypes.ScoreValue(ComputeScore(parent, true)), nil
		}
		if allMatch(children, below) {
			return datatypes.ScoreValue(ComputeScore(parent, false)), nil
		}
		return nil, nil
	}

	if anyMatch(children, below) {
		return datatypes.ScoreValue(ComputeScore(parent, false)), nil
	}
	if allMatch(children, atLeast) {
		return datatypes.ScoreValue(ComputeScore(parent, true)), nil
	}
	return nil, nil
}

// allPending reports whether the child set carries no concrete outcome at
// all: empty, or every score nil.
func allPending(children []datatypes.Expectation) bool {
	for _, c := range children {
		if c.Score != nil {
			return false
		}
	}
	return true
}

// allMatch reports whether every child has a non-nil score satisfying the
// predicate. A single pending child makes this false, as does an empty
// set.
func allMatch(children []datatypes.Expectation, pred func(float64) bool) bool {
	if len(children) == 0 {
		return false
	}
	for _, c := range children {
		if c.Score == nil || !pred(*c.Score) {
			return false
		}
	}
	return true
}

// anyMatch reports whether at least one child has a non-nil score
// satisfying the predicate. Pending children are skipped, not counted
// against the match.
func anyMatch(children []datatypes.Expectation, pred func(float64) bool) bool {
	for _, c := range children {
		if c.Score != nil && pred(*c.Score) {
			return true
		}
	}
	return false
}
