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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

func child(score *float64) datatypes.Expectation {
	return datatypes.Expectation{
		Type:          datatypes.TypePrevention,
		ExpectedScore: 100,
		Score:         score,
	}
}

func children(scores ...*float64) []datatypes.Expectation {
	out := make([]datatypes.Expectation, 0, len(scores))
	for _, s := range scores {
		out = append(out, child(s))
	}
	return out
}

func scoreOf(v float64) *float64 { return datatypes.ScoreValue(v) }

// TestComputeParentScore_NonGroup covers the failure-dominant mode: a
// single confirmed failure is conclusive, success requires all children
// confirmed at or above the threshold.
func TestComputeParentScore_NonGroup(t *testing.T) {
	parent := datatypes.Expectation{
		Type:          datatypes.TypePrevention,
		ExpectedScore: 100,
		IsGroup:       false,
	}

	t.Run("all successful resolves to success", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(100), scoreOf(100)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 100.0, *score)
	})

	t.Run("one confirmed failure is conclusive", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(100), scoreOf(0)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 0.0, *score)
	})

	t.Run("failure dominates even with pending siblings", func(t *testing.T) {
		score, err := ComputeParentScore(children(nil, scoreOf(0), nil), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 0.0, *score)
	})

	t.Run("success plus pending stays pending", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(100), nil), parent)
		require.NoError(t, err)
		assert.Nil(t, score)
	})

	t.Run("below-threshold child counts as failure", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(100), scoreOf(50)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 0.0, *score)
	})
}

// TestComputeParentScore_Group covers the success-dominant mode: a single
// confirmed success is conclusive, failure requires all children confirmed
// below the threshold.
func TestComputeParentScore_Group(t *testing.T) {
	parent := datatypes.Expectation{
		Type:          datatypes.TypePrevention,
		ExpectedScore: 100,
		IsGroup:       true,
	}

	t.Run("one confirmed success is conclusive", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(100), scoreOf(0)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 100.0, *score)
	})

	t.Run("success dominates even with pending siblings", func(t *testing.T) {
		score, err := ComputeParentScore(children(nil, scoreOf(100)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 100.0, *score)
	})

	t.Run("all failed resolves to failure", func(t *testing.T) {
		score, err := ComputeParentScore(children(scoreOf(0), scoreOf(0)), parent)
		require.NoError(t, err)
		require.NotNil(t, score)
		assert.Equal(t, 0.0, *score)
	})

	t.Run("failure plus pending stays pending", func(t *testing.T) {
		score, err := ComputeParentScore(children(nil, scoreOf(0)), parent)
		require.NoError(t, err)
		assert.Nil(t, score)
	})
}

// TestComputeParentScore_Pending covers the shared short-circuits.
func TestComputeParentScore_Pending(t *testing.T) {
	t.Run("all pending short-circuits for both modes", func(t *testing.T) {
		for _, isGroup := range []bool{false, true} {
			parent := datatypes.Expectation{
				Type:          datatypes.TypeDetection,
				ExpectedScore: 100,
				IsGroup:       isGroup,
			}
			score, err := ComputeParentScore(children(nil, nil), parent)
			require.NoError(t, err)
			assert.Nil(t, score, "isGroup=%v", isGroup)
		}
	})

	t.Run("empty child set stays pending", func(t *testing.T) {
		parent := datatypes.Expectation{Type: datatypes.TypeDetection, ExpectedScore: 100}
		score, err := ComputeParentScore(nil, parent)
		require.NoError(t, err)
		assert.Nil(t, score)
	})
}

// TestComputeParentScore_InvalidType verifies unknown types are rejected
// instead of being scored.
func TestComputeParentScore_InvalidType(t *testing.T) {
	parent := datatypes.Expectation{Type: "SOMETHING_ELSE", ExpectedScore: 100}
	_, err := ComputeParentScore(children(scoreOf(100)), parent)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// TestComputeParentScore_PartialCredit verifies that a parent with a
// lower threshold can pass on a child's partial score.
func TestComputeParentScore_PartialCredit(t *testing.T) {
	parent := datatypes.Expectation{
		Type:          datatypes.TypeManual,
		ExpectedScore: 50,
		IsGroup:       true,
	}
	// A human-response child holding half credit meets a 50 threshold.
	score, err := ComputeParentScore(children(scoreOf(50), scoreOf(0)), parent)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 50.0, *score)
}
