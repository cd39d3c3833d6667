// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package expiration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

// fakeSource is an in-memory ExpectationSource with scripted save
// failures for error-isolation tests.
type fakeSource struct {
	rows     map[string]datatypes.Expectation
	failSave map[string]error
	saves    int
}

func newFakeSource(rows ...datatypes.Expectation) *fakeSource {
	s := &fakeSource{
		rows:     make(map[string]datatypes.Expectation),
		failSave: make(map[string]error),
	}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeSource) PendingPastDeadline(_ context.Context, now time.Time, limit int) ([]datatypes.Expectation, error) {
	var out []datatypes.Expectation
	for _, r := range s.rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.Score == nil && !now.Before(r.ExpiresAt) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *fakeSource) Save(_ context.Context, e datatypes.Expectation) (datatypes.Expectation, error) {
	s.saves++
	if err, ok := s.failSave[e.ID]; ok {
		return datatypes.Expectation{}, err
	}
	s.rows[e.ID] = e.Clone()
	return e, nil
}

func overdueRow(id string, t datatypes.ExpectationType, deadline time.Time) datatypes.Expectation {
	return datatypes.Expectation{
		ID:            id,
		InjectID:      "inj-1",
		Type:          t,
		AssetID:       "as1",
		ExpectedScore: 100,
		ExpiresAt:     deadline,
	}
}

// TestSweep_ExpiresOverdueRows verifies the forced failure: zero score
// plus a failing entry from the expiration source.
func TestSweep_ExpiresOverdueRows(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	source := newFakeSource(
		overdueRow("exp-1", datatypes.TypePrevention, now.Add(-time.Minute)),
	)
	sweeper := NewSweeper(source, 0, nil)

	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Expired)
	assert.Empty(t, result.Errors)

	row := source.rows["exp-1"]
	require.NotNil(t, row.Score)
	assert.Equal(t, 0.0, *row.Score)

	require.Len(t, row.Results, 1)
	entry := row.Results[0]
	assert.Equal(t, SweepSourceID, entry.SourceID)
	assert.False(t, entry.Success)
	assert.Equal(t, "Not prevented", entry.Result)
	assert.Equal(t, now, entry.Timestamp)
}

// TestSweep_HierarchyIndependence verifies that every overdue pending
// row expires on its own: parents never wait for their children.
func TestSweep_HierarchyIndependence(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Minute)

	agent := overdueRow("agent-1", datatypes.TypeDetection, deadline)
	agent.AgentID = "a1"
	agent.AssetGroupID = "g1"
	asset := overdueRow("asset-1", datatypes.TypeDetection, deadline)
	asset.AssetGroupID = "g1"
	group := overdueRow("group-1", datatypes.TypeDetection, deadline)
	group.AssetID = ""
	group.AssetGroupID = "g1"
	group.IsGroup = true

	source := newFakeSource(agent, asset, group)
	sweeper := NewSweeper(source, 0, nil)

	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 3, result.Expired)

	for _, id := range []string{"agent-1", "asset-1", "group-1"} {
		row := source.rows[id]
		require.NotNil(t, row.Score, id)
		assert.Equal(t, 0.0, *row.Score, id)
		entry, ok := row.ResultBySource(SweepSourceID)
		require.True(t, ok, id)
		assert.Equal(t, "Not detected", entry.Result, id)
	}
}

// TestSweep_SkipsNonQualifyingRows verifies resolved rows and rows with
// a future deadline are untouched.
func TestSweep_SkipsNonQualifyingRows(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	resolved := overdueRow("resolved", datatypes.TypePrevention, now.Add(-time.Minute))
	resolved.Score = datatypes.ScoreValue(100)
	future := overdueRow("future", datatypes.TypePrevention, now.Add(time.Hour))

	source := newFakeSource(resolved, future)
	sweeper := NewSweeper(source, 0, nil)

	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Found)
	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, 0, source.saves)

	require.NotNil(t, source.rows["resolved"].Score)
	assert.Equal(t, 100.0, *source.rows["resolved"].Score)
	assert.Nil(t, source.rows["future"].Score)
}

// TestSweep_ErrorIsolation verifies one failing row never aborts the
// pass; it is recorded and the rest still expire.
func TestSweep_ErrorIsolation(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	source := newFakeSource(
		overdueRow("ok-1", datatypes.TypeManual, now.Add(-time.Minute)),
		overdueRow("bad-1", datatypes.TypeManual, now.Add(-time.Minute)),
		overdueRow("ok-2", datatypes.TypeManual, now.Add(-time.Minute)),
	)
	source.failSave["bad-1"] = errors.New("version conflict")
	sweeper := NewSweeper(source, 0, nil)

	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 2, result.Expired)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad-1", result.Errors[0].ExpectationID)
	assert.Contains(t, result.Errors[0].Reason, "version conflict")

	assert.Nil(t, source.rows["bad-1"].Score)
	require.NotNil(t, source.rows["ok-1"].Score)
	require.NotNil(t, source.rows["ok-2"].Score)
}

// TestSweep_BatchLimit verifies the per-pass row cap.
func TestSweep_BatchLimit(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]datatypes.Expectation, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, overdueRow(fmt.Sprintf("exp-%d", i), datatypes.TypePrevention, now.Add(-time.Minute)))
	}
	source := newFakeSource(rows...)
	sweeper := NewSweeper(source, 2, nil)

	result, err := sweeper.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Expired)
}

// TestSweep_ContextCancellation verifies a cancelled context stops the
// pass between rows.
func TestSweep_ContextCancellation(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	source := newFakeSource(
		overdueRow("exp-1", datatypes.TypePrevention, now.Add(-time.Minute)),
	)
	sweeper := NewSweeper(source, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sweeper.Sweep(ctx, now)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestFailureMessage covers the per-type failure text.
func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Not prevented", FailureMessage(datatypes.TypePrevention))
	assert.Equal(t, "Not detected", FailureMessage(datatypes.TypeDetection))
	assert.Equal(t, "Not remediated", FailureMessage(datatypes.TypeVulnerability))
	assert.Equal(t, "Not validated", FailureMessage(datatypes.TypeArticle))
	assert.Equal(t, "Not validated", FailureMessage(datatypes.TypeChallenge))
	assert.Equal(t, "Not validated", FailureMessage(datatypes.TypeManual))
	assert.Equal(t, "Expired", FailureMessage("BOGUS"))
}
