// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRow(id, injectID string, t datatypes.ExpectationType) datatypes.Expectation {
	return datatypes.Expectation{
		ID:            id,
		InjectID:      injectID,
		Type:          t,
		AssetID:       "as1",
		ExpectedScore: 100,
		ExpiresAt:     time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Results:       []datatypes.SourceResult{},
	}
}

// TestOpenRequiresPath verifies that persistent mode requires a path.
func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{InMemory: false, Path: ""})
	assert.Error(t, err)
}

// TestOpenPersistent verifies rows survive a close and reopen cycle.
func TestOpenPersistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, []datatypes.Expectation{
		testRow("exp-1", "inj-1", datatypes.TypePrevention),
	}))
	require.NoError(t, s.Close())

	s2, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer s2.Close()

	row, err := s2.Get(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "inj-1", row.InjectID)
}

// TestInsertAndGet covers creation, versioning and duplicate rejection.
func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	t.Run("round trip assigns version 1", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, []datatypes.Expectation{
			testRow("exp-1", "inj-1", datatypes.TypePrevention),
		}))
		row, err := s.Get(ctx, "exp-1")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), row.Version)
		assert.Nil(t, row.Score)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		err := s.Insert(ctx, []datatypes.Expectation{
			testRow("exp-1", "inj-1", datatypes.TypePrevention),
		})
		assert.ErrorIs(t, err, engine.ErrInvalidState)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}

// TestSave covers the optimistic versioning contract.
func TestSave(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Insert(ctx, []datatypes.Expectation{
		testRow("exp-1", "inj-1", datatypes.TypePrevention),
	}))

	t.Run("save bumps the version", func(t *testing.T) {
		row, err := s.Get(ctx, "exp-1")
		require.NoError(t, err)

		row.Score = datatypes.ScoreValue(100)
		saved, err := s.Save(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), saved.Version)

		reread, err := s.Get(ctx, "exp-1")
		require.NoError(t, err)
		require.NotNil(t, reread.Score)
		assert.Equal(t, 100.0, *reread.Score)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale, err := s.Get(ctx, "exp-1")
		require.NoError(t, err)

		// A concurrent writer lands first.
		fresh := stale.Clone()
		_, err = s.Save(ctx, fresh)
		require.NoError(t, err)

		_, err = s.Save(ctx, stale)
		assert.ErrorIs(t, err, engine.ErrConflict)
	})

	t.Run("unknown row is not found", func(t *testing.T) {
		_, err := s.Save(ctx, testRow("missing", "inj-1", datatypes.TypePrevention))
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}

// TestFindByInject covers the index-backed inject queries.
func TestFindByInject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Insert(ctx, []datatypes.Expectation{
		testRow("exp-1", "inj-1", datatypes.TypePrevention),
		testRow("exp-2", "inj-1", datatypes.TypeDetection),
		testRow("exp-3", "inj-2", datatypes.TypePrevention),
	}))

	t.Run("single inject", func(t *testing.T) {
		rows, err := s.FindByInject(ctx, "inj-1")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("unknown inject is empty", func(t *testing.T) {
		rows, err := s.FindByInject(ctx, "inj-9")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("multiple injects", func(t *testing.T) {
		rows, err := s.FindByInjects(ctx, []string{"inj-1", "inj-2"})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("filtered by type", func(t *testing.T) {
		rows, err := s.FindByInjectAndType(ctx, "inj-1", datatypes.TypePrevention)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "exp-1", rows[0].ID)
	})
}

// TestPendingPastDeadline covers the expiration sweep query.
func TestPendingPastDeadline(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	deadline := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	overdue := testRow("overdue", "inj-1", datatypes.TypePrevention)
	resolved := testRow("resolved", "inj-1", datatypes.TypePrevention)
	future := testRow("future", "inj-1", datatypes.TypePrevention)
	future.ExpiresAt = deadline.Add(time.Hour)
	require.NoError(t, s.Insert(ctx, []datatypes.Expectation{overdue, resolved, future}))

	// Resolve one of the overdue rows.
	row, err := s.Get(ctx, "resolved")
	require.NoError(t, err)
	row.Score = datatypes.ScoreValue(0)
	_, err = s.Save(ctx, row)
	require.NoError(t, err)

	t.Run("exactly at the deadline qualifies", func(t *testing.T) {
		rows, err := s.PendingPastDeadline(ctx, deadline, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "overdue", rows[0].ID)
	})

	t.Run("before the deadline nothing qualifies", func(t *testing.T) {
		rows, err := s.PendingPastDeadline(ctx, deadline.Add(-time.Minute), 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		rows, err := s.PendingPastDeadline(ctx, deadline.Add(2*time.Hour), 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}
