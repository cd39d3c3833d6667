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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/observability"
	"github.com/AleutianAI/AleutianRange/services/scoring/report"
)

// =============================================================================
// Store Contract
// =============================================================================

// Store is the persistence contract the scoring service depends on. All
// methods are atomic per row; Save enforces optimistic versioning and
// returns ErrConflict (wrapped) on a concurrent write.
//
// The engine never creates or deletes rows on its own initiative: Insert
// exists for the expectation-builder surface, and nothing here deletes.
type Store interface {
	Get(ctx context.Context, id string) (datatypes.Expectation, error)
	Insert(ctx context.Context, expectations []datatypes.Expectation) error
	Save(ctx context.Context, e datatypes.Expectation) (datatypes.Expectation, error)
	FindByInject(ctx context.Context, injectID string) ([]datatypes.Expectation, error)
	FindByInjects(ctx context.Context, injectIDs []string) ([]datatypes.Expectation, error)
	FindByInjectAndType(ctx context.Context, injectID string, t datatypes.ExpectationType) ([]datatypes.Expectation, error)
}

// =============================================================================
// Scoring Service
// =============================================================================

// Service composes the pure scoring rules with a Store into the operations
// exposed to collectors and dashboards.
//
// # Thread Safety
//
// Service holds no mutable state; concurrency control lives in the store's
// per-row versioning. Concurrent submits to the same expectation serialize
// through Save conflicts, which callers resolve by retrying the whole
// operation.
type Service struct {
	store   Store
	metrics *observability.Metrics
}

// NewService creates a scoring service over the given store. Metrics may
// be nil (e.g. in tests); all instrumentation is then skipped.
func NewService(store Store, metrics *observability.Metrics) *Service {
	return &Service{store: store, metrics: metrics}
}

// SubmitResult records one collector's verdict on an expectation, merges
// the expectation's own score, and synchronously recomputes the affected
// parents.
//
// # Description
//
// The pipeline is: load row → upsert the source result (keyed by
// SourceID, a re-submitting collector replaces its earlier verdict) →
// re-run the merge rule → save → recompute the parent chain for
// technical hierarchy rows. Parent recompute never consults deadlines.
//
// # Outputs
//
//   - datatypes.Expectation: The updated row.
//   - error: ErrNotFound, ErrConflict, ErrInvalidState, or a store error.
func (s *Service) SubmitResult(ctx context.Context, expectationID string, input datatypes.SubmitResultInput) (datatypes.Expectation, error) {
	e, err := s.store.Get(ctx, expectationID)
	if err != nil {
		return datatypes.Expectation{}, err
	}
	if !e.Type.Valid() {
		return datatypes.Expectation{}, fmt.Errorf("%w: unknown expectation type %q", ErrInvalidState, e.Type)
	}

	now := time.Now().UTC()
	result := datatypes.SourceResult{
		SourceID:   input.SourceID,
		SourceType: input.SourceType,
		SourceName: input.SourceName,
		Success:    *input.Success,
		Result:     input.Result,
		Signatures: input.Signatures,
	}

	e.Results = ApplyResult(e.Results, result, now)
	e.Score = ResolveScore(e.Results, e.ExpectedScore)
	e.UpdatedAt = now

	saved, err := s.store.Save(ctx, e)
	if err != nil {
		return datatypes.Expectation{}, err
	}

	slog.Info("scoring: result submitted",
		"expectation_id", saved.ID,
		"inject_id", saved.InjectID,
		"source_id", input.SourceID,
		"success", *input.Success,
		"score", scoreAttr(saved.Score),
	)
	if s.metrics != nil {
		s.metrics.ResultsSubmitted.WithLabelValues(string(saved.Type)).Inc()
	}

	if err := s.propagate(ctx, saved); err != nil {
		return datatypes.Expectation{}, err
	}
	return saved, nil
}

// DeleteResult removes one collector's verdict and re-runs the same merge
// and propagation pipeline over the remaining results. Removing the only
// success reverts the expectation to the rule over what is left, which
// may be pending again if the list became empty.
func (s *Service) DeleteResult(ctx context.Context, expectationID, sourceID string) (datatypes.Expectation, error) {
	e, err := s.store.Get(ctx, expectationID)
	if err != nil {
		return datatypes.Expectation{}, err
	}

	remaining, removed := RemoveResult(e.Results, sourceID)
	if !removed {
		return datatypes.Expectation{}, fmt.Errorf("%w: no result from source %q", ErrNotFound, sourceID)
	}
	e.Results = remaining
	e.Score = ResolveScore(e.Results, e.ExpectedScore)
	e.UpdatedAt = time.Now().UTC()

	saved, err := s.store.Save(ctx, e)
	if err != nil {
		return datatypes.Expectation{}, err
	}

	slog.Info("scoring: result deleted",
		"expectation_id", saved.ID,
		"source_id", sourceID,
		"score", scoreAttr(saved.Score),
	)

	if err := s.propagate(ctx, saved); err != nil {
		return datatypes.Expectation{}, err
	}
	return saved, nil
}

// Get returns one expectation row.
func (s *Service) Get(ctx context.Context, expectationID string) (datatypes.Expectation, error) {
	return s.store.Get(ctx, expectationID)
}

// Seed bulk-creates pending rows on behalf of the expectation builder.
// Every row starts with a nil score regardless of input.
func (s *Service) Seed(ctx context.Context, input datatypes.SeedInput) ([]datatypes.Expectation, error) {
	now := time.Now().UTC()
	rows := make([]datatypes.Expectation, 0, len(input.Expectations))
	for _, in := range input.Expectations {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown expectation type %q", ErrInvalidState, in.Type)
		}
		rows = append(rows, datatypes.Expectation{
			ID:               uuid.NewString(),
			InjectID:         in.InjectID,
			Type:             in.Type,
			Name:             in.Name,
			AgentID:          in.AgentID,
			AssetID:          in.AssetID,
			AssetGroupID:     in.AssetGroupID,
			TeamID:           in.TeamID,
			UserID:           in.UserID,
			ExpectedScore:    in.ExpectedScore,
			IsGroup:          in.IsGroup,
			ExpiresAt:        in.ExpiresAt.UTC(),
			Results:          []datatypes.SourceResult{},
			AttackPatternIDs: in.AttackPatternIDs,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if err := s.store.Insert(ctx, rows); err != nil {
		return nil, err
	}
	slog.Info("scoring: expectations seeded", "count", len(rows))
	return rows, nil
}

// SummarizeInject reports the bucket results for one inject.
func (s *Service) SummarizeInject(ctx context.Context, injectID string) ([]datatypes.TypedResult, error) {
	expectations, err := s.store.FindByInject(ctx, injectID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SummaryRequests.WithLabelValues("inject").Inc()
	}
	return report.ByType(expectations), nil
}

// SummarizeInjects reports the global bucket results across many injects.
func (s *Service) SummarizeInjects(ctx context.Context, injectIDs []string) ([]datatypes.TypedResult, error) {
	expectations, err := s.store.FindByInjects(ctx, injectIDs)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SummaryRequests.WithLabelValues("global").Inc()
	}
	return report.ByType(expectations), nil
}

// SummarizeByAttackPattern reports per-attack-pattern bucket results for
// one inject's expectations.
func (s *Service) SummarizeByAttackPattern(ctx context.Context, injectID string) ([]datatypes.AttackPatternResult, error) {
	expectations, err := s.store.FindByInject(ctx, injectID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SummaryRequests.WithLabelValues("attack_pattern").Inc()
	}
	return report.ByAttackPattern(expectations), nil
}

// =============================================================================
// Parent Propagation
// =============================================================================

// propagate recomputes the parent chain after a leaf-level mutation.
//
// # Description
//
// Agent rows roll up into their asset row, and asset rows (including the
// one just recomputed) roll up into their asset-group row. Agentless
// asset rows roll up into the group directly. Team, player and
// already-top rows have no parent.
//
// The recompute reads one consistent snapshot of the inject's rows for
// the mutated type. A recompute racing a sibling update may be
// transiently stale; the sibling's own propagation corrects it.
func (s *Service) propagate(ctx context.Context, updated datatypes.Expectation) error {
	level := updated.TargetLevel()
	if level != datatypes.LevelAgent && level != datatypes.LevelAsset {
		return nil
	}

	rows, err := s.store.FindByInjectAndType(ctx, updated.InjectID, updated.Type)
	if err != nil {
		return fmt.Errorf("load expectation rows for propagation: %w", err)
	}
	// The snapshot predates the caller's save; patch the mutated row in.
	patchRow(rows, updated)

	if level == datatypes.LevelAgent {
		assetParent, ok := findRow(rows, datatypes.LevelAsset, func(r datatypes.Expectation) bool {
			return r.AssetID == updated.AssetID
		})
		if ok {
			children := filterRows(rows, datatypes.LevelAgent, func(r datatypes.Expectation) bool {
				return r.AssetID == assetParent.AssetID
			})
			saved, err := s.recomputeParent(ctx, children, assetParent)
			if err != nil {
				return err
			}
			patchRow(rows, saved)
		}
	}

	groupID := updated.AssetGroupID
	if groupID == "" {
		return nil
	}
	groupParent, ok := findRow(rows, datatypes.LevelAssetGroup, func(r datatypes.Expectation) bool {
		return r.AssetGroupID == groupID
	})
	if !ok {
		return nil
	}
	children := filterRows(rows, datatypes.LevelAsset, func(r datatypes.Expectation) bool {
		return r.AssetGroupID == groupParent.AssetGroupID
	})
	_, err = s.recomputeParent(ctx, children, groupParent)
	return err
}

// recomputeParent applies the decision table to one parent and persists
// the outcome.
func (s *Service) recomputeParent(ctx context.Context, children []datatypes.Expectation, parent datatypes.Expectation) (datatypes.Expectation, error) {
	score, err := ComputeParentScore(children, parent)
	if err != nil {
		return datatypes.Expectation{}, err
	}
	parent.Score = score
	parent.UpdatedAt = time.Now().UTC()

	saved, err := s.store.Save(ctx, parent)
	if err != nil {
		return datatypes.Expectation{}, fmt.Errorf("save parent %s: %w", parent.ID, err)
	}

	slog.Debug("scoring: parent recomputed",
		"expectation_id", saved.ID,
		"level", string(saved.TargetLevel()),
		"children", len(children),
		"score", scoreAttr(saved.Score),
	)
	if s.metrics != nil {
		s.metrics.PropagationRecomputes.WithLabelValues(string(saved.TargetLevel())).Inc()
	}
	return saved, nil
}

// =============================================================================
// Row Selection Helpers
// =============================================================================

func findRow(rows []datatypes.Expectation, level datatypes.TargetLevel, pred func(datatypes.Expectation) bool) (datatypes.Expectation, bool) {
	for _, r := range rows {
		if r.TargetLevel() == level && pred(r) {
			return r, true
		}
	}
	return datatypes.Expectation{}, false
}

func filterRows(rows []datatypes.Expectation, level datatypes.TargetLevel, pred func(datatypes.Expectation) bool) []datatypes.Expectation {
	out := make([]datatypes.Expectation, 0, len(rows))
	for _, r := range rows {
		if r.TargetLevel() == level && pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func patchRow(rows []datatypes.Expectation, updated datatypes.Expectation) {
	for i := range rows {
		if rows[i].ID == updated.ID {
			rows[i] = updated
			return
		}
	}
}

// scoreAttr renders a nullable score for logging.
func scoreAttr(score *float64) any {
	if score == nil {
		return "pending"
	}
	return *score
}
