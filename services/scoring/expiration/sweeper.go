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
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
	"github.com/AleutianAI/AleutianRange/services/scoring/observability"
)

// SweepSourceID identifies the built-in expiration source in result
// lists. It behaves like any other collector from the merge rule's point
// of view: one failing entry.
const SweepSourceID = "expectations-expiration-manager"

// sweeper implements Sweeper over an ExpectationSource.
//
// # Thread Safety
//
// Stateless; safe for concurrent use. Row-level races with concurrent
// report ingestion resolve through the store's versioning: the losing
// side of a conflict is skipped here and retried next pass, or has become
// non-pending and no longer qualifies.
type sweeper struct {
	source    ExpectationSource
	batchSize int
	metrics   *observability.Metrics
}

// NewSweeper creates a Sweeper reading at most batchSize rows per pass
// (0 means unbounded). Metrics may be nil.
func NewSweeper(source ExpectationSource, batchSize int, metrics *observability.Metrics) Sweeper {
	return &sweeper{source: source, batchSize: batchSize, metrics: metrics}
}

// Sweep forces every overdue pending expectation to failure.
//
// # Description
//
// Each qualifying row — leaf or parent, regardless of sibling or child
// state — gets a zero score and a failing result entry from the
// expiration source, then is persisted individually. A row that fails to
// persist (typically a version conflict with concurrent ingestion) is
// logged, recorded in the result and skipped; the next scheduled pass
// picks it up again if it is still pending.
//
// Expiration never consults children and never triggers propagation: a
// parent whose children are all successful but unreconciled still expires
// to failure, per the engine's independence rule.
func (s *sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	result := SweepResult{
		StartTime: time.Now(),
		Errors:    make([]SweepError, 0),
	}

	rows, err := s.source.PendingPastDeadline(ctx, now, s.batchSize)
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("query overdue expectations: %w", err)
	}
	result.Found = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			result.EndTime = time.Now()
			return result, err
		}
		if err := s.expire(ctx, row, now); err != nil {
			slog.Warn("expiration: failed to expire expectation",
				"expectation_id", row.ID,
				"inject_id", row.InjectID,
				"error", err,
			)
			result.Errors = append(result.Errors, SweepError{
				ExpectationID: row.ID,
				Reason:        err.Error(),
			})
			continue
		}
		result.Expired++
	}

	if s.metrics != nil {
		s.metrics.SweepExpired.Add(float64(result.Expired))
	}
	result.EndTime = time.Now()
	return result, nil
}

// expire writes the terminal failure for one row: zero score plus a
// failing result entry carrying the per-type failure message.
func (s *sweeper) expire(ctx context.Context, row datatypes.Expectation, now time.Time) error {
	row.Score = datatypes.ScoreValue(engine.FailedScore)
	row.Results = engine.ApplyResult(row.Results, datatypes.SourceResult{
		SourceID:   SweepSourceID,
		SourceType: "expiration",
		SourceName: "Expectations Expiration Manager",
		Success:    false,
		Result:     FailureMessage(row.Type),
	}, now)
	row.UpdatedAt = now

	_, err := s.source.Save(ctx, row)
	return err
}

// FailureMessage returns the human-readable failure text written when an
// expectation of the given type expires.
func FailureMessage(t datatypes.ExpectationType) string {
	switch t {
	case datatypes.TypePrevention:
		return "Not prevented"
	case datatypes.TypeDetection:
		return "Not detected"
	case datatypes.TypeVulnerability:
		return "Not remediated"
	case datatypes.TypeArticle, datatypes.TypeChallenge, datatypes.TypeManual,
		datatypes.TypeText, datatypes.TypeDocument:
		return "Not validated"
	default:
		return "Expired"
	}
}
