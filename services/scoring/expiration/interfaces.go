// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expiration forces still-pending expectations to a terminal
// failure once their deadline has elapsed.
//
// The sweep is a periodic batch job, fully independent of the report
// ingestion path: it never inspects children, never triggers propagation,
// and treats every row on its own. It is idempotent per row, so an
// interrupted or partially-failed sweep is simply retried on the next
// scheduled run.
package expiration

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

// ExpectationSource is the slice of the store the sweeper needs: finding
// overdue pending rows and persisting the forced failure. Row updates are
// atomic with optimistic versioning.
type ExpectationSource interface {
	PendingPastDeadline(ctx context.Context, now time.Time, limit int) ([]datatypes.Expectation, error)
	Save(ctx context.Context, e datatypes.Expectation) (datatypes.Expectation, error)
}

// Sweeper performs one expiration pass over overdue pending rows.
type Sweeper interface {
	// Sweep expires every pending expectation whose deadline has passed
	// as of now. Per-row failures are recorded in the result, never
	// aborting the pass.
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

// Scheduler runs the sweeper periodically in the background.
type Scheduler interface {
	// Start begins the background sweep loop. Returns an error if the
	// scheduler is already running.
	Start(ctx context.Context) error

	// Stop signals the loop to exit. Safe to call multiple times.
	Stop() error

	// RunNow triggers an immediate sweep outside the schedule.
	RunNow(ctx context.Context) (SweepResult, error)
}

// SweepError records one row that could not be expired this pass.
type SweepError struct {
	ExpectationID string `json:"expectation_id"`
	Reason        string `json:"reason"`
}

// SweepResult summarizes one expiration pass.
//
// # Fields
//
//   - Found: Overdue pending rows discovered.
//   - Expired: Rows successfully forced to failure.
//   - Errors: Per-row failures, skipped and retried next pass.
//   - StartTime / EndTime: Pass boundaries.
type SweepResult struct {
	Found     int          `json:"found"`
	Expired   int          `json:"expired"`
	Errors    []SweepError `json:"errors"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
}

// DurationMs returns the pass duration in milliseconds for logging.
func (r SweepResult) DurationMs() int64 {
	return r.EndTime.Sub(r.StartTime).Milliseconds()
}
