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
	"sync"
	"time"

	"github.com/AleutianAI/AleutianRange/services/scoring/observability"
)

// SchedulerConfig holds configuration for the background sweep scheduler.
//
// # Fields
//
//   - Interval: How often to run a sweep pass. Default: 1 minute.
//   - BatchSize: Maximum rows to expire per pass. Default: 500.
type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultSchedulerConfig returns production defaults: a one-minute
// cadence (deadlines are minute-granular) with a 500-row batch cap to
// bound pass duration after long downtime.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:  1 * time.Minute,
		BatchSize: 500,
	}
}

// sweepScheduler implements Scheduler using the ticker + done channel
// pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe; a mutex protects the running state.
type sweepScheduler struct {
	sweeper Sweeper
	config  SchedulerConfig
	metrics *observability.Metrics
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a sweep scheduler. Metrics may be nil.
//
// # Examples
//
//	sweeper := expiration.NewSweeper(store, cfg.BatchSize, metrics)
//	scheduler := expiration.NewScheduler(sweeper, cfg, metrics)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
//	defer scheduler.Stop()
func NewScheduler(sweeper Sweeper, config SchedulerConfig, metrics *observability.Metrics) Scheduler {
	return &sweepScheduler{
		sweeper: sweeper,
		config:  config,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start begins the background sweep loop. The loop runs one pass
// immediately, then on every interval tick, until Stop() or context
// cancellation.
func (s *sweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweep scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset for potential restart
	s.mu.Unlock()

	slog.Info("expiration sweep scheduler starting",
		"interval", s.config.Interval.String(),
		"batch_size", s.config.BatchSize,
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit. It does not interrupt an in-progress
// pass; the pass is safe to resume next start because every row write is
// idempotent.
func (s *sweepScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	slog.Info("expiration sweep scheduler stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow triggers an immediate sweep pass outside the schedule.
func (s *sweepScheduler) RunNow(ctx context.Context) (SweepResult, error) {
	return s.sweeper.Sweep(ctx, time.Now().UTC())
}

// runLoop is the scheduler goroutine.
func (s *sweepScheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiration sweep scheduler stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("expiration sweep scheduler stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs one pass with logging and error handling so a failed
// pass never crashes the scheduler.
func (s *sweepScheduler) executeSweep(ctx context.Context) {
	result, err := s.sweeper.Sweep(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("expiration sweep failed", "error", err)
		if s.metrics != nil {
			s.metrics.SweepCycles.WithLabelValues("failed").Inc()
		}
		return
	}

	if s.metrics != nil {
		s.metrics.SweepCycles.WithLabelValues("completed").Inc()
	}

	// Only log at info when something was found
	if result.Found > 0 {
		slog.Info("expiration sweep completed",
			"found", result.Found,
			"expired", result.Expired,
			"errors", len(result.Errors),
			"duration_ms", result.DurationMs(),
		)
	} else {
		slog.Debug("expiration sweep completed (no overdue expectations)")
	}
}
