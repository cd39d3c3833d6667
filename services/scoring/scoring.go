// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring assembles the expectation scoring service: the badger
// store, the scoring engine, the expiration scheduler and the HTTP API.
package scoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
	"github.com/AleutianAI/AleutianRange/services/scoring/expiration"
	"github.com/AleutianAI/AleutianRange/services/scoring/observability"
	"github.com/AleutianAI/AleutianRange/services/scoring/routes"
	"github.com/AleutianAI/AleutianRange/services/scoring/store"
)

// Config holds the service configuration, populated from environment
// variables by cmd/scoring.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// DataDir is the badger store directory. Empty selects in-memory
	// mode (testing only; nothing survives a restart).
	DataDir string

	// SweepInterval is the expiration sweep cadence.
	SweepInterval time.Duration

	// SweepBatchSize caps rows expired per pass.
	SweepBatchSize int

	// EnableMetrics registers Prometheus metrics on the default
	// registry.
	EnableMetrics bool

	// TraceWriter receives exported spans. Nil disables export.
	TraceWriter io.Writer
}

// applyConfigDefaults fills unset fields with production defaults.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = expiration.DefaultSchedulerConfig().Interval
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = expiration.DefaultSchedulerConfig().BatchSize
	}
	return cfg
}

// Service is the assembled scoring service.
type Service interface {
	// Run starts the HTTP server and blocks until it stops.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Close stops the scheduler and releases the store and tracer.
	Close()
}

type service struct {
	config        Config
	router        *gin.Engine
	store         *store.Store
	scheduler     expiration.Scheduler
	schedulerStop context.CancelFunc
	tracerCleanup func(context.Context)
}

// New assembles the service: opens the store, wires the engine and
// sweeper, starts the expiration scheduler and builds the router.
//
// # Outputs
//
//   - Service: Ready to Run(). Caller must Close() when done.
//   - error: Non-nil if the store or tracer cannot be initialized.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	if s.config.TraceWriter != nil {
		cleanup, err := observability.InitTracer(s.config.TraceWriter)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	var metrics *observability.Metrics
	if s.config.EnableMetrics {
		metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for scoring")
	}

	storeCfg := store.InMemoryConfig()
	if s.config.DataDir != "" {
		storeCfg = store.DefaultConfig(s.config.DataDir)
		storeCfg.Logger = slog.Default()
	} else {
		slog.Warn("no data directory configured, using in-memory store")
	}
	st, err := store.Open(storeCfg)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open expectation store: %w", err)
	}
	s.store = st

	svc := engine.NewService(st, metrics)

	sweeper := expiration.NewSweeper(st, s.config.SweepBatchSize, metrics)
	s.scheduler = expiration.NewScheduler(sweeper, expiration.SchedulerConfig{
		Interval:  s.config.SweepInterval,
		BatchSize: s.config.SweepBatchSize,
	}, metrics)

	schedulerCtx, cancel := context.WithCancel(context.Background())
	s.schedulerStop = cancel
	if err := s.scheduler.Start(schedulerCtx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to start sweep scheduler: %w", err)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware("scoring-service"))
	if metrics != nil {
		s.router.Use(observability.MetricsMiddleware(metrics))
	}
	routes.SetupRoutes(s.router, svc, s.scheduler)

	return s, nil
}

// Run starts the HTTP server and blocks until it stops. Cleanup is
// automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting scoring server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the configured Gin engine for integration testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases everything New acquired. Safe to call once.
func (s *service) Close() {
	s.cleanup()
}

func (s *service) cleanup() {
	if s.scheduler != nil {
		_ = s.scheduler.Stop()
	}
	if s.schedulerStop != nil {
		s.schedulerStop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Error("failed to close expectation store", "error", err)
		}
		s.store = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// DefaultTraceWriter returns the default span destination: stderr when
// AL_RANGE_TRACE=1, discarded otherwise.
func DefaultTraceWriter() io.Writer {
	if os.Getenv("AL_RANGE_TRACE") == "1" {
		return os.Stderr
	}
	return nil
}
