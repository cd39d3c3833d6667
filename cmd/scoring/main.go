// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scoring starts the AleutianRange expectation scoring server.
//
// This is the main entry point for the containerized scoring service. It
// reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - SCORING_PORT: HTTP server port (default: 12310)
//   - SCORING_DATA_DIR: Badger store directory (default: /var/lib/aleutian/scoring)
//   - SCORING_SWEEP_INTERVAL_SECONDS: Expiration sweep cadence (default: 60)
//   - SCORING_SWEEP_BATCH_SIZE: Max rows expired per pass (default: 500)
//   - SCORING_LOG_DIR: Directory for JSON log files (default: stderr only)
//   - AL_RANGE_TRACE: Set to 1 to export spans to stderr
//
// # Usage
//
//	# Build
//	go build -o scoring ./cmd/scoring
//
//	# Run
//	./scoring
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianRange/pkg/logging"
	"github.com/AleutianAI/AleutianRange/services/scoring"
)

func main() {
	// Setup structured logging
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  getEnvString("SCORING_LOG_DIR", ""),
		Service: "scoring",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Build configuration from environment variables
	cfg := scoring.Config{
		Port:           getEnvInt("SCORING_PORT", 12310),
		DataDir:        getEnvString("SCORING_DATA_DIR", "/var/lib/aleutian/scoring"),
		SweepInterval:  time.Duration(getEnvInt("SCORING_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		SweepBatchSize: getEnvInt("SCORING_SWEEP_BATCH_SIZE", 500),
		EnableMetrics:  true,
		TraceWriter:    scoring.DefaultTraceWriter(),
	}

	slog.Info("Starting scoring service",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"sweep_interval", cfg.SweepInterval.String(),
	)

	svc, err := scoring.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create scoring service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Scoring service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
