// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianRange/services/scoring/expiration"
)

// RunSweep triggers an immediate expiration pass outside the schedule.
// Used by operators and integration tests; the scheduled sweeps continue
// unaffected.
func RunSweep(scheduler expiration.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to run expiration sweep")
		result, err := scheduler.RunNow(c.Request.Context())
		if err != nil {
			slog.Error("manual expiration sweep failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
