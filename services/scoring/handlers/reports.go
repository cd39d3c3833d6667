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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
)

// InjectResults serves the per-inject bucket summary.
func InjectResults(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := svc.SummarizeInject(c.Request.Context(), c.Param("injectId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// GlobalResults serves the multi-inject summary used by the global
// dashboard.
func GlobalResults(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SummaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := svc.SummarizeInjects(c.Request.Context(), req.InjectIDs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// AttackPatternResults serves per-attack-pattern summaries for one
// inject.
func AttackPatternResults(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := svc.SummarizeByAttackPattern(c.Request.Context(), c.Param("injectId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
