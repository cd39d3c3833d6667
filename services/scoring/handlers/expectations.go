// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the scoring service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
)

// GetExpectation returns one expectation row with its results.
func GetExpectation(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		expectation, err := svc.Get(c.Request.Context(), c.Param("expectationId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expectation)
	}
}

// SubmitResult records a collector verdict and runs the merge and
// propagation pipeline.
func SubmitResult(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input datatypes.SubmitResultInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		expectation, err := svc.SubmitResult(c.Request.Context(), c.Param("expectationId"), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expectation)
	}
}

// DeleteResult removes one collector's verdict and re-runs the pipeline
// over the remaining results.
func DeleteResult(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		expectation, err := svc.DeleteResult(c.Request.Context(),
			c.Param("expectationId"), c.Param("sourceId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expectation)
	}
}

// SeedExpectations bulk-creates pending rows. This is the expectation
// builder's surface; collectors never call it.
func SeedExpectations(svc *engine.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input datatypes.SeedInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rows, err := svc.Seed(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": len(rows), "expectations": rows})
	}
}

// respondError maps engine errors onto HTTP statuses. Conflicts get 409
// so collectors retry the whole submit; invalid state gets 422 because
// retrying cannot help.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.Error("scoring request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
