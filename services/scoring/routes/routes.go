// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
	"github.com/AleutianAI/AleutianRange/services/scoring/expiration"
	"github.com/AleutianAI/AleutianRange/services/scoring/handlers"
)

// SetupRoutes registers the scoring API on the router.
func SetupRoutes(router *gin.Engine, svc *engine.Service, scheduler expiration.Scheduler) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		expectations := v1.Group("/expectations")
		{
			expectations.POST("", handlers.SeedExpectations(svc))
			expectations.POST("/sweep", handlers.RunSweep(scheduler))
			expectations.GET("/:expectationId", handlers.GetExpectation(svc))
			expectations.PUT("/:expectationId/results", handlers.SubmitResult(svc))
			expectations.DELETE("/:expectationId/results/:sourceId", handlers.DeleteResult(svc))
		}
		injects := v1.Group("/injects")
		{
			injects.GET("/:injectId/results", handlers.InjectResults(svc))
			injects.GET("/:injectId/results/attack-patterns", handlers.AttackPatternResults(svc))
			injects.POST("/results", handlers.GlobalResults(svc))
		}
	}
}
