// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// SubmitResultInput is the request body for a collector submitting its
// verdict on one expectation. Success is a pointer so that an explicit
// false still passes required-field validation.
type SubmitResultInput struct {
	SourceID   string            `json:"source_id" binding:"required"`
	SourceType string            `json:"source_type"`
	SourceName string            `json:"source_name"`
	Success    *bool             `json:"success" binding:"required"`
	Result     string            `json:"result"`
	Signatures []Signature       `json:"signatures"`
	Metadata   map[string]string `json:"metadata"`
}

// SeedExpectationInput describes one pending row to create. This is the
// stand-in surface for the upstream expectation builder; scores are never
// accepted here, rows always start pending.
type SeedExpectationInput struct {
	InjectID         string          `json:"inject_id" binding:"required"`
	Type             ExpectationType `json:"expectation_type" binding:"required"`
	Name             string          `json:"expectation_name"`
	AgentID          string          `json:"agent_id"`
	AssetID          string          `json:"asset_id"`
	AssetGroupID     string          `json:"asset_group_id"`
	TeamID           string          `json:"team_id"`
	UserID           string          `json:"user_id"`
	ExpectedScore    float64         `json:"expected_score" binding:"required,gt=0"`
	IsGroup          bool            `json:"expectation_group"`
	ExpiresAt        time.Time       `json:"expires_at" binding:"required"`
	AttackPatternIDs []string        `json:"attack_pattern_ids"`
}

// SeedInput is the bulk creation request, one entry per target per level.
type SeedInput struct {
	Expectations []SeedExpectationInput `json:"expectations" binding:"required,min=1,dive"`
}

// SummaryRequest selects the injects for a global (multi-inject) report.
type SummaryRequest struct {
	InjectIDs []string `json:"inject_ids" binding:"required,min=1"`
}
