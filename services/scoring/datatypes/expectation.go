// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire and storage types for the scoring
// service: expectations, source results, and the report shapes served to
// dashboards.
package datatypes

import "time"

// ExpectationType identifies what kind of outcome an expectation tracks.
//
// The set is closed. Every switch over ExpectationType in the engine is
// exhaustive and rejects unknown values instead of guessing.
type ExpectationType string

const (
	TypePrevention    ExpectationType = "PREVENTION"
	TypeDetection     ExpectationType = "DETECTION"
	TypeVulnerability ExpectationType = "VULNERABILITY"
	TypeArticle       ExpectationType = "ARTICLE"
	TypeChallenge     ExpectationType = "CHALLENGE"
	TypeManual        ExpectationType = "MANUAL"
	TypeText          ExpectationType = "TEXT"
	TypeDocument      ExpectationType = "DOCUMENT"
)

// Valid reports whether t is one of the known expectation types.
func (t ExpectationType) Valid() bool {
	switch t {
	case TypePrevention, TypeDetection, TypeVulnerability,
		TypeArticle, TypeChallenge, TypeManual, TypeText, TypeDocument:
		return true
	default:
		return false
	}
}

// IsHumanResponse reports whether t is scored by people rather than
// collectors (article reads, challenge completions, manual validations).
func (t ExpectationType) IsHumanResponse() bool {
	switch t {
	case TypeArticle, TypeChallenge, TypeManual:
		return true
	default:
		return false
	}
}

// TargetLevel is the position of an expectation's target in the reporting
// hierarchy. Agent rows feed asset rows, asset rows feed asset-group rows.
// Team and player rows sit outside the technical hierarchy.
type TargetLevel string

const (
	LevelAgent      TargetLevel = "agent"
	LevelAsset      TargetLevel = "asset"
	LevelAssetGroup TargetLevel = "asset-group"
	LevelTeam       TargetLevel = "team"
	LevelPlayer     TargetLevel = "player"
	LevelUnknown    TargetLevel = "unknown"
)

// Signature is structured metadata attached by a collector to justify its
// verdict (e.g. a process name or an alert identifier).
type Signature struct {
	Type  string `json:"signature_type"`
	Value string `json:"signature_value"`
}

// SourceResult is one collector's verdict on one expectation. An
// expectation holds at most one SourceResult per SourceID; re-submitting
// replaces the previous entry.
type SourceResult struct {
	SourceID   string      `json:"source_id"`
	SourceType string      `json:"source_type"`
	SourceName string      `json:"source_name"`
	Success    bool        `json:"success"`
	Result     string      `json:"result"`
	Signatures []Signature `json:"signatures,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Expectation is the unit of truth for scoring: one inject, one type, one
// target. Rows are created in bulk by the expectation builder when an
// inject executes and are never created or deleted by this service; the
// engine only ever writes Score and Results.
//
// Target reference fields mirror the builder's denormalized layout:
//
//   - agent row: AgentID and AssetID set (AssetGroupID set when the asset
//     was targeted through a group)
//   - asset row: AssetID set, AgentID empty
//   - asset-group row: only AssetGroupID set
//   - team/player row: TeamID set (UserID set for player scope)
//
// A nil Score means pending. A resolved score is ExpectedScore for
// success, 0 for failure, or ExpectedScore/2 as partial credit on human
// response types. Score is not monotonic: parent rows move between
// success, failure and pending as their children change. Only the
// expiration-forced failure is terminal.
type Expectation struct {
	ID            string          `json:"expectation_id"`
	InjectID      string          `json:"inject_id"`
	Type          ExpectationType `json:"expectation_type"`
	Name          string          `json:"expectation_name,omitempty"`
	Description   string          `json:"expectation_description,omitempty"`
	AgentID       string          `json:"agent_id,omitempty"`
	AssetID       string          `json:"asset_id,omitempty"`
	AssetGroupID  string          `json:"asset_group_id,omitempty"`
	TeamID        string          `json:"team_id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	ExpectedScore float64         `json:"expected_score"`
	Score         *float64        `json:"score"`
	IsGroup       bool            `json:"expectation_group"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Results       []SourceResult  `json:"results"`

	// AttackPatternIDs is denormalized from the inject's contract so
	// reports can group results without resolving the inject.
	AttackPatternIDs []string `json:"attack_pattern_ids,omitempty"`

	// Version is the optimistic concurrency token, managed by the store.
	Version uint64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetLevel derives the hierarchy level from which reference fields are
// populated. Player scope is checked before team, and agent before asset,
// because lower levels carry their ancestors' ids.
func (e *Expectation) TargetLevel() TargetLevel {
	switch {
	case e.UserID != "":
		return LevelPlayer
	case e.TeamID != "":
		return LevelTeam
	case e.AgentID != "":
		return LevelAgent
	case e.AssetID != "":
		return LevelAsset
	case e.AssetGroupID != "":
		return LevelAssetGroup
	default:
		return LevelUnknown
	}
}

// IsPending reports whether the expectation has no terminal outcome yet.
func (e *Expectation) IsPending() bool {
	return e.Score == nil
}

// ResultBySource returns the stored result for the given collector, if any.
func (e *Expectation) ResultBySource(sourceID string) (SourceResult, bool) {
	for _, r := range e.Results {
		if r.SourceID == sourceID {
			return r, true
		}
	}
	return SourceResult{}, false
}

// Clone returns a deep copy so callers can mutate results and score
// without aliasing the stored row.
func (e *Expectation) Clone() Expectation {
	out := *e
	if e.Score != nil {
		s := *e.Score
		out.Score = &s
	}
	out.Results = make([]SourceResult, len(e.Results))
	copy(out.Results, e.Results)
	for i, r := range e.Results {
		if len(r.Signatures) > 0 {
			sigs := make([]Signature, len(r.Signatures))
			copy(sigs, r.Signatures)
			out.Results[i].Signatures = sigs
		}
	}
	if len(e.AttackPatternIDs) > 0 {
		out.AttackPatternIDs = append([]string(nil), e.AttackPatternIDs...)
	}
	return out
}

// ScoreValue returns a pointer to v. Convenience for building resolved
// expectations in tests and fixtures.
func ScoreValue(v float64) *float64 {
	return &v
}
