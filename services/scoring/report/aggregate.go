// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report normalizes expectation outcomes into the status buckets
// and distributions served to dashboards.
//
// The aggregation has two entry points: ByType over loaded Expectation
// objects, and ByTypeFromRows over the flattened read-model used for
// high-volume global queries. Both share the normalization, status and
// distribution code so they produce identical results for equivalent
// input.
package report

import (
	"sort"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
)

// Row is the flattened read-model projection of an expectation, carrying
// exactly the fields the aggregation needs. Global multi-inject queries
// materialize these instead of full rows.
type Row struct {
	InjectID         string
	Type             datatypes.ExpectationType
	TeamID           string
	Score            *float64
	ExpectedScore    float64
	AttackPatternIDs []string
}

// bucketTypes maps each report bucket to the expectation types it covers.
// TEXT, DOCUMENT and VULNERABILITY are not part of this summary.
var bucketTypes = []struct {
	bucket datatypes.ResultBucket
	types  []datatypes.ExpectationType
}{
	{datatypes.BucketPrevention, []datatypes.ExpectationType{datatypes.TypePrevention}},
	{datatypes.BucketDetection, []datatypes.ExpectationType{datatypes.TypeDetection}},
	{datatypes.BucketHumanResponse, []datatypes.ExpectationType{
		datatypes.TypeArticle, datatypes.TypeChallenge, datatypes.TypeManual,
	}},
}

// NormalizeScore maps one expectation outcome onto the trinary scale
// {1, 0.5, 0} or nil for pending.
//
// Team-scoped outcomes are binary at the threshold: no partial credit in
// the team context. Technical and individual outcomes earn 0.5 for a
// positive score below the threshold.
func NormalizeScore(teamScoped bool, score *float64, expectedScore float64) *float64 {
	if score == nil {
		return nil
	}
	if *score >= expectedScore {
		return datatypes.ScoreValue(1.0)
	}
	if teamScoped {
		return datatypes.ScoreValue(0.0)
	}
	if *score == 0 {
		return datatypes.ScoreValue(0.0)
	}
	return datatypes.ScoreValue(0.5)
}

// ByType summarizes loaded expectations into one TypedResult per bucket.
func ByType(expectations []datatypes.Expectation) []datatypes.TypedResult {
	rows := make([]Row, 0, len(expectations))
	for _, e := range expectations {
		rows = append(rows, Row{
			InjectID:         e.InjectID,
			Type:             e.Type,
			TeamID:           e.TeamID,
			Score:            e.Score,
			ExpectedScore:    e.ExpectedScore,
			AttackPatternIDs: e.AttackPatternIDs,
		})
	}
	return ByTypeFromRows(rows)
}

// ByTypeFromRows summarizes flattened read-model rows into one
// TypedResult per bucket.
func ByTypeFromRows(rows []Row) []datatypes.TypedResult {
	out := make([]datatypes.TypedResult, 0, len(bucketTypes))
	for _, bt := range bucketTypes {
		normalized := normalizedScores(rows, bt.types)
		out = append(out, bucketResult(bt.bucket, normalized))
	}
	return out
}

// ByAttackPattern groups an inject set by attack pattern and summarizes
// each group separately. Expectations without attack pattern references
// do not appear in any group. Groups are emitted in stable id order.
func ByAttackPattern(expectations []datatypes.Expectation) []datatypes.AttackPatternResult {
	grouped := make(map[string][]datatypes.Expectation)
	injects := make(map[string]map[string]struct{})
	for _, e := range expectations {
		for _, ap := range e.AttackPatternIDs {
			grouped[ap] = append(grouped[ap], e)
			if injects[ap] == nil {
				injects[ap] = make(map[string]struct{})
			}
			injects[ap][e.InjectID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(grouped))
	for ap := range grouped {
		ids = append(ids, ap)
	}
	sort.Strings(ids)

	out := make([]datatypes.AttackPatternResult, 0, len(ids))
	for _, ap := range ids {
		injectIDs := make([]string, 0, len(injects[ap]))
		for id := range injects[ap] {
			injectIDs = append(injectIDs, id)
		}
		sort.Strings(injectIDs)
		out = append(out, datatypes.AttackPatternResult{
			AttackPatternID: ap,
			InjectIDs:       injectIDs,
			Results:         ByType(grouped[ap]),
		})
	}
	return out
}

// normalizedScores filters rows to the given types and normalizes each
// outcome. Pending rows stay in the list as nils so the distribution can
// count them.
func normalizedScores(rows []Row, types []datatypes.ExpectationType) []*float64 {
	out := make([]*float64, 0, len(rows))
	for _, r := range rows {
		if !containsType(types, r.Type) {
			continue
		}
		out = append(out, NormalizeScore(r.TeamID != "", r.Score, r.ExpectedScore))
	}
	return out
}

// bucketResult computes the status and distribution for one bucket.
//
// No expectations at all → UNKNOWN. Expectations but no resolved scores →
// PENDING. Otherwise the mean over resolved scores decides: 0 → FAILED,
// 1 → SUCCESS, anything between → PARTIAL. Pending rows are excluded from
// the mean but counted in the distribution.
func bucketResult(bucket datatypes.ResultBucket, normalized []*float64) datatypes.TypedResult {
	if len(normalized) == 0 {
		return datatypes.TypedResult{
			Bucket:       bucket.ID,
			Status:       datatypes.StatusUnknown,
			Distribution: []datatypes.ResultDistribution{},
		}
	}

	sum := 0.0
	resolved := 0
	for _, n := range normalized {
		if n != nil {
			sum += *n
			resolved++
		}
	}

	status := datatypes.StatusPending
	if resolved > 0 {
		switch mean := sum / float64(resolved); mean {
		case 0.0:
			status = datatypes.StatusFailed
		case 1.0:
			status = datatypes.StatusSuccess
		default:
			status = datatypes.StatusPartial
		}
	}

	return datatypes.TypedResult{
		Bucket:       bucket.ID,
		Status:       status,
		Distribution: distribution(bucket, normalized),
	}
}

// distribution counts the normalized outcomes into the four labeled
// entries dashboards render.
func distribution(bucket datatypes.ResultBucket, normalized []*float64) []datatypes.ResultDistribution {
	var success, partial, failed, pending int
	for _, n := range normalized {
		switch {
		case n == nil:
			pending++
		case *n == 1.0:
			success++
		case *n == 0.5:
			partial++
		default:
			failed++
		}
	}
	return []datatypes.ResultDistribution{
		{ID: datatypes.DistributionSuccessID, Label: bucket.SuccessLabel, Value: success},
		{ID: datatypes.DistributionPendingID, Label: bucket.PendingLabel, Value: pending},
		{ID: datatypes.DistributionPartialID, Label: bucket.PartialLabel, Value: partial},
		{ID: datatypes.DistributionFailedID, Label: bucket.FailureLabel, Value: failed},
	}
}

func containsType(types []datatypes.ExpectationType, t datatypes.ExpectationType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
