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

// ResultStatus is the rolled-up verdict for one report bucket.
type ResultStatus string

const (
	StatusUnknown ResultStatus = "UNKNOWN"
	StatusPending ResultStatus = "PENDING"
	StatusPartial ResultStatus = "PARTIAL"
	StatusSuccess ResultStatus = "SUCCESS"
	StatusFailed  ResultStatus = "FAILED"
)

// Distribution entry ids, shared across buckets. Dashboards key their
// series on these, the labels are bucket-specific display text.
const (
	DistributionSuccessID = "success"
	DistributionPendingID = "pending"
	DistributionPartialID = "partial"
	DistributionFailedID  = "failed"
)

// ResultBucket is a semantic grouping of expectation types for reporting,
// with the display labels used in distribution entries.
type ResultBucket struct {
	ID           string `json:"bucket_id"`
	SuccessLabel string `json:"-"`
	FailureLabel string `json:"-"`
	PartialLabel string `json:"-"`
	PendingLabel string `json:"-"`
}

var (
	// BucketPrevention covers PREVENTION expectations.
	BucketPrevention = ResultBucket{
		ID:           "PREVENTION",
		SuccessLabel: "Blocked",
		FailureLabel: "Unblocked",
		PartialLabel: "Partially Blocked",
		PendingLabel: "Pending",
	}

	// BucketDetection covers DETECTION expectations.
	BucketDetection = ResultBucket{
		ID:           "DETECTION",
		SuccessLabel: "Detected",
		FailureLabel: "Undetected",
		PartialLabel: "Partially Detected",
		PendingLabel: "Pending",
	}

	// BucketHumanResponse covers ARTICLE, CHALLENGE and MANUAL
	// expectations.
	BucketHumanResponse = ResultBucket{
		ID:           "HUMAN_RESPONSE",
		SuccessLabel: "Successful",
		FailureLabel: "Failed",
		PartialLabel: "Partial",
		PendingLabel: "Pending",
	}
)

// ResultDistribution is one labeled count in a bucket's distribution.
type ResultDistribution struct {
	ID    string `json:"distribution_id"`
	Label string `json:"distribution_label"`
	Value int    `json:"distribution_value"`
}

// TypedResult is the reportable outcome for one bucket: an averaged status
// plus the success/pending/partial/failed counts behind it.
type TypedResult struct {
	Bucket       string               `json:"bucket"`
	Status       ResultStatus         `json:"status"`
	Distribution []ResultDistribution `json:"distribution"`
}

// AttackPatternResult groups typed results under one attack pattern for
// the MITRE-style matrix view.
type AttackPatternResult struct {
	AttackPatternID string        `json:"attack_pattern_id"`
	InjectIDs       []string      `json:"inject_ids"`
	Results         []TypedResult `json:"results"`
}
