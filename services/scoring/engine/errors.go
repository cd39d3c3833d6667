// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

// Sentinel errors for the scoring pipeline. Handlers map these to HTTP
// statuses; everything else is treated as an internal failure.
var (
	// ErrNotFound means the referenced expectation or source result does
	// not exist. Not retryable.
	ErrNotFound = errors.New("expectation not found")

	// ErrConflict means a concurrent write touched the same expectation
	// row. The whole submit/delete operation is safe to retry because the
	// merge is idempotent given the same input state.
	ErrConflict = errors.New("concurrent modification of expectation")

	// ErrInvalidState means an expectation reached a decision point with a
	// type or shape no branch accepts. This is a programming or seeding
	// error: the operation is rejected rather than defaulted, and the row
	// is left untouched.
	ErrInvalidState = errors.New("expectation in invalid state")
)
