// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import "fmt"

// DimensionMismatchError reports an item embedding whose length does not
// match the user's preference vector. This is a data integrity fault, never
// a recoverable condition: callers must abort the update without writing.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: preference vector has %d dimensions, item vector has %d", e.Expected, e.Actual)
}

// NormalizeRating maps a rating onto the 10-point scale. Sources that rate
// out of 5 are detected by value: anything at or below 5 is doubled,
// anything above is already on the 10-point scale.
func NormalizeRating(rating float64) float64 {
	if rating <= 5 {
		return rating * 2
	}
	return rating
}

// UpdatePreference applies one exponential-approach step moving the
// preference vector toward the item embedding:
//
//	new[i] = old[i] + alpha*(item[i] - old[i])
//
// Ratings below the like threshold (after normalization) change nothing and
// return applied=false. The input slice is never mutated; the returned slice
// is freshly allocated so callers can persist it only once the whole update
// succeeded.
func UpdatePreference(old, item []float64, rating, alpha, likeThreshold float64) (updated []float64, applied bool, err error) {
	if NormalizeRating(rating) < likeThreshold {
		return old, false, nil
	}

	if len(old) != len(item) {
		return nil, false, &DimensionMismatchError{Expected: len(old), Actual: len(item)}
	}

	updated = make([]float64, len(old))
	for i := range old {
		updated[i] = old[i] + alpha*(item[i]-old[i])
	}
	return updated, true, nil
}

// ZeroVector returns a fresh all-zero preference vector for first-time
// raters.
func ZeroVector(dimension int) []float64 {
	return make([]float64, dimension)
}
