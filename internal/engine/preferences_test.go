// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		name   string
		rating float64
		want   float64
	}{
		{"five star scale top", 5.0, 10.0},
		{"five star scale middle", 3.0, 6.0},
		{"five star scale low", 0.5, 1.0},
		{"zero", 0.0, 0.0},
		{"ten point scale passthrough", 7.5, 7.5},
		{"ten point scale top", 10.0, 10.0},
		{"just above five", 5.1, 5.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRating(tt.rating); got != tt.want {
				t.Errorf("NormalizeRating(%v) = %v, want %v", tt.rating, got, tt.want)
			}
		})
	}
}

func TestUpdatePreferenceApplied(t *testing.T) {
	old := []float64{0.0, 1.0, -0.5}
	item := []float64{1.0, 0.0, 0.5}

	updated, applied, err := UpdatePreference(old, item, 8.0, 0.05, 6.0)
	if err != nil {
		t.Fatalf("UpdatePreference failed: %v", err)
	}
	if !applied {
		t.Fatal("expected update to apply for rating 8.0")
	}

	want := []float64{0.05, 0.95, -0.45}
	for i := range want {
		if math.Abs(updated[i]-want[i]) > 1e-12 {
			t.Errorf("dimension %d: got %v, want %v", i, updated[i], want[i])
		}
	}

	// Input must never be mutated.
	if old[0] != 0.0 || old[1] != 1.0 || old[2] != -0.5 {
		t.Errorf("input vector mutated: %v", old)
	}
}

func TestUpdatePreferenceBelowThreshold(t *testing.T) {
	tests := []struct {
		name   string
		rating float64
		apply  bool
	}{
		{"normalized to exactly threshold", 3.0, true}, // 3.0 * 2 = 6.0
		{"normalized just below threshold", 2.9, false}, // 2.9 * 2 = 5.8
		{"ten point below threshold", 5.9, false},
		{"ten point at threshold", 6.0, true},
		{"zero rating", 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := []float64{0.5, 0.5}
			item := []float64{1.0, 0.0}

			updated, applied, err := UpdatePreference(old, item, tt.rating, 0.05, 6.0)
			if err != nil {
				t.Fatalf("UpdatePreference failed: %v", err)
			}
			if applied != tt.apply {
				t.Fatalf("rating %v: applied = %v, want %v", tt.rating, applied, tt.apply)
			}
			if !applied {
				// Below-threshold ratings return the vector untouched.
				if updated[0] != 0.5 || updated[1] != 0.5 {
					t.Errorf("expected unchanged vector, got %v", updated)
				}
			}
		})
	}
}

func TestUpdatePreferenceDimensionMismatch(t *testing.T) {
	old := []float64{0.5, 0.5, 0.5}
	item := []float64{1.0, 0.0}

	updated, applied, err := UpdatePreference(old, item, 9.0, 0.05, 6.0)
	if err == nil {
		t.Fatal("expected dimension mismatch error, got nil")
	}
	if applied {
		t.Error("mismatch must not report applied")
	}
	if updated != nil {
		t.Error("mismatch must not return a vector")
	}

	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *DimensionMismatchError, got %T", err)
	}
	if mismatch.Expected != 3 || mismatch.Actual != 2 {
		t.Errorf("expected dimensions 3/2, got %d/%d", mismatch.Expected, mismatch.Actual)
	}
}

func TestUpdatePreferenceMismatchBelowThreshold(t *testing.T) {
	// A below-threshold rating short-circuits before the dimension check:
	// the vector is returned unchanged even when the item vector is bogus.
	old := []float64{0.5}
	item := []float64{1.0, 2.0}

	updated, applied, err := UpdatePreference(old, item, 1.0, 0.05, 6.0)
	if err != nil {
		t.Fatalf("expected no error for below-threshold rating, got %v", err)
	}
	if applied {
		t.Error("expected applied=false")
	}
	if len(updated) != 1 || updated[0] != 0.5 {
		t.Errorf("expected unchanged vector, got %v", updated)
	}
}

func TestZeroVector(t *testing.T) {
	vec := ZeroVector(64)
	if len(vec) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("dimension %d not zero: %v", i, v)
		}
	}
}
