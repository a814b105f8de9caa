// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/models"
)

// QualityFilter rejects low-quality items from recommendation sets. An item
// is rejected when any of three tests fires:
//
//   - its vote average is below the hard floor,
//   - its release year predates the hard cutoff,
//   - it sits in the mid-tier trap: decent-but-unremarkable rating combined
//     with an older release.
//
// Items whose release date cannot be parsed get year 0 and are rejected by
// the year cutoff.
type QualityFilter struct {
	MinVoteAverage     float64
	MinYear            int
	MidTierVoteAverage float64
	MidTierYear        int
}

func newQualityFilter(cfg *config.FilterConfig) QualityFilter {
	return QualityFilter{
		MinVoteAverage:     cfg.MinVoteAverage,
		MinYear:            cfg.MinYear,
		MidTierVoteAverage: cfg.MidTierVoteAverage,
		MidTierYear:        cfg.MidTierYear,
	}
}

// IsBad reports whether the item fails the quality gate.
func (f QualityFilter) IsBad(item *models.ResolvedItem) bool {
	year := item.ReleaseYear()

	if item.VoteAverage < f.MinVoteAverage {
		return true
	}
	if year < f.MinYear {
		return true
	}
	if item.VoteAverage < f.MidTierVoteAverage && year <= f.MidTierYear {
		return true
	}
	return false
}
