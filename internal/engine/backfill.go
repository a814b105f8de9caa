// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"context"
	"sort"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// CompareCandidates orders backfill candidates: higher popularity first,
// release year descending as the tiebreak. Pure function; the sort that
// uses it is stable so equal candidates keep their provider order.
func CompareCandidates(a, b *models.ResolvedItem) int {
	switch {
	case a.Popularity > b.Popularity:
		return -1
	case a.Popularity < b.Popularity:
		return 1
	}

	ay, by := a.ReleaseYear(), b.ReleaseYear()
	switch {
	case ay > by:
		return -1
	case ay < by:
		return 1
	}
	return 0
}

// findReplacement searches for a quality substitute for a rejected item.
// One similar-items call, no pagination, no recursion: candidates are
// de-self-referenced, sorted by CompareCandidates, and the first one passing
// the quality gate wins. A second detail fetch upgrades the winner to its
// full payload; if that fetch fails, the rejected item is simply dropped
// (nil return) rather than retried or replaced transitively.
func (e *Engine) findReplacement(ctx context.Context, bad *models.ResolvedItem, filter QualityFilter) *models.ResolvedItem {
	metrics.BackfillAttempts.WithLabelValues(bad.MediaType.String()).Inc()

	similar, err := e.meta.SimilarItems(ctx, bad.ItemID, bad.MediaType)
	if err != nil {
		logging.Warn().Err(err).Int64("item_id", bad.ItemID).Msg("Backfill similar-items lookup failed")
		return nil
	}

	candidates := make([]models.ResolvedItem, 0, len(similar))
	for _, cand := range similar {
		if cand.ItemID == bad.ItemID {
			continue
		}
		candidates = append(candidates, cand)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return CompareCandidates(&candidates[i], &candidates[j]) < 0
	})

	for i := range candidates {
		if filter.IsBad(&candidates[i]) {
			continue
		}

		detail, err := e.meta.ItemDetail(ctx, candidates[i].ItemID, candidates[i].MediaType)
		if err != nil {
			logging.Warn().Err(err).Int64("item_id", candidates[i].ItemID).Msg("Backfill detail fetch failed, dropping slot")
			return nil
		}

		metrics.BackfillHits.WithLabelValues(bad.MediaType.String()).Inc()
		return detail
	}

	return nil
}
