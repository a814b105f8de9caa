// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"context"
	"sync"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// resolveCandidates turns candidate ids into full item payloads. The cache
// is consulted first; only misses go to the provider, fetched concurrently
// with a bounded fan-out. A failed fetch drops that one candidate and the
// run continues with the rest. No retries: a candidate that cannot be
// resolved this run is gone, the next run will see it again.
//
// The returned slice preserves the candidates' ranking order even though
// fetches complete in arbitrary order.
func (e *Engine) resolveCandidates(ctx context.Context, refs []models.CandidateRef) ([]models.ResolvedItem, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	mediaType := refs[0].MediaType

	resolved, err := e.cache.GetCachedItems(ctx, refs)
	if err != nil {
		return nil, err
	}
	metrics.ItemCacheHits.Add(float64(len(resolved)))

	var misses []models.CandidateRef
	for _, ref := range refs {
		if _, ok := resolved[ref.ItemID]; !ok {
			misses = append(misses, ref)
		}
	}
	metrics.ItemCacheMisses.Add(float64(len(misses)))

	if len(misses) > 0 {
		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			fetched []models.ResolvedItem
		)
		sem := make(chan struct{}, e.cfg.MaxConcurrentFetches)

		for _, ref := range misses {
			wg.Add(1)
			sem <- struct{}{}
			go func(ref models.CandidateRef) {
				defer wg.Done()
				defer func() { <-sem }()

				item, err := e.meta.ItemDetail(ctx, ref.ItemID, ref.MediaType)
				if err != nil {
					metrics.ResolveDrops.WithLabelValues(ref.MediaType.String()).Inc()
					logging.Warn().Err(err).Int64("item_id", ref.ItemID).Str("media_type", ref.MediaType.String()).Msg("Dropping candidate after failed detail fetch")
					return
				}

				mu.Lock()
				resolved[ref.ItemID] = *item
				fetched = append(fetched, *item)
				mu.Unlock()
			}(ref)
		}
		wg.Wait()

		if len(fetched) > 0 {
			if err := e.cache.PutCachedItems(ctx, fetched); err != nil {
				// Cache write failure costs a future fetch, not this run.
				logging.Warn().Err(err).Msg("Failed to write fetched items to cache")
			}
		}
	}

	items := make([]models.ResolvedItem, 0, len(resolved))
	for _, ref := range refs {
		if item, ok := resolved[ref.ItemID]; ok {
			items = append(items, item)
		}
	}

	logging.Debug().Str("media_type", mediaType.String()).Int("requested", len(refs)).Int("resolved", len(items)).Msg("Candidate resolution complete")
	return items, nil
}
