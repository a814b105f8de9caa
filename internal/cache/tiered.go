// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/reelsense/internal/models"
)

// ItemStore is the durable cache tier behind the in-memory LRU.
type ItemStore interface {
	GetCachedItems(ctx context.Context, refs []models.CandidateRef) (map[int64]models.ResolvedItem, error)
	PutCachedItems(ctx context.Context, items []models.ResolvedItem) error
}

// TieredItemCache layers the in-memory LRU in front of a durable item
// store. Lookups drain the hot tier first and only pass the remaining refs
// to the store; durable hits are promoted into the hot tier on the way out.
type TieredItemCache struct {
	hot   *LRU
	store ItemStore
}

// NewTieredItemCache wraps store with an in-memory hot tier.
func NewTieredItemCache(store ItemStore, capacity int, ttl time.Duration) *TieredItemCache {
	return &TieredItemCache{
		hot:   NewLRU(capacity, ttl),
		store: store,
	}
}

// GetCachedItems returns every cached item among refs, keyed by item id.
// Refs absent from both tiers are simply omitted from the result.
func (c *TieredItemCache) GetCachedItems(ctx context.Context, refs []models.CandidateRef) (map[int64]models.ResolvedItem, error) {
	found := make(map[int64]models.ResolvedItem, len(refs))

	var cold []models.CandidateRef
	for _, ref := range refs {
		if item, ok := c.hot.Get(ref.ItemID, ref.MediaType); ok {
			found[ref.ItemID] = item
			continue
		}
		cold = append(cold, ref)
	}

	if len(cold) == 0 {
		return found, nil
	}

	stored, err := c.store.GetCachedItems(ctx, cold)
	if err != nil {
		return nil, err
	}
	for id, item := range stored {
		c.hot.Add(item)
		found[id] = item
	}

	return found, nil
}

// PutCachedItems writes items to the durable store and seeds the hot tier.
func (c *TieredItemCache) PutCachedItems(ctx context.Context, items []models.ResolvedItem) error {
	if err := c.store.PutCachedItems(ctx, items); err != nil {
		return err
	}
	for _, item := range items {
		c.hot.Add(item)
	}
	return nil
}
