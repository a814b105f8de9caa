// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// GetCachedItems returns the subset of the requested items present in the
// item cache and fetched within the TTL. Rows past the TTL are misses; the
// caller fetches those from the provider and writes them back.
func (db *DB) GetCachedItems(ctx context.Context, refs []models.CandidateRef) (map[int64]models.ResolvedItem, error) {
	found := make(map[int64]models.ResolvedItem, len(refs))
	if len(refs) == 0 {
		return found, nil
	}

	start := time.Now()
	cutoff := time.Now().UTC().Add(-db.itemCacheTTL)

	for _, ref := range refs {
		var payload string
		err := db.conn.QueryRowContext(ctx,
			`SELECT payload FROM item_cache
			 WHERE item_id = ? AND media_type = ? AND fetched_at > ?`,
			ref.ItemID, ref.MediaType.String(), cutoff,
		).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			metrics.RecordDBQuery("get", "item_cache", time.Since(start), err)
			return nil, fmt.Errorf("failed to query item cache: %w", err)
		}

		var item models.ResolvedItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			// A corrupt cache row is a miss, not a failure.
			logging.Warn().Err(err).Int64("item_id", ref.ItemID).Msg("Dropping undecodable item cache row")
			continue
		}
		found[ref.ItemID] = item
	}

	metrics.RecordDBQuery("get", "item_cache", time.Since(start), nil)
	return found, nil
}

// PutCachedItems upserts freshly fetched item details into the cache.
func (db *DB) PutCachedItems(ctx context.Context, items []models.ResolvedItem) error {
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	now := time.Now().UTC()

	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode item %d: %w", item.ItemID, err)
		}

		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO item_cache (item_id, media_type, payload, fetched_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (item_id, media_type) DO UPDATE
			 SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
			item.ItemID, item.MediaType.String(), string(payload), now,
		); err != nil {
			metrics.RecordDBQuery("put", "item_cache", time.Since(start), err)
			return fmt.Errorf("failed to upsert item cache row %d: %w", item.ItemID, err)
		}
	}

	metrics.RecordDBQuery("put", "item_cache", time.Since(start), nil)
	return nil
}

// ResolveInternalID maps a provider item id to the embedding store's
// internal id. Returns ErrNotFound when the item has no embedding.
func (db *DB) ResolveInternalID(ctx context.Context, providerID int64, mediaType models.MediaType) (string, error) {
	start := time.Now()

	var internalID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT internal_id FROM item_id_map WHERE provider_id = ? AND media_type = ?`,
		providerID, mediaType.String(),
	).Scan(&internalID)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("resolve", "item_id_map", time.Since(start), nil)
		return "", fmt.Errorf("provider id %d (%s): %w", providerID, mediaType, ErrNotFound)
	}
	if err != nil {
		metrics.RecordDBQuery("resolve", "item_id_map", time.Since(start), err)
		return "", fmt.Errorf("failed to resolve internal id: %w", err)
	}

	metrics.RecordDBQuery("resolve", "item_id_map", time.Since(start), nil)
	return internalID, nil
}

// PutInternalID upserts a provider-id to internal-id mapping.
func (db *DB) PutInternalID(ctx context.Context, providerID int64, mediaType models.MediaType, internalID string) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO item_id_map (provider_id, media_type, internal_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT (provider_id, media_type) DO UPDATE
		 SET internal_id = excluded.internal_id`,
		providerID, mediaType.String(), internalID,
	)
	metrics.RecordDBQuery("put", "item_id_map", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert id mapping: %w", err)
	}
	return nil
}

// GetItemVector loads an item embedding by internal id. Returns ErrNotFound
// when no embedding exists for the id.
func (db *DB) GetItemVector(ctx context.Context, internalID string, mediaType models.MediaType) (*models.ItemVector, error) {
	start := time.Now()

	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT vector FROM item_vectors WHERE internal_id = ? AND media_type = ?`,
		internalID, mediaType.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "item_vectors", time.Since(start), nil)
		return nil, fmt.Errorf("internal id %s (%s): %w", internalID, mediaType, ErrNotFound)
	}
	if err != nil {
		metrics.RecordDBQuery("get", "item_vectors", time.Since(start), err)
		return nil, fmt.Errorf("failed to query item vector: %w", err)
	}

	vec := &models.ItemVector{InternalID: internalID, MediaType: mediaType}
	if err := json.Unmarshal([]byte(raw), &vec.Values); err != nil {
		metrics.RecordDBQuery("get", "item_vectors", time.Since(start), err)
		return nil, fmt.Errorf("failed to decode item vector %s: %w", internalID, err)
	}

	metrics.RecordDBQuery("get", "item_vectors", time.Since(start), nil)
	return vec, nil
}

// PutItemVector upserts an item embedding.
func (db *DB) PutItemVector(ctx context.Context, vec *models.ItemVector) error {
	start := time.Now()

	raw, err := json.Marshal(vec.Values)
	if err != nil {
		return fmt.Errorf("failed to encode item vector %s: %w", vec.InternalID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO item_vectors (internal_id, media_type, vector)
		 VALUES (?, ?, ?)
		 ON CONFLICT (internal_id, media_type) DO UPDATE
		 SET vector = excluded.vector`,
		vec.InternalID, vec.MediaType.String(), string(raw),
	)
	metrics.RecordDBQuery("put", "item_vectors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert item vector %s: %w", vec.InternalID, err)
	}
	return nil
}
