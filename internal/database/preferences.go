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

	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// GetPreferenceVector loads a user's preference vector. Returns ErrNotFound
// for users who have never rated anything.
func (db *DB) GetPreferenceVector(ctx context.Context, userID string) (*models.PreferenceVector, error) {
	start := time.Now()

	var (
		raw       string
		updatedAt time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT vector, updated_at FROM preference_vectors WHERE user_id = ?`,
		userID,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "preference_vectors", time.Since(start), nil)
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		metrics.RecordDBQuery("get", "preference_vectors", time.Since(start), err)
		return nil, fmt.Errorf("failed to query preference vector: %w", err)
	}

	vec := &models.PreferenceVector{UserID: userID, UpdatedAt: updatedAt}
	if err := json.Unmarshal([]byte(raw), &vec.Values); err != nil {
		metrics.RecordDBQuery("get", "preference_vectors", time.Since(start), err)
		return nil, fmt.Errorf("failed to decode preference vector for %s: %w", userID, err)
	}

	metrics.RecordDBQuery("get", "preference_vectors", time.Since(start), nil)
	return vec, nil
}

// PutPreferenceVector upserts a user's preference vector. Callers must only
// invoke this after the update rule succeeded in full; a partial write here
// would corrupt the user's taste model.
func (db *DB) PutPreferenceVector(ctx context.Context, vec *models.PreferenceVector) error {
	start := time.Now()

	raw, err := json.Marshal(vec.Values)
	if err != nil {
		return fmt.Errorf("failed to encode preference vector for %s: %w", vec.UserID, err)
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO preference_vectors (user_id, vector, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET vector = excluded.vector, updated_at = excluded.updated_at`,
		vec.UserID, string(raw), now,
	)
	metrics.RecordDBQuery("put", "preference_vectors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert preference vector for %s: %w", vec.UserID, err)
	}
	return nil
}
