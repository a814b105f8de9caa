// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// ReplaceRecommendations atomically replaces a user's persisted
// recommendation set for one media type. Deletion and insertion happen in a
// single transaction so readers never observe a partially written set, and
// an empty entries slice deliberately persists an empty set.
func (db *DB) ReplaceRecommendations(ctx context.Context, userID string, mediaType models.MediaType, entries []models.RecommendationEntry) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBQuery("replace", "recommendations", time.Since(start), err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE user_id = ? AND media_type = ?`,
		userID, mediaType.String(),
	); err != nil {
		metrics.RecordDBQuery("replace", "recommendations", time.Since(start), err)
		return fmt.Errorf("failed to delete previous recommendations: %w", err)
	}

	now := time.Now().UTC()
	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recommendations
				(id, user_id, item_id, media_type, position, title, poster_path, vote_average, release_year, popularity, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), userID, entry.ItemID, mediaType.String(), i,
			entry.Title, entry.PosterPath, entry.VoteAverage, entry.ReleaseYear, entry.Popularity, now,
		); err != nil {
			metrics.RecordDBQuery("replace", "recommendations", time.Since(start), err)
			return fmt.Errorf("failed to insert recommendation %d: %w", entry.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("replace", "recommendations", time.Since(start), err)
		return fmt.Errorf("failed to commit recommendations: %w", err)
	}

	metrics.RecordDBQuery("replace", "recommendations", time.Since(start), nil)
	metrics.EntriesWritten.WithLabelValues(mediaType.String()).Add(float64(len(entries)))
	return nil
}

// ListRecommendations returns a user's persisted recommendation set for one
// media type in run order.
func (db *DB) ListRecommendations(ctx context.Context, userID string, mediaType models.MediaType) ([]models.RecommendationEntry, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, title, poster_path, vote_average, release_year, popularity, created_at
		 FROM recommendations
		 WHERE user_id = ? AND media_type = ?
		 ORDER BY position`,
		userID, mediaType.String(),
	)
	if err != nil {
		metrics.RecordDBQuery("list", "recommendations", time.Since(start), err)
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	entries := make([]models.RecommendationEntry, 0, 32)
	for rows.Next() {
		entry := models.RecommendationEntry{UserID: userID, MediaType: mediaType}
		if err := rows.Scan(
			&entry.ItemID, &entry.Title, &entry.PosterPath,
			&entry.VoteAverage, &entry.ReleaseYear, &entry.Popularity, &entry.CreatedAt,
		); err != nil {
			metrics.RecordDBQuery("list", "recommendations", time.Since(start), err)
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("list", "recommendations", time.Since(start), err)
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	metrics.RecordDBQuery("list", "recommendations", time.Since(start), nil)
	return entries, nil
}
