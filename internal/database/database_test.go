// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/models"
)

// testDBSemaphore serializes DuckDB test databases. DuckDB CGO calls can
// hang when multiple in-memory instances run concurrent operations under CI
// resource pressure, so only one test holds a connection at a time.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{
		Path:         ":memory:",
		MaxMemory:    "1GB",
		ItemCacheTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return db
}

func TestReplaceRecommendations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := []models.RecommendationEntry{
		{ItemID: 603, Title: "The Matrix", VoteAverage: 8.2, ReleaseYear: 1999, Popularity: 85.1},
		{ItemID: 604, Title: "The Matrix Reloaded", VoteAverage: 7.0, ReleaseYear: 2003, Popularity: 44.2},
	}
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, first); err != nil {
		t.Fatalf("ReplaceRecommendations failed: %v", err)
	}

	got, err := db.ListRecommendations(ctx, "user-1", models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("ListRecommendations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ItemID != 603 || got[1].ItemID != 604 {
		t.Errorf("expected run order preserved, got %d, %d", got[0].ItemID, got[1].ItemID)
	}

	// A second run fully replaces the previous set.
	second := []models.RecommendationEntry{
		{ItemID: 27205, Title: "Inception", VoteAverage: 8.4, ReleaseYear: 2010, Popularity: 90.3},
	}
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, second); err != nil {
		t.Fatalf("second ReplaceRecommendations failed: %v", err)
	}

	got, err = db.ListRecommendations(ctx, "user-1", models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("ListRecommendations failed: %v", err)
	}
	if len(got) != 1 || got[0].ItemID != 27205 {
		t.Errorf("expected set replaced wholesale, got %+v", got)
	}
}

func TestReplaceRecommendationsEmptySet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []models.RecommendationEntry{{ItemID: 603, Title: "The Matrix"}}
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, seed); err != nil {
		t.Fatalf("ReplaceRecommendations failed: %v", err)
	}

	// An empty run result clears the stored set rather than keeping stale rows.
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, nil); err != nil {
		t.Fatalf("empty ReplaceRecommendations failed: %v", err)
	}

	got, err := db.ListRecommendations(ctx, "user-1", models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("ListRecommendations failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty set persisted, got %d entries", len(got))
	}
}

func TestReplaceRecommendationsScopedByMediaType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	movies := []models.RecommendationEntry{{ItemID: 603, Title: "The Matrix"}}
	shows := []models.RecommendationEntry{{ItemID: 1396, Title: "Breaking Bad"}}

	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, movies); err != nil {
		t.Fatalf("ReplaceRecommendations movies failed: %v", err)
	}
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeShow, shows); err != nil {
		t.Fatalf("ReplaceRecommendations shows failed: %v", err)
	}

	// Replacing the movie set must not touch the show set.
	if err := db.ReplaceRecommendations(ctx, "user-1", models.MediaTypeMovie, nil); err != nil {
		t.Fatalf("ReplaceRecommendations failed: %v", err)
	}

	gotShows, err := db.ListRecommendations(ctx, "user-1", models.MediaTypeShow)
	if err != nil {
		t.Fatalf("ListRecommendations failed: %v", err)
	}
	if len(gotShows) != 1 || gotShows[0].ItemID != 1396 {
		t.Errorf("expected show set untouched, got %+v", gotShows)
	}
}

func TestItemCacheRoundtripAndTTL(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	items := []models.ResolvedItem{
		{ItemID: 603, MediaType: models.MediaTypeMovie, Title: "The Matrix", VoteAverage: 8.2, ReleaseDate: "1999-03-30", Popularity: 85.1},
	}
	if err := db.PutCachedItems(ctx, items); err != nil {
		t.Fatalf("PutCachedItems failed: %v", err)
	}

	refs := []models.CandidateRef{
		{ItemID: 603, MediaType: models.MediaTypeMovie},
		{ItemID: 999, MediaType: models.MediaTypeMovie},
	}
	found, err := db.GetCachedItems(ctx, refs)
	if err != nil {
		t.Fatalf("GetCachedItems failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 cache hit, got %d", len(found))
	}
	if got := found[603]; got.Title != "The Matrix" || got.VoteAverage != 8.2 {
		t.Errorf("unexpected cached item: %+v", got)
	}

	// Age the row past the TTL; it must now be a miss.
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE item_cache SET fetched_at = ? WHERE item_id = 603`,
		time.Now().UTC().Add(-2*time.Hour),
	); err != nil {
		t.Fatalf("failed to age cache row: %v", err)
	}

	found, err = db.GetCachedItems(ctx, refs)
	if err != nil {
		t.Fatalf("GetCachedItems failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected expired row to miss, got %d hits", len(found))
	}
}

func TestResolveInternalID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.PutInternalID(ctx, 603, models.MediaTypeMovie, "emb-0042"); err != nil {
		t.Fatalf("PutInternalID failed: %v", err)
	}

	got, err := db.ResolveInternalID(ctx, 603, models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("ResolveInternalID failed: %v", err)
	}
	if got != "emb-0042" {
		t.Errorf("expected emb-0042, got %q", got)
	}

	// Same provider id under the other media type is a distinct key.
	if _, err := db.ResolveInternalID(ctx, 603, models.MediaTypeShow); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unmapped media type, got %v", err)
	}
}

func TestItemVectorRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := &models.ItemVector{
		InternalID: "emb-0042",
		MediaType:  models.MediaTypeMovie,
		Values:     []float64{0.1, -0.5, 0.25, 1.0},
	}
	if err := db.PutItemVector(ctx, want); err != nil {
		t.Fatalf("PutItemVector failed: %v", err)
	}

	got, err := db.GetItemVector(ctx, "emb-0042", models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("GetItemVector failed: %v", err)
	}
	if got.Dimension() != 4 {
		t.Fatalf("expected dimension 4, got %d", got.Dimension())
	}
	for i, v := range want.Values {
		if got.Values[i] != v {
			t.Errorf("value %d: expected %f, got %f", i, v, got.Values[i])
		}
	}

	if _, err := db.GetItemVector(ctx, "emb-none", models.MediaTypeMovie); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing vector, got %v", err)
	}
}

func TestPreferenceVectorRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetPreferenceVector(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for new user, got %v", err)
	}

	want := &models.PreferenceVector{
		UserID: "user-1",
		Values: []float64{0.5, 0.5, -0.1},
	}
	if err := db.PutPreferenceVector(ctx, want); err != nil {
		t.Fatalf("PutPreferenceVector failed: %v", err)
	}

	got, err := db.GetPreferenceVector(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPreferenceVector failed: %v", err)
	}
	if got.Dimension() != 3 {
		t.Fatalf("expected dimension 3, got %d", got.Dimension())
	}
	if got.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be set")
	}

	// Upsert overwrites in place.
	want.Values = []float64{0.6, 0.4, -0.2}
	if err := db.PutPreferenceVector(ctx, want); err != nil {
		t.Fatalf("second PutPreferenceVector failed: %v", err)
	}

	got, err = db.GetPreferenceVector(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPreferenceVector failed: %v", err)
	}
	if got.Values[0] != 0.6 {
		t.Errorf("expected overwritten vector, got %v", got.Values)
	}
}
