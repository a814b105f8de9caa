// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.MetadataConfig{
		URL:           srv.URL,
		APIKey:        "test-key",
		Timeout:       5 * time.Second,
		RatePerSecond: 100,
		RateBurst:     100,
	})
}

func TestItemDetailMovie(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/603" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 603,
			"title": "The Matrix",
			"release_date": "1999-03-30",
			"vote_average": 8.2,
			"popularity": 85.1,
			"poster_path": "/matrix.jpg"
		}`))
	})

	item, err := client.ItemDetail(context.Background(), 603, models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("ItemDetail failed: %v", err)
	}

	if item.ItemID != 603 {
		t.Errorf("expected item id 603, got %d", item.ItemID)
	}
	if item.Title != "The Matrix" {
		t.Errorf("expected movie title from title field, got %q", item.Title)
	}
	if item.ReleaseDate != "1999-03-30" {
		t.Errorf("expected release_date, got %q", item.ReleaseDate)
	}
	if item.ReleaseYear() != 1999 {
		t.Errorf("expected release year 1999, got %d", item.ReleaseYear())
	}
	if len(item.Raw) == 0 {
		t.Error("expected raw payload to be retained for caching")
	}
}

func TestItemDetailShowUsesShowFields(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/tv/1396" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 1396,
			"name": "Breaking Bad",
			"first_air_date": "2008-01-20",
			"vote_average": 8.9,
			"popularity": 245.0
		}`))
	})

	item, err := client.ItemDetail(context.Background(), 1396, models.MediaTypeShow)
	if err != nil {
		t.Fatalf("ItemDetail failed: %v", err)
	}

	if item.Title != "Breaking Bad" {
		t.Errorf("expected show title from name field, got %q", item.Title)
	}
	if item.ReleaseDate != "2008-01-20" {
		t.Errorf("expected first_air_date, got %q", item.ReleaseDate)
	}
}

func TestItemDetailErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id": 603, "title":`))
			},
		},
		{
			name: "missing item id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"title": "The Matrix"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, tt.handler)
			if _, err := client.ItemDetail(context.Background(), 603, models.MediaTypeMovie); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimilarItemsSinglePage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/603/similar" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "1" {
			t.Errorf("expected page=1, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"page": 1,
			"results": [
				{"id": 604, "title": "The Matrix Reloaded", "release_date": "2003-05-15", "vote_average": 7.0, "popularity": 44.2},
				{"title": "no id, skipped"},
				{"id": 605, "title": "The Matrix Revolutions", "release_date": "2003-11-05", "vote_average": 6.7, "popularity": 39.8}
			],
			"total_pages": 12,
			"total_results": 240
		}`))
	})

	page, err := client.SimilarItems(context.Background(), 603, models.MediaTypeMovie)
	if err != nil {
		t.Fatalf("SimilarItems failed: %v", err)
	}

	if len(page.Results) != 2 {
		t.Fatalf("expected 2 results (entry without id skipped), got %d", len(page.Results))
	}
	if page.Results[0].ItemID != 604 || page.Results[1].ItemID != 605 {
		t.Errorf("unexpected result ids: %d, %d", page.Results[0].ItemID, page.Results[1].ItemID)
	}
}
