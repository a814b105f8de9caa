// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package models defines the domain types shared between the engine,
// storage layer, and outbound provider clients.
package models

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// MediaType identifies the content category an item belongs to.
// The metadata provider assigns ids per media type, so (ItemID, MediaType)
// is the canonical join key everywhere in the system.
type MediaType string

const (
	// MediaTypeMovie is feature-length film content.
	MediaTypeMovie MediaType = "movie"
	// MediaTypeShow is episodic television content.
	MediaTypeShow MediaType = "show"
)

// Valid reports whether the media type is one the system recognizes.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeShow
}

// String returns the media type name.
func (m MediaType) String() string {
	return string(m)
}

// AllMediaTypes lists the media types a recommendation run covers,
// in the order runs are executed.
var AllMediaTypes = []MediaType{MediaTypeMovie, MediaTypeShow}

// CandidateRef is a lightweight reference to an item returned by the
// similarity-search service, ordered relevance-descending.
type CandidateRef struct {
	// ItemID is the canonical, provider-assigned identifier.
	ItemID int64 `json:"item_id"`

	// MediaType is the content category of the referenced item.
	MediaType MediaType `json:"media_type"`
}

// ResolvedItem is the full detail record for a candidate, as returned by
// the metadata provider (or the local cache). It exists only within a
// single recommendation run; it is never persisted as-is.
type ResolvedItem struct {
	// ItemID is the canonical, provider-assigned identifier.
	ItemID int64 `json:"item_id"`

	// MediaType is the content category of the item.
	MediaType MediaType `json:"media_type"`

	// Title is the display title (movie title or show name).
	Title string `json:"title"`

	// VoteAverage is the provider's aggregate rating on a 0-10 scale.
	VoteAverage float64 `json:"vote_average"`

	// ReleaseDate is the raw date string from the provider
	// (release_date for movies, first_air_date for shows).
	ReleaseDate string `json:"release_date"`

	// Popularity is the provider's popularity metric, unbounded.
	Popularity float64 `json:"popularity"`

	// PosterPath is the provider-relative poster image reference.
	PosterPath string `json:"poster_path"`

	// Raw is the unmodified provider payload, kept for the item cache.
	Raw json.RawMessage `json:"-"`
}

// ReleaseYear derives the four-digit year from the item's date string.
// Returns 0 when the date is absent or unparseable, so callers treat
// "unknown year" as arbitrarily old.
func (r *ResolvedItem) ReleaseYear() int {
	return ParseLeadingYear(r.ReleaseDate)
}

// ParseLeadingYear extracts the leading four digits of a date string as a
// year. Provider dates are "YYYY-MM-DD"; anything shorter or non-numeric
// yields 0.
func ParseLeadingYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0
	}
	return year
}

// RecommendationEntry is a persisted recommendation row. A run replaces a
// user's rows for a media type wholesale, so the table always reflects
// exactly the latest surviving set.
type RecommendationEntry struct {
	// UserID is the user the entry was generated for.
	UserID string `json:"user_id"`

	// ItemID is the canonical, provider-assigned item identifier.
	ItemID int64 `json:"item_id"`

	// MediaType is the content category of the item.
	MediaType MediaType `json:"media_type"`

	// Title is a denormalized copy of the item title at write time.
	Title string `json:"title"`

	// PosterPath is a denormalized poster reference at write time.
	PosterPath string `json:"poster_path"`

	// VoteAverage is the item's rating when it passed the quality gate.
	VoteAverage float64 `json:"vote_average"`

	// ReleaseYear is the derived release year at write time.
	ReleaseYear int `json:"release_year"`

	// Popularity is the item's popularity when persisted.
	Popularity float64 `json:"popularity"`

	// CreatedAt is when the run persisted this entry.
	CreatedAt time.Time `json:"created_at"`
}

// PreferenceVector is a user's latent taste vector. Mutated only by the
// preference update rule; created by the external fold-in collaborator.
type PreferenceVector struct {
	// UserID owns the vector; one vector per user.
	UserID string `json:"user_id"`

	// Values is the fixed-dimension latent representation.
	Values []float64 `json:"values"`

	// UpdatedAt is when the vector last moved.
	UpdatedAt time.Time `json:"updated_at"`
}

// Dimension returns the vector's dimensionality.
func (p *PreferenceVector) Dimension() int {
	return len(p.Values)
}

// ItemVector is an item's latent embedding, read-only from the engine's
// perspective. Its dimension must match the preference vector dimension.
type ItemVector struct {
	// InternalID is the legacy storage identifier the vector is keyed by.
	// Provider ids map to internal ids through a secondary lookup.
	InternalID string `json:"internal_id"`

	// MediaType is the content category the embedding was trained for.
	MediaType MediaType `json:"media_type"`

	// Values is the fixed-dimension latent representation.
	Values []float64 `json:"values"`
}

// Dimension returns the vector's dimensionality.
func (v *ItemVector) Dimension() int {
	return len(v.Values)
}
