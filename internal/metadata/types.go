// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package metadata

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/models"
)

// itemDetailResponse mirrors the provider's detail payload for both movies
// and shows. Movies populate title/release_date, shows populate
// name/first_air_date; the two pairs are folded together in toResolvedItem.
type itemDetailResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	PosterPath   string  `json:"poster_path"`
}

// similarResponse mirrors the provider's paged similar-items payload.
type similarResponse struct {
	Page         int                  `json:"page"`
	Results      []itemDetailResponse `json:"results"`
	TotalPages   int                  `json:"total_pages"`
	TotalResults int                  `json:"total_results"`
}

// SimilarPage is one page of similar items, already converted to the
// internal item representation.
type SimilarPage struct {
	Page    int
	Results []models.ResolvedItem
}

// toResolvedItem converts a provider detail payload into the internal item
// representation, selecting the movie or show field variants by media type.
// It rejects payloads whose id does not resolve, which guards against
// provider responses that decode but carry no usable item.
func toResolvedItem(d *itemDetailResponse, mediaType models.MediaType, raw json.RawMessage) (models.ResolvedItem, error) {
	if d.ID <= 0 {
		return models.ResolvedItem{}, fmt.Errorf("provider payload missing item id")
	}

	title := d.Title
	releaseDate := d.ReleaseDate
	if mediaType == models.MediaTypeShow {
		title = d.Name
		releaseDate = d.FirstAirDate
	}

	return models.ResolvedItem{
		ItemID:      d.ID,
		MediaType:   mediaType,
		Title:       title,
		VoteAverage: d.VoteAverage,
		ReleaseDate: releaseDate,
		Popularity:  d.Popularity,
		PosterPath:  d.PosterPath,
		Raw:         raw,
	}, nil
}
