// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"context"

	"github.com/tomtom215/reelsense/internal/models"
)

// CandidateSource supplies ranked candidate item ids for a user. Implemented
// by the similarity-search service client.
type CandidateSource interface {
	TopCandidates(ctx context.Context, userID string, mediaType models.MediaType, count int) ([]models.CandidateRef, error)
}

// MetadataSource supplies item detail payloads and similar-item lists.
// Implemented by the metadata provider client.
type MetadataSource interface {
	ItemDetail(ctx context.Context, id int64, mediaType models.MediaType) (*models.ResolvedItem, error)
	SimilarItems(ctx context.Context, id int64, mediaType models.MediaType) ([]models.ResolvedItem, error)
}

// ItemCache is the local detail cache consulted before the provider.
// Implemented by the tiered cache over the database layer.
type ItemCache interface {
	GetCachedItems(ctx context.Context, refs []models.CandidateRef) (map[int64]models.ResolvedItem, error)
	PutCachedItems(ctx context.Context, items []models.ResolvedItem) error
}

// RecommendationStore persists finished recommendation sets. Implemented by
// the database layer.
type RecommendationStore interface {
	ReplaceRecommendations(ctx context.Context, userID string, mediaType models.MediaType, entries []models.RecommendationEntry) error
	ListRecommendations(ctx context.Context, userID string, mediaType models.MediaType) ([]models.RecommendationEntry, error)
}

// VectorStore holds preference vectors and the item embedding tables.
// Item embeddings are reached in two steps: the provider item id resolves to
// an internal embedding id, and the embedding is keyed by that internal id
// only. Implemented by the database layer.
type VectorStore interface {
	ResolveInternalID(ctx context.Context, providerID int64, mediaType models.MediaType) (string, error)
	GetItemVector(ctx context.Context, internalID string, mediaType models.MediaType) (*models.ItemVector, error)
	GetPreferenceVector(ctx context.Context, userID string) (*models.PreferenceVector, error)
	PutPreferenceVector(ctx context.Context, vec *models.PreferenceVector) error
}

// FoldInService rebuilds a user's server-side taste model after their
// preference vector changed. Implemented by the similarity-search service
// client.
type FoldInService interface {
	FoldIn(ctx context.Context, userID string) error
}
