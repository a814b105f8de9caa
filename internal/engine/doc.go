// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package engine implements the recommendation pipeline and the preference
// learning rule.
//
// A recommendation run moves through a fixed sequence of states:
//
//	RETRIEVING -> RESOLVING -> FILTERING -> BACKFILLING -> PERSISTING -> DONE
//
// with FAILED reachable from any stage. Retrieval asks the similarity-search
// service for an overfetched candidate list, resolution turns candidate ids
// into full item payloads (cache first, then concurrent provider fetches),
// filtering applies the quality classifier, backfilling replaces rejected
// items with a similar passing item, and persistence atomically replaces the
// user's stored recommendation set.
//
// Preference learning applies a single exponential-approach update per
// rating: ratings on the 5-point scale are normalized by doubling, ratings
// below the like threshold leave the vector untouched, and a dimension
// mismatch between the item embedding and the user vector aborts the update
// with no write.
//
// The engine depends on small collaborator interfaces (CandidateSource,
// MetadataSource, ItemCache, RecommendationStore, VectorStore,
// FoldInService) so storage and transport stay swappable in tests.
package engine
