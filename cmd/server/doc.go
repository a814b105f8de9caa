// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Command server runs the Reelsense recommendation service: an HTTP API over
// the recommendation engine, backed by an embedded DuckDB store, the
// external metadata provider, and the similarity-search service.
package main
