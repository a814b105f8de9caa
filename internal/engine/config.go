// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import "github.com/tomtom215/reelsense/internal/config"

// Config holds the engine tunables. Values come from the application
// configuration; see config.EngineConfig for defaults and validation.
type Config struct {
	// Dimension is the preference and item vector length.
	Dimension int

	// Alpha is the learning rate of the preference update rule.
	Alpha float64

	// LikeThreshold is the minimum normalized rating (10-point scale) that
	// moves the preference vector at all.
	LikeThreshold float64

	// OverfetchFactor multiplies the requested limit when retrieving
	// candidates, leaving headroom for resolution drops, quality rejects,
	// and dedup.
	OverfetchFactor int

	// DefaultLimit applies when a caller requests zero or negative results.
	DefaultLimit int

	// MaxLimit caps the per-run result size regardless of the request.
	MaxLimit int

	// MaxConcurrentFetches bounds the detail-fetch fan-out per run.
	MaxConcurrentFetches int

	// MovieFilter and ShowFilter are the per-media-type quality gates.
	MovieFilter QualityFilter
	ShowFilter  QualityFilter
}

// NewConfig builds an engine Config from the application configuration.
func NewConfig(cfg *config.EngineConfig) Config {
	return Config{
		Dimension:            cfg.Dimension,
		Alpha:                cfg.Alpha,
		LikeThreshold:        cfg.LikeThreshold,
		OverfetchFactor:      cfg.OverfetchFactor,
		DefaultLimit:         cfg.DefaultLimit,
		MaxLimit:             cfg.MaxLimit,
		MaxConcurrentFetches: 8,
		MovieFilter:          newQualityFilter(&cfg.MovieFilter),
		ShowFilter:           newQualityFilter(&cfg.ShowFilter),
	}
}

// filterFor returns the quality gate for one media type.
func (c *Config) filterFor(isShow bool) QualityFilter {
	if isShow {
		return c.ShowFilter
	}
	return c.MovieFilter
}

// clampLimit normalizes a requested result size into [1, MaxLimit], using
// DefaultLimit for non-positive requests.
func (c *Config) clampLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}
