// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package config defines the application configuration and its layered
// loading: struct defaults, optional YAML file, environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Engine    EngineConfig    `koanf:"engine"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path; ":memory:" for ephemeral use.
	Path string `koanf:"path"`

	// MaxMemory is DuckDB's memory limit (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`

	// ItemCacheTTL is how long cached item detail records stay fresh.
	ItemCacheTTL time.Duration `koanf:"item_cache_ttl"`
}

// MetadataConfig holds settings for the remote metadata provider
// (item detail and similar-items endpoints).
type MetadataConfig struct {
	// URL is the provider base URL.
	URL string `koanf:"url"`

	// APIKey authenticates provider requests.
	APIKey string `koanf:"api_key"`

	// Timeout is the per-call HTTP timeout. Per-call timeouts live here,
	// at the transport, not in the orchestrator.
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond caps outbound provider calls; 0 disables the limiter.
	RatePerSecond float64 `koanf:"rate_per_second"`

	// RateBurst is the limiter burst size.
	RateBurst int `koanf:"rate_burst"`
}

// RetrievalConfig holds settings for the similarity-search service
// (candidate retrieval and fold-in endpoints).
type RetrievalConfig struct {
	// URL is the service base URL.
	URL string `koanf:"url"`

	// APIKey authenticates service requests.
	APIKey string `koanf:"api_key"`

	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`
}

// EngineConfig holds recommendation engine tunables. Filter thresholds are
// configured per media type so movies and shows may diverge, even though
// the deployed values are currently identical.
type EngineConfig struct {
	// Dimension is the latent vector dimensionality shared by user and
	// item vectors.
	Dimension int `koanf:"dimension"`

	// Alpha is the preference update learning rate.
	Alpha float64 `koanf:"alpha"`

	// LikeThreshold is the normalized rating below which an update is a
	// no-op.
	LikeThreshold float64 `koanf:"like_threshold"`

	// OverfetchFactor multiplies the requested limit when querying
	// candidates, compensating for post-filter attrition.
	OverfetchFactor int `koanf:"overfetch_factor"`

	// DefaultLimit is the recommendation count when the caller omits one.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit clamps the requested recommendation count.
	MaxLimit int `koanf:"max_limit"`

	// MovieFilter gates movie candidates.
	MovieFilter FilterConfig `koanf:"movie_filter"`

	// ShowFilter gates show candidates.
	ShowFilter FilterConfig `koanf:"show_filter"`
}

// FilterConfig holds the two-tier quality thresholds for one media type.
type FilterConfig struct {
	// MinVoteAverage rejects items rated below this outright.
	MinVoteAverage float64 `koanf:"min_vote_average"`

	// MinYear rejects items released before this outright.
	MinYear int `koanf:"min_year"`

	// MidTierVoteAverage is the rating floor applied to older items.
	MidTierVoteAverage float64 `koanf:"mid_tier_vote_average"`

	// MidTierYear is the cutoff at or before which the mid-tier rating
	// floor applies.
	MidTierYear int `koanf:"mid_tier_year"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	// RateLimitReqs is the number of requests allowed per window per client IP.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Metadata.URL == "" {
		return fmt.Errorf("metadata.url must not be empty")
	}
	if c.Retrieval.URL == "" {
		return fmt.Errorf("retrieval.url must not be empty")
	}
	if c.Engine.Dimension < 1 {
		return fmt.Errorf("engine.dimension must be positive, got %d", c.Engine.Dimension)
	}
	if c.Engine.Alpha <= 0 || c.Engine.Alpha >= 1 {
		return fmt.Errorf("engine.alpha must be in (0, 1), got %f", c.Engine.Alpha)
	}
	if c.Engine.LikeThreshold < 0 || c.Engine.LikeThreshold > 10 {
		return fmt.Errorf("engine.like_threshold must be in [0, 10], got %f", c.Engine.LikeThreshold)
	}
	if c.Engine.OverfetchFactor < 1 {
		return fmt.Errorf("engine.overfetch_factor must be positive, got %d", c.Engine.OverfetchFactor)
	}
	if c.Engine.DefaultLimit < 1 {
		return fmt.Errorf("engine.default_limit must be positive, got %d", c.Engine.DefaultLimit)
	}
	if c.Engine.MaxLimit < c.Engine.DefaultLimit {
		return fmt.Errorf("engine.max_limit must be >= engine.default_limit, got %d < %d",
			c.Engine.MaxLimit, c.Engine.DefaultLimit)
	}
	for _, f := range []struct {
		name string
		cfg  FilterConfig
	}{
		{"engine.movie_filter", c.Engine.MovieFilter},
		{"engine.show_filter", c.Engine.ShowFilter},
	} {
		if f.cfg.MinVoteAverage < 0 || f.cfg.MinVoteAverage > 10 {
			return fmt.Errorf("%s.min_vote_average must be in [0, 10], got %f", f.name, f.cfg.MinVoteAverage)
		}
		if f.cfg.MidTierVoteAverage < f.cfg.MinVoteAverage {
			return fmt.Errorf("%s.mid_tier_vote_average must be >= min_vote_average", f.name)
		}
		if f.cfg.MidTierYear < f.cfg.MinYear {
			return fmt.Errorf("%s.mid_tier_year must be >= min_year", f.name)
		}
	}
	return nil
}
