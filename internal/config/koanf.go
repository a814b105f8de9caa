// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelsense/config.yaml",
	"/etc/reelsense/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns a Config with all default values applied. Filter
// thresholds match the deployed production values; movies and shows are
// configured independently so they can diverge.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8290,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "/data/reelsense.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // 0 = use runtime.NumCPU()
			ItemCacheTTL: 24 * time.Hour,
		},
		Metadata: MetadataConfig{
			URL:           "",
			APIKey:        "",
			Timeout:       10 * time.Second,
			RatePerSecond: 20,
			RateBurst:     40,
		},
		Retrieval: RetrievalConfig{
			URL:     "",
			APIKey:  "",
			Timeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			Dimension:       64,
			Alpha:           0.05,
			LikeThreshold:   6.0,
			OverfetchFactor: 3,
			DefaultLimit:    20,
			MaxLimit:        100,
			MovieFilter: FilterConfig{
				MinVoteAverage:     5.1,
				MinYear:            1991,
				MidTierVoteAverage: 7.4,
				MidTierYear:        2008,
			},
			ShowFilter: FilterConfig{
				MinVoteAverage:     5.1,
				MinYear:            1991,
				MidTierVoteAverage: 7.4,
				MidTierYear:        2008,
			},
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in values from Default()
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// REELSENSE_METADATA_API_KEY -> metadata.api_key
	envProvider := env.Provider("REELSENSE_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; known slice fields are comma-separated.
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied through the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML): nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - REELSENSE_SERVER_PORT -> server.port
//   - REELSENSE_METADATA_API_KEY -> metadata.api_key
//   - REELSENSE_ENGINE_MOVIE_FILTER_MIN_YEAR -> engine.movie_filter.min_year
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "REELSENSE_"))

	// Section prefixes become path segments; the remainder keeps its
	// underscores (field names use snake_case koanf tags).
	sections := []struct{ prefix, path string }{
		{"server_", "server."},
		{"database_", "database."},
		{"metadata_", "metadata."},
		{"retrieval_", "retrieval."},
		{"engine_movie_filter_", "engine.movie_filter."},
		{"engine_show_filter_", "engine.show_filter."},
		{"engine_", "engine."},
		{"api_", "api."},
		{"logging_", "logging."},
	}
	for _, s := range sections {
		if strings.HasPrefix(key, s.prefix) {
			return s.path + strings.TrimPrefix(key, s.prefix)
		}
	}

	// Unknown variables are ignored by returning an empty key.
	return ""
}
