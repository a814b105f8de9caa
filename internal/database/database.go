// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package database provides DuckDB-backed storage for recommendation sets,
// the item detail cache, preference vectors, and the item embedding lookup
// tables. All vectors are stored as JSON text columns; DuckDB's columnar
// layout keeps the small per-user tables cheap to scan and the embedded
// engine keeps the service a single deployable binary.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/logging"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn         *sql.DB
	cfg          *config.DatabaseConfig
	itemCacheTTL time.Duration
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments; no extensions are required by this schema.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:         conn,
		cfg:          cfg,
		itemCacheTTL: cfg.ItemCacheTTL,
	}

	// DuckDB performs best with a small number of connections; writes are
	// serialized by the engine anyway.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if err := db.createTables(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close database after init error")
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// Conn exposes the underlying connection for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// createTables creates the schema if it does not exist.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queries := []string{
		// Persisted recommendation sets, replaced wholesale per run.
		`CREATE TABLE IF NOT EXISTS recommendations (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			media_type TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT,
			poster_path TEXT,
			vote_average DOUBLE,
			release_year INTEGER,
			popularity DOUBLE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Provider detail payloads, keyed by provider id and media type.
		// Rows past the TTL are treated as misses and overwritten on refetch.
		`CREATE TABLE IF NOT EXISTS item_cache (
			item_id BIGINT NOT NULL,
			media_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			PRIMARY KEY (item_id, media_type)
		)`,

		// Mapping from provider item ids to the embedding store's internal
		// ids. The indirection is load-bearing: embedding rows are keyed by
		// internal id only, and several provider items can share one
		// embedding (re-releases, split editions).
		`CREATE TABLE IF NOT EXISTS item_id_map (
			provider_id BIGINT NOT NULL,
			media_type TEXT NOT NULL,
			internal_id TEXT NOT NULL,
			PRIMARY KEY (provider_id, media_type)
		)`,

		// Item embedding vectors, JSON number arrays.
		`CREATE TABLE IF NOT EXISTS item_vectors (
			internal_id TEXT NOT NULL,
			media_type TEXT NOT NULL,
			vector TEXT NOT NULL,
			PRIMARY KEY (internal_id, media_type)
		)`,

		// Per-user preference vectors, JSON number arrays.
		`CREATE TABLE IF NOT EXISTS preference_vectors (
			user_id TEXT PRIMARY KEY,
			vector TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recommendations_user
			ON recommendations (user_id, media_type, position)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
