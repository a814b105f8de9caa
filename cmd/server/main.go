// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/reelsense/internal/api"
	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/database"
	"github.com/tomtom215/reelsense/internal/engine"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metadata"
	"github.com/tomtom215/reelsense/internal/models"
	"github.com/tomtom215/reelsense/internal/retrieval"
)

// hotCacheCapacity bounds the in-memory item cache; a full overfetch for
// both media types fits with plenty of headroom for cross-user overlap.
const hotCacheCapacity = 8192

// metadataSource adapts the metadata client to the engine's MetadataSource,
// flattening the paged similar-items response.
type metadataSource struct {
	client *metadata.CircuitBreakerClient
}

func (m *metadataSource) ItemDetail(ctx context.Context, id int64, mediaType models.MediaType) (*models.ResolvedItem, error) {
	return m.client.ItemDetail(ctx, id, mediaType)
}

func (m *metadataSource) SimilarItems(ctx context.Context, id int64, mediaType models.MediaType) ([]models.ResolvedItem, error) {
	page, err := m.client.SimilarItems(ctx, id, mediaType)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("metadata_url", cfg.Metadata.URL).
		Str("retrieval_url", cfg.Retrieval.URL).
		Int("dimension", cfg.Engine.Dimension).
		Msg("Starting Reelsense")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Outbound clients, both behind circuit breakers.
	metaClient := metadata.NewCircuitBreakerClient(&cfg.Metadata)
	retrievalClient := retrieval.NewCircuitBreakerClient(&cfg.Retrieval)

	// Hot in-memory tier in front of the durable item cache.
	itemCache := cache.NewTieredItemCache(db, hotCacheCapacity, cfg.Database.ItemCacheTTL)

	eng := engine.New(
		engine.NewConfig(&cfg.Engine),
		retrievalClient,
		&metadataSource{client: metaClient},
		itemCache,
		db,
		db,
		retrievalClient,
	)

	handler := api.NewHandler(eng, db)
	router := api.NewRouter(handler, &cfg.API)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed, forcing close")
		_ = srv.Close()
	}

	logging.Info().Msg("Shutdown complete")
}
