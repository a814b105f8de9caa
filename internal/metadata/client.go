// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package metadata provides the client for the external metadata provider.
//
// The provider exposes per-item detail endpoints and a single-page
// similar-items endpoint on a REST API keyed by provider item id and media
// type. The client includes:
//   - API key authentication via request header
//   - Outbound rate limiting (token bucket, golang.org/x/time/rate)
//   - Circuit breaker protection (see breaker.go)
//   - JSON response parsing with strict payload checks
//   - Context support for cancellation and timeouts
//
// Callers should normally use NewCircuitBreakerClient rather than the raw
// Client so provider outages cannot cascade into recommendation runs.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// maxErrorBodySize limits the response body read for error reporting.
// This prevents unbounded memory allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// maxDetailBodySize caps the detail payload size the client will decode.
const maxDetailBodySize = 1 << 20 // 1MB

// readBodyForError reads the response body for error reporting (max 64KB).
// Returns the body content or a placeholder message if reading fails.
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// ClientInterface defines the metadata provider operations used by the
// recommendation engine. It is implemented by Client for production use and
// by mock implementations in tests.
//
// Thread Safety: All methods are safe for concurrent use.
type ClientInterface interface {
	ItemDetail(ctx context.Context, id int64, mediaType models.MediaType) (*models.ResolvedItem, error)
	SimilarItems(ctx context.Context, id int64, mediaType models.MediaType) (*SimilarPage, error)
}

// Client handles communication with the metadata provider HTTP API.
//
// Thread Safety: Safe for concurrent use. Each request creates its own HTTP
// request; the shared rate limiter serializes token acquisition internally.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a metadata provider client from configuration. The rate
// limiter bounds the aggregate outbound request rate across all concurrent
// detail fetches in a run.
func NewClient(cfg *config.MetadataConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

// mediaPath maps an internal media type to the provider's path segment.
func mediaPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeShow {
		return "tv"
	}
	return "movie"
}

// get performs a rate-limited, authenticated GET against the provider and
// returns the raw response body. Non-200 statuses are errors.
func (c *Client) get(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBodySize))
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.ProviderRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

// ItemDetail fetches the full detail payload for one item. Malformed
// payloads are errors so callers can drop the item rather than carry
// partial data into the pipeline.
func (c *Client) ItemDetail(ctx context.Context, id int64, mediaType models.MediaType) (*models.ResolvedItem, error) {
	reqURL := fmt.Sprintf("%s/3/%s/%d", c.baseURL, mediaPath(mediaType), id)

	body, err := c.get(ctx, "item_detail", reqURL)
	if err != nil {
		return nil, err
	}

	var detail itemDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode item detail: %w", err)
	}

	item, err := toResolvedItem(&detail, mediaType, json.RawMessage(body))
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return &item, nil
}

// SimilarItems fetches the first page of items similar to the given item.
// Only one page is requested; the backfill search never paginates.
func (c *Client) SimilarItems(ctx context.Context, id int64, mediaType models.MediaType) (*SimilarPage, error) {
	reqURL := fmt.Sprintf("%s/3/%s/%d/similar?page=1", c.baseURL, mediaPath(mediaType), id)

	body, err := c.get(ctx, "similar_items", reqURL)
	if err != nil {
		return nil, err
	}

	var page similarResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode similar items: %w", err)
	}

	results := make([]models.ResolvedItem, 0, len(page.Results))
	for i := range page.Results {
		item, err := toResolvedItem(&page.Results[i], mediaType, nil)
		if err != nil {
			// entries without an id are skipped, not fatal
			continue
		}
		results = append(results, item)
	}

	return &SimilarPage{Page: page.Page, Results: results}, nil
}
