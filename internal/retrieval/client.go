// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package retrieval provides the client for the similarity-search service.
//
// The service maintains per-user taste models and an approximate
// nearest-neighbour index over item embeddings. Two operations are exposed:
//
//   - TopCandidates: ranked candidate item ids for a user and media type.
//     The service returns ids only; resolution to full items happens in the
//     recommendation engine.
//   - FoldIn: recompute the user's taste model server-side after their
//     preference vector changed.
//
// Callers should normally use NewCircuitBreakerClient rather than the raw
// Client so retrieval outages cannot cascade into recommendation runs.
package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// maxErrorBodySize limits the response body read for error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// ClientInterface defines the similarity-search operations used by the
// recommendation engine. Implemented by Client for production use and by
// mocks in tests.
//
// Thread Safety: All methods are safe for concurrent use.
type ClientInterface interface {
	TopCandidates(ctx context.Context, userID string, mediaType models.MediaType, count int) ([]models.CandidateRef, error)
	FoldIn(ctx context.Context, userID string) error
}

// Client handles communication with the similarity-search service HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a similarity-search service client from configuration.
func NewClient(cfg *config.RetrievalConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type retrieveRequest struct {
	UserID    string `json:"user_id"`
	MediaType string `json:"media_type"`
	Count     int    `json:"count"`
}

type retrieveResponse struct {
	Candidates []struct {
		ItemID int64 `json:"item_id"`
	} `json:"candidates"`
}

type foldInRequest struct {
	UserID string `json:"user_id"`
}

// post sends an authenticated JSON POST and returns the response body.
func (c *Client) post(ctx context.Context, endpoint, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("retrieval service returned HTTP %d: %s", resp.StatusCode, errBody)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "failure").Inc()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.ProviderRequests.WithLabelValues(endpoint, "success").Inc()
	return respBody, nil
}

// TopCandidates returns up to count candidate item ids for a user and media
// type, ranked by taste similarity. The ids are provider item ids; mapping
// to internal embedding ids is a storage concern, not the caller's.
func (c *Client) TopCandidates(ctx context.Context, userID string, mediaType models.MediaType, count int) ([]models.CandidateRef, error) {
	body, err := c.post(ctx, "top_candidates", "/v1/retrieve", retrieveRequest{
		UserID:    userID,
		MediaType: mediaType.String(),
		Count:     count,
	})
	if err != nil {
		return nil, err
	}

	var decoded retrieveResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}

	refs := make([]models.CandidateRef, 0, len(decoded.Candidates))
	for _, cand := range decoded.Candidates {
		if cand.ItemID <= 0 {
			continue
		}
		refs = append(refs, models.CandidateRef{ItemID: cand.ItemID, MediaType: mediaType})
	}
	return refs, nil
}

// FoldIn asks the service to rebuild the user's taste model from their
// current preference vector. The call is fire-and-confirm: the service does
// the recomputation and returns once the new model is live.
func (c *Client) FoldIn(ctx context.Context, userID string) error {
	_, err := c.post(ctx, "fold_in", "/v1/fold-in", foldInRequest{UserID: userID})
	return err
}
