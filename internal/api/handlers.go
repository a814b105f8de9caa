// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package api provides the HTTP surface of the service: recommendation
// retrieval and refresh, rating ingestion, taste model rebuild, and health
// endpoints. Routing uses Chi; request payloads are validated with
// go-playground/validator before they reach the engine.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/database"
	"github.com/tomtom215/reelsense/internal/engine"
	"github.com/tomtom215/reelsense/internal/models"
)

// maxRequestBodySize caps JSON request bodies.
const maxRequestBodySize = 1 << 20 // 1MB

// HealthChecker reports backing store liveness. Implemented by database.DB.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	engine *engine.Engine
	db     HealthChecker
}

// NewHandler creates an API handler.
func NewHandler(eng *engine.Engine, db HealthChecker) *Handler {
	return &Handler{engine: eng, db: db}
}

// userIDRequest validates the path user id shared by all user routes.
type userIDRequest struct {
	UserID string `validate:"required,min=1,max=128"`
}

// ratingRequest is the body of POST /users/{userID}/ratings.
type ratingRequest struct {
	ItemID    int64   `json:"item_id" validate:"required,gt=0"`
	MediaType string  `json:"media_type" validate:"required,media_type"`
	Rating    float64 `json:"rating" validate:"gte=0,lte=10"`
}

// RunRecommendations handles POST /api/v1/users/{userID}/recommendations/run.
// It executes a full recommendation run and returns the fresh sets. The
// optional limit query parameter sizes each set; out-of-range values are
// clamped by the engine.
func (h *Handler) RunRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if apiErr := validateRequest(&userIDRequest{UserID: userID}); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	limit := getIntParam(r, "limit", 0)

	result, err := h.engine.Run(r.Context(), userID, limit)
	if err != nil {
		var runErr *engine.RunError
		if errors.As(err, &runErr) {
			respondError(w, http.StatusBadGateway, "RUN_FAILED", "recommendation run failed in state "+runErr.State.String(), err)
			return
		}
		respondError(w, http.StatusInternalServerError, "RUN_FAILED", "recommendation run failed", err)
		return
	}

	respondData(w, http.StatusOK, result, len(result.Movies)+len(result.Shows))
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations,
// returning the stored sets without running the pipeline. An optional
// media_type query parameter restricts the response to one set.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if apiErr := validateRequest(&userIDRequest{UserID: userID}); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	filter := r.URL.Query().Get("media_type")
	if filter != "" && !models.MediaType(filter).Valid() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"media_type must be one of: movie, show", nil)
		return
	}

	result, err := h.engine.Stored(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to load recommendations", err)
		return
	}

	switch models.MediaType(filter) {
	case models.MediaTypeMovie:
		result.Shows = nil
	case models.MediaTypeShow:
		result.Movies = nil
	}

	respondData(w, http.StatusOK, result, len(result.Movies)+len(result.Shows))
}

// ApplyRating handles POST /api/v1/users/{userID}/ratings. A rating at or
// above the like threshold moves the user's preference vector and triggers
// a taste rebuild plus a background refresh of their recommendation sets.
func (h *Handler) ApplyRating(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if apiErr := validateRequest(&userIDRequest{UserID: userID}); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	var req ratingRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	err := h.engine.ApplyRating(r.Context(), userID, req.ItemID, models.MediaType(req.MediaType), req.Rating)
	if err != nil {
		var mismatch *engine.DimensionMismatchError
		switch {
		case errors.As(err, &mismatch):
			respondError(w, http.StatusUnprocessableEntity, "DIMENSION_MISMATCH", mismatch.Error(), err)
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item has no embedding", err)
		default:
			respondError(w, http.StatusInternalServerError, "RATING_FAILED", "failed to apply rating", err)
		}
		return
	}

	respondData(w, http.StatusAccepted, map[string]interface{}{
		"user_id":   userID,
		"item_id":   req.ItemID,
		"processed": true,
	}, 1)
}

// RebuildTaste handles POST /api/v1/users/{userID}/taste/rebuild, forcing a
// server-side fold-in of the user's current preference vector.
func (h *Handler) RebuildTaste(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if apiErr := validateRequest(&userIDRequest{UserID: userID}); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.engine.RebuildTaste(r.Context(), userID); err != nil {
		respondError(w, http.StatusBadGateway, "FOLD_IN_FAILED", "taste model rebuild failed", err)
		return
	}

	respondData(w, http.StatusAccepted, map[string]interface{}{"user_id": userID, "rebuilt": true}, 1)
}

// HealthLive handles GET /api/v1/health/live. Always healthy while the
// process can serve requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"}, 0)
}

// HealthReady handles GET /api/v1/health/ready, checking the database.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "database unavailable", err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, 0)
}
