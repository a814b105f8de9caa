// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/reelsense/internal/database"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/models"
)

// RunState tracks where a recommendation run is in its lifecycle.
type RunState int

const (
	StateRetrieving RunState = iota
	StateResolving
	StateFiltering
	StateBackfilling
	StatePersisting
	StateDone
	StateFailed
)

// String returns the state name for logging.
func (s RunState) String() string {
	switch s {
	case StateRetrieving:
		return "RETRIEVING"
	case StateResolving:
		return "RESOLVING"
	case StateFiltering:
		return "FILTERING"
	case StateBackfilling:
		return "BACKFILLING"
	case StatePersisting:
		return "PERSISTING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// RunError wraps a run failure with the state it failed in.
type RunError struct {
	State RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("recommendation run failed in %s: %v", e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// RunResult is the outcome of one full recommendation run for a user.
type RunResult struct {
	Movies []models.RecommendationEntry `json:"movies"`
	Shows  []models.RecommendationEntry `json:"shows"`
}

// Engine orchestrates recommendation runs and preference updates.
type Engine struct {
	cfg     Config
	source  CandidateSource
	meta    MetadataSource
	cache   ItemCache
	store   RecommendationStore
	vectors VectorStore
	foldIn  FoldInService

	// userLocks serializes runs and rating updates per user. Two concurrent
	// runs for the same user would race on the delete-then-insert
	// persistence; different users never contend.
	userLocks sync.Map
}

// New creates a recommendation engine from its collaborators.
func New(cfg Config, source CandidateSource, meta MetadataSource, cache ItemCache, store RecommendationStore, vectors VectorStore, foldIn FoldInService) *Engine {
	return &Engine{
		cfg:     cfg,
		source:  source,
		meta:    meta,
		cache:   cache,
		store:   store,
		vectors: vectors,
		foldIn:  foldIn,
	}
}

// lockUser acquires the per-user mutex and returns its unlock func.
func (e *Engine) lockUser(userID string) func() {
	v, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Run executes a full recommendation run for the user, producing and
// persisting one set per media type. The limit applies to each set
// independently and is clamped into [1, MaxLimit]; zero or negative
// requests fall back to the default size.
func (e *Engine) Run(ctx context.Context, userID string, limit int) (*RunResult, error) {
	limit = e.cfg.clampLimit(limit)

	unlock := e.lockUser(userID)
	defer unlock()

	result := &RunResult{}
	for _, mediaType := range models.AllMediaTypes {
		entries, err := e.runOne(ctx, userID, mediaType, limit)
		if err != nil {
			metrics.RunsTotal.WithLabelValues(mediaType.String(), "failed").Inc()
			return nil, err
		}
		metrics.RunsTotal.WithLabelValues(mediaType.String(), "ok").Inc()

		if mediaType == models.MediaTypeShow {
			result.Shows = entries
		} else {
			result.Movies = entries
		}
	}
	return result, nil
}

// runOne walks one media type through the run state machine.
func (e *Engine) runOne(ctx context.Context, userID string, mediaType models.MediaType, limit int) ([]models.RecommendationEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.WithLabelValues(mediaType.String()).Observe(time.Since(start).Seconds())
	}()

	log := logging.With().Str("user_id", userID).Str("media_type", mediaType.String()).Logger()
	state := StateRetrieving

	// RETRIEVING: overfetch so resolution drops, quality rejects, and dedup
	// still leave enough items to fill the requested set.
	fetchCount := limit * e.cfg.OverfetchFactor
	candidates, err := e.source.TopCandidates(ctx, userID, mediaType, fetchCount)
	if err != nil {
		log.Error().Err(err).Str("state", state.String()).Msg("Recommendation run failed")
		return nil, &RunError{State: state, Err: err}
	}
	metrics.CandidatesRetrieved.WithLabelValues(mediaType.String()).Add(float64(len(candidates)))

	// RESOLVING
	state = StateResolving
	items, err := e.resolveCandidates(ctx, candidates)
	if err != nil {
		log.Error().Err(err).Str("state", state.String()).Msg("Recommendation run failed")
		return nil, &RunError{State: state, Err: err}
	}

	// FILTERING: partition into keepers and rejects, keeping slot order so
	// the dedup below always favors the higher-ranked occurrence.
	state = StateFiltering
	filter := e.cfg.filterFor(mediaType == models.MediaTypeShow)
	merged := make([]*models.ResolvedItem, len(items))
	var rejects []int

	for i := range items {
		if filter.IsBad(&items[i]) {
			metrics.QualityRejects.WithLabelValues(mediaType.String()).Inc()
			rejects = append(rejects, i)
			continue
		}
		merged[i] = &items[i]
	}

	// BACKFILLING: every rejected item gets one replacement search, fanned
	// out as a batch with the same bounded concurrency as resolution, so the
	// phase costs the slowest lookup rather than their sum. A failed search
	// leaves its slot empty rather than failing the run. Each goroutine
	// writes only its own slot.
	if len(rejects) > 0 {
		state = StateBackfilling
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.cfg.MaxConcurrentFetches)

		for _, idx := range rejects {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				merged[idx] = e.findReplacement(ctx, &items[idx], filter)
			}(idx)
		}
		wg.Wait()
		state = StateFiltering
	}

	kept := make([]models.ResolvedItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range merged {
		if item == nil {
			continue
		}
		if _, dup := seen[item.ItemID]; dup {
			continue
		}
		seen[item.ItemID] = struct{}{}
		kept = append(kept, *item)
	}

	if len(kept) > limit {
		kept = kept[:limit]
	}

	// PERSISTING: the stored set is replaced wholesale, even when empty.
	state = StatePersisting
	entries := make([]models.RecommendationEntry, len(kept))
	for i := range kept {
		entries[i] = models.RecommendationEntry{
			UserID:      userID,
			ItemID:      kept[i].ItemID,
			MediaType:   mediaType,
			Title:       kept[i].Title,
			PosterPath:  kept[i].PosterPath,
			VoteAverage: kept[i].VoteAverage,
			ReleaseYear: kept[i].ReleaseYear(),
			Popularity:  kept[i].Popularity,
		}
	}
	if err := e.store.ReplaceRecommendations(ctx, userID, mediaType, entries); err != nil {
		log.Error().Err(err).Str("state", state.String()).Msg("Recommendation run failed")
		return nil, &RunError{State: state, Err: err}
	}

	state = StateDone
	log.Info().Str("state", state.String()).Int("candidates", len(candidates)).Int("persisted", len(entries)).Dur("elapsed", time.Since(start)).Msg("Recommendation run complete")
	return entries, nil
}

// Stored returns the user's persisted recommendation sets without running
// the pipeline.
func (e *Engine) Stored(ctx context.Context, userID string) (*RunResult, error) {
	movies, err := e.store.ListRecommendations(ctx, userID, models.MediaTypeMovie)
	if err != nil {
		return nil, err
	}
	shows, err := e.store.ListRecommendations(ctx, userID, models.MediaTypeShow)
	if err != nil {
		return nil, err
	}
	return &RunResult{Movies: movies, Shows: shows}, nil
}

// RebuildTaste forces a server-side rebuild of the user's taste model from
// their current preference vector, without applying a new rating.
func (e *Engine) RebuildTaste(ctx context.Context, userID string) error {
	unlock := e.lockUser(userID)
	defer unlock()
	return e.foldIn.FoldIn(ctx, userID)
}

// ApplyRating feeds one rating into the preference learner.
//
// The item embedding is reached through the id indirection: provider id to
// internal embedding id, then embedding by internal id. Users without a
// stored preference vector start from the zero vector. The updated vector is
// written only if the whole update succeeded, then the user's taste model is
// folded in server-side. A dimension mismatch is fatal and writes nothing.
func (e *Engine) ApplyRating(ctx context.Context, userID string, itemID int64, mediaType models.MediaType, rating float64) error {
	unlock := e.lockUser(userID)
	defer unlock()

	internalID, err := e.vectors.ResolveInternalID(ctx, itemID, mediaType)
	if err != nil {
		metrics.RatingUpdates.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to resolve item %d: %w", itemID, err)
	}

	itemVec, err := e.vectors.GetItemVector(ctx, internalID, mediaType)
	if err != nil {
		metrics.RatingUpdates.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load item vector %s: %w", internalID, err)
	}

	pref, err := e.vectors.GetPreferenceVector(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		pref = &models.PreferenceVector{UserID: userID, Values: ZeroVector(e.cfg.Dimension)}
	case err != nil:
		metrics.RatingUpdates.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load preference vector: %w", err)
	}

	updated, applied, err := UpdatePreference(pref.Values, itemVec.Values, rating, e.cfg.Alpha, e.cfg.LikeThreshold)
	if err != nil {
		metrics.RatingUpdates.WithLabelValues("dimension_mismatch").Inc()
		return err
	}
	if !applied {
		metrics.RatingUpdates.WithLabelValues("below_threshold").Inc()
		logging.Debug().Str("user_id", userID).Int64("item_id", itemID).Float64("rating", rating).Msg("Rating below like threshold, preference unchanged")
		return nil
	}

	pref.Values = updated
	if err := e.vectors.PutPreferenceVector(ctx, pref); err != nil {
		metrics.RatingUpdates.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to persist preference vector: %w", err)
	}

	if err := e.foldIn.FoldIn(ctx, userID); err != nil {
		// The vector write stands; fold-in will be retried by the next
		// rating or scheduled rebuild.
		logging.Warn().Err(err).Str("user_id", userID).Msg("Taste model fold-in failed after preference update")
	}

	metrics.RatingUpdates.WithLabelValues("applied").Inc()
	logging.Info().Str("user_id", userID).Int64("item_id", itemID).Str("media_type", mediaType.String()).Float64("rating", rating).Msg("Preference vector updated")

	// A changed taste model invalidates the stored sets; refresh them in
	// the background so the caller's request returns promptly. The run
	// queues behind this update on the per-user lock.
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := e.Run(runCtx, userID, e.cfg.DefaultLimit); err != nil {
			logging.Warn().Err(err).Str("user_id", userID).Msg("Post-rating recommendation refresh failed")
		}
	}()

	return nil
}
