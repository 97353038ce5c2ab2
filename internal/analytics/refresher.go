// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/metrics"
)

// Phase is the refresh lifecycle state of one family.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseComputing
	PhaseValidating
	PhasePublishing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseComputing:
		return "computing"
	case PhaseValidating:
		return "validating"
	case PhasePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// AggregateSource computes one family's candidate rows from the raw stores.
// Implementations must pace their own reads with the supplied limiter so a
// refresh does not starve foreground queries.
type AggregateSource interface {
	ComputeProgress(ctx context.Context, lim *rate.Limiter) ([]ProgressSummary, error)
	ComputeMarket(ctx context.Context, lim *rate.Limiter) ([]MarketEffectiveness, error)
	ComputeMentorship(ctx context.Context, lim *rate.Limiter) ([]MentorshipEffectiveness, error)
}

// Refresher recomputes and publishes one snapshot family. It runs as a
// supervised service (Serve) on the family's interval and also accepts
// manual triggers (Refresh); concurrent triggers for the same family
// coalesce into the in-flight run.
type Refresher struct {
	family  Family
	store   *Store
	source  AggregateSource
	cfg     config.AnalyticsConfig
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu       sync.Mutex
	phase    Phase
	inflight chan struct{} // closed when the running refresh finishes
	lastErr  error
}

// NewRefresher creates a refresher for one family.
func NewRefresher(family Family, store *Store, source AggregateSource, cfg config.AnalyticsConfig) *Refresher {
	limit := rate.Inf
	if cfg.ReadsPerSecond > 0 {
		limit = rate.Limit(cfg.ReadsPerSecond)
	}
	return &Refresher{
		family:  family,
		store:   store,
		source:  source,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		phase:   PhaseIdle,
		logger:  logging.Component("analytics.refresher").With().Str("family", string(family)).Logger(),
	}
}

// String implements suture's friendly service naming.
func (r *Refresher) String() string {
	return "analytics-refresher-" + string(r.family)
}

// Phase returns the current lifecycle phase.
func (r *Refresher) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Serve runs the periodic refresh loop until ctx is cancelled. It performs
// an initial refresh immediately so the family is queryable soon after boot.
func (r *Refresher) Serve(ctx context.Context) error {
	interval := r.cfg.IntervalFor(string(r.family))

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Initial snapshot refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.store.ObserveAges()
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("Scheduled snapshot refresh failed")
			}
		}
	}
}

// Refresh triggers one refresh run and waits for it. If a run is already in
// flight the caller joins it instead of starting another, so bursts of
// triggers produce a single recomputation.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.inflight != nil {
		done := r.inflight
		r.mu.Unlock()
		select {
		case <-done:
			r.mu.Lock()
			err := r.lastErr
			r.mu.Unlock()
			return err
		case <-ctx.Done():
			return faults.DeadlineExceeded("waiting for in-flight %s refresh: %v", r.family, ctx.Err())
		}
	}
	done := make(chan struct{})
	r.inflight = done
	r.mu.Unlock()

	err := r.run(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.inflight = nil
	r.phase = PhaseIdle
	r.mu.Unlock()
	close(done)
	return err
}

func (r *Refresher) run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.New().String()
	log := r.logger.With().Str("run_id", runID).Logger()

	outcome := "ok"
	defer func() {
		metrics.RefreshRuns.WithLabelValues(string(r.family), outcome).Inc()
		metrics.RefreshDuration.WithLabelValues(string(r.family)).Observe(time.Since(start).Seconds())
	}()

	r.setPhase(PhaseComputing)
	snap, err := r.compute(ctx, runID)
	if err != nil {
		outcome = "compute_error"
		log.Error().Err(err).Msg("Snapshot computation failed, keeping previous snapshot")
		return err
	}

	r.setPhase(PhaseValidating)
	if err := snap.Validate(r.cfg.MaxRows); err != nil {
		outcome = "validation_failed"
		log.Error().Err(err).Int("rows", snap.Rows()).
			Msg("Snapshot validation failed, keeping previous snapshot")
		return err
	}

	r.setPhase(PhasePublishing)
	snap.ID = r.store.NextID()
	if err := r.store.Publish(snap); err != nil {
		// Published in memory; only persistence failed.
		outcome = "persist_error"
		log.Warn().Err(err).Int64("snapshot_id", snap.ID).Msg("Snapshot published without persistence")
		return nil
	}

	log.Info().Int64("snapshot_id", snap.ID).Int("rows", snap.Rows()).
		Dur("took", time.Since(start)).Msg("Published snapshot")
	return nil
}

func (r *Refresher) compute(ctx context.Context, runID string) (*Snapshot, error) {
	snap := &Snapshot{
		RunID:        runID,
		Family:       r.family,
		GeneratedAt:  time.Now().UTC(),
		MaxStaleness: r.cfg.IntervalFor(string(r.family)),
	}
	var err error
	switch r.family {
	case FamilyProgress:
		snap.Progress, err = r.source.ComputeProgress(ctx, r.limiter)
	case FamilyMarket:
		snap.Market, err = r.source.ComputeMarket(ctx, r.limiter)
	case FamilyMentorship:
		snap.Mentorship, err = r.source.ComputeMentorship(ctx, r.limiter)
	default:
		return nil, faults.InvalidArgument("unknown snapshot family %q", r.family)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, faults.DeadlineExceeded("computing %s aggregates: %v", r.family, err)
		}
		return nil, err
	}
	return snap, nil
}

func (r *Refresher) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}
