// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package profile builds and caches normalized learner states from raw
// progress records. The Aggregator is the sole writer of LearnerState;
// rebuilds use compare-and-swap so a slow rebuild never clobbers a fresher
// one, and upstream outages fall back to last-known-good cached states
// flagged as degraded.
package profile

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/didactus/didactus/internal/cache"
	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/metrics"
)

// TopicProgressUpdated is the invalidation topic: the external platform
// publishes a message whose payload is the learner ID whenever a completion
// or assessment write lands for that learner.
const TopicProgressUpdated = "progress.updated"

// ProgressStore is the read interface over the external progress store.
type ProgressStore interface {
	// GetRawProgress returns all progress records for a learner.
	GetRawProgress(ctx context.Context, learnerID string) ([]ProgressRecord, error)

	// GetLearnerProfile returns the learner's goals and stage.
	// Returns a faults.NotFound error when the learner has no profile row.
	GetLearnerProfile(ctx context.Context, learnerID string) (LearnerProfile, error)
}

// rawBundle carries one upstream fetch through the circuit breaker.
type rawBundle struct {
	profile LearnerProfile
	records []ProgressRecord
}

// Aggregator folds raw progress into LearnerState and caches the result.
// Safe for concurrent use.
type Aggregator struct {
	store   ProgressStore
	cache   *cache.Cache[*LearnerState]
	breaker *gobreaker.CircuitBreaker[rawBundle]
	cfg     config.ProfileConfig
	logger  zerolog.Logger
}

// NewAggregator creates an Aggregator over the given progress store.
func NewAggregator(store ProgressStore, cfg config.ProfileConfig, logger zerolog.Logger) *Aggregator {
	a := &Aggregator{
		store:  store,
		cache:  cache.New[*LearnerState](cfg.CacheTTL),
		cfg:    cfg,
		logger: logger.With().Str("component", "profile").Logger(),
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	a.breaker = gobreaker.NewCircuitBreaker[rawBundle](gobreaker.Settings{
		Name:    "progress-store",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// NotFound is an answer from a healthy store, and context errors
		// originate on the caller's side; neither counts toward tripping.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, faults.ErrNotFound) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(breakerStateValue(to))
			a.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return a
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// GetLearnerState returns the learner's normalized state, rebuilding it
// from raw progress when the cached copy is missing or expired.
//
// When the progress store is unreachable, a stale cached copy is returned
// with Degraded set; with no cached copy the call fails with
// UpstreamUnavailable. An unknown learner fails with NotFound.
func (a *Aggregator) GetLearnerState(ctx context.Context, learnerID string) (*LearnerState, error) {
	if learnerID == "" {
		return nil, faults.InvalidArgument("learner ID must not be empty")
	}

	if state, ok := a.cache.Get(learnerID); ok {
		metrics.LearnerCacheHits.Inc()
		metrics.LearnerCacheHitRate.Set(a.cache.HitRate())
		return state.Clone(), nil
	}
	metrics.LearnerCacheMisses.Inc()
	metrics.LearnerCacheHitRate.Set(a.cache.HitRate())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bundle, err := a.breaker.Execute(func() (rawBundle, error) {
		prof, err := a.store.GetLearnerProfile(ctx, learnerID)
		if err != nil {
			return rawBundle{}, err
		}
		records, err := a.store.GetRawProgress(ctx, learnerID)
		if err != nil {
			return rawBundle{}, err
		}
		return rawBundle{profile: prof, records: records}, nil
	})
	if err != nil {
		return a.fallback(learnerID, err)
	}

	state := a.fold(bundle.profile, bundle.records)
	a.cache.CompareAndSet(learnerID, state, state.Version)
	return state.Clone(), nil
}

// fallback serves a stale cached state after an upstream failure, or maps
// the failure into the taxonomy.
func (a *Aggregator) fallback(learnerID string, cause error) (*LearnerState, error) {
	// NotFound is an answer, not an outage: never mask it with stale data.
	if errors.Is(cause, faults.ErrNotFound) {
		return nil, cause
	}
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return nil, cause
	}

	if state, present, _ := a.cache.GetStale(learnerID); present {
		metrics.LearnerCacheStaleServes.Inc()
		a.logger.Warn().
			Str("learner_id", learnerID).
			Err(cause).
			Msg("progress store unreachable, serving stale learner state")
		cp := state.Clone()
		cp.Degraded = true
		return cp, nil
	}

	return nil, faults.UpstreamUnavailable("progress store for learner %s: %v", learnerID, cause)
}

// fold normalizes raw records into a LearnerState. Proficiency per skill is
// a recency-decayed weighted average of assessment and completion signals,
// clamped to [0, 100].
func (a *Aggregator) fold(prof LearnerProfile, records []ProgressRecord) *LearnerState {
	now := time.Now()
	state := &LearnerState{
		LearnerID:   prof.LearnerID,
		Completed:   make(map[string]float64),
		Proficiency: make(map[string]float64),
		Goals:       prof.Goals,
		Stage:       prof.Stage,
		BuiltAt:     now,
		Version:     now.UnixNano(),
	}

	type accum struct {
		weighted float64
		weights  float64
	}
	bySkill := make(map[string]accum)

	completions := make([]ProgressRecord, 0, len(records))
	for _, r := range records {
		if r.Kind == KindCompletion && r.ContentID != "" {
			if best, ok := state.Completed[r.ContentID]; !ok || r.Score > best {
				state.Completed[r.ContentID] = r.Score
			}
			completions = append(completions, r)
		}

		if r.SkillID == "" {
			continue
		}
		w := a.signalWeight(r, now)
		acc := bySkill[r.SkillID]
		acc.weighted += w * r.Score
		acc.weights += w
		bySkill[r.SkillID] = acc
	}

	for skill, acc := range bySkill {
		if acc.weights == 0 {
			continue
		}
		state.Proficiency[skill] = clamp(acc.weighted/acc.weights, 0, 100)
	}

	state.RecentCompleted = recentContentIDs(completions, a.cfg.RecentWindow)
	return state
}

// signalWeight is kindWeight * 2^(-age/halfLife).
func (a *Aggregator) signalWeight(r ProgressRecord, now time.Time) float64 {
	kindWeight := a.cfg.CompletionWeight
	if r.Kind == KindAssessment {
		kindWeight = a.cfg.AssessmentWeight
	}
	age := now.Sub(r.OccurredAt)
	if age < 0 {
		age = 0
	}
	decay := math.Exp2(-age.Hours() / a.cfg.DecayHalfLife.Hours())
	return kindWeight * decay
}

// recentContentIDs returns up to window distinct content IDs, newest first.
func recentContentIDs(completions []ProgressRecord, window int) []string {
	if window <= 0 || len(completions) == 0 {
		return nil
	}
	sort.SliceStable(completions, func(i, j int) bool {
		return completions[i].OccurredAt.After(completions[j].OccurredAt)
	})
	seen := make(map[string]struct{}, window)
	out := make([]string, 0, window)
	for _, r := range completions {
		if _, dup := seen[r.ContentID]; dup {
			continue
		}
		seen[r.ContentID] = struct{}{}
		out = append(out, r.ContentID)
		if len(out) == window {
			break
		}
	}
	return out
}

// Invalidate drops the cached state for a learner. The next read rebuilds.
func (a *Aggregator) Invalidate(learnerID string) {
	a.cache.Invalidate(learnerID)
	a.logger.Debug().Str("learner_id", learnerID).Msg("learner state invalidated")
}

// CacheStats exposes cache counters for observability.
func (a *Aggregator) CacheStats() cache.Stats {
	return a.cache.GetStats()
}

// SubscribeInvalidations consumes TopicProgressUpdated from the given
// subscriber and invalidates the named learner on each message. The message
// payload is the learner ID. Blocks until ctx is done or the subscription
// channel closes; run it in its own goroutine or supervised service.
func (a *Aggregator) SubscribeInvalidations(ctx context.Context, sub message.Subscriber) error {
	messages, err := sub.Subscribe(ctx, TopicProgressUpdated)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			learnerID := string(msg.Payload)
			if learnerID != "" {
				a.Invalidate(learnerID)
			}
			msg.Ack()
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
