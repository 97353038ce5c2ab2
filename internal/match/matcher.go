// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package match pairs mentees with mentors by blending industry fit,
// expertise overlap with the mentee's skill gaps, remaining capacity and
// the mentor's track record.
package match

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/gaps"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/metrics"
	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/scoring"
)

// Sub-score factor names, in blend order.
const (
	FactorIndustryMatch    = "industry_match"
	FactorExpertiseOverlap = "expertise_overlap"
	FactorAvailability     = "availability"
	FactorTrackRecord      = "track_record"
)

// MentorProfile is one mentor from the mentor roster.
type MentorProfile struct {
	// ID identifies the mentor.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Industries the mentor has worked in, current industry first.
	Industries []string `json:"industries"`

	// Expertise lists the mentor's skill IDs.
	Expertise []string `json:"expertise"`

	// Capacity is the maximum concurrent mentees.
	Capacity int `json:"capacity"`

	// Load is the current number of active mentees.
	Load int `json:"load"`

	// Rating is the historical mentee rating in [0, 5].
	Rating float64 `json:"rating"`
}

// MentorStore provides the mentor roster.
type MentorStore interface {
	// ListMentors returns all active mentors.
	ListMentors(ctx context.Context) ([]MentorProfile, error)
}

// ProfileSource resolves learner states. Implemented by profile.Aggregator.
type ProfileSource interface {
	GetLearnerState(ctx context.Context, learnerID string) (*profile.LearnerState, error)
}

// RankedMentor is one scored mentor match.
type RankedMentor struct {
	// MentorID identifies the mentor.
	MentorID string `json:"mentor_id"`

	// Name is the mentor's display name.
	Name string `json:"name"`

	// Score is the blended final score.
	Score float64 `json:"score"`

	// Factors is the per-factor breakdown, in blend order.
	Factors []scoring.Factor `json:"factors"`
}

// Result is one complete matching response.
type Result struct {
	// Items are the ranked mentors, best first.
	Items []RankedMentor `json:"items"`

	// Degraded is set when the mentee state was served stale.
	Degraded bool `json:"degraded,omitempty"`

	// TotalCandidates is how many mentors passed the capacity filter.
	TotalCandidates int `json:"total_candidates"`
}

// Matcher ranks mentors for a mentee. Mentors at or over capacity are
// excluded before scoring; matching a mentee must never overload a mentor.
type Matcher struct {
	profiles ProfileSource
	analyzer *gaps.Analyzer
	mentors  MentorStore
	cfg      config.MatchingConfig
	logger   zerolog.Logger
}

// NewMatcher wires a Matcher from its collaborators.
func NewMatcher(profiles ProfileSource, analyzer *gaps.Analyzer, mentors MentorStore, cfg config.MatchingConfig) *Matcher {
	return &Matcher{
		profiles: profiles,
		analyzer: analyzer,
		mentors:  mentors,
		cfg:      cfg,
		logger:   logging.Component("match"),
	}
}

// Match ranks available mentors for menteeID. limit 0 selects the
// configured default.
func (m *Matcher) Match(ctx context.Context, menteeID string, limit int) (*Result, error) {
	start := time.Now()
	var merr error
	defer func() {
		metrics.ObserveRequest("match", start, merr, faults.KindOf(merr).String())
	}()

	if menteeID == "" {
		merr = faults.InvalidArgument("mentee ID is required")
		return nil, merr
	}
	switch {
	case limit == 0:
		limit = m.cfg.DefaultLimit
	case limit < 0 || limit > m.cfg.MaxLimit:
		merr = faults.InvalidArgument("limit %d outside [1, %d]", limit, m.cfg.MaxLimit)
		return nil, merr
	}

	state, err := m.profiles.GetLearnerState(ctx, menteeID)
	if err != nil {
		merr = err
		return nil, err
	}

	roster, err := m.mentors.ListMentors(ctx)
	if err != nil {
		if ctx.Err() != nil {
			merr = faults.DeadlineExceeded("listing mentors: %v", err)
			return nil, merr
		}
		merr = faults.UpstreamUnavailable("listing mentors: %v", err)
		return nil, merr
	}

	if err := ctx.Err(); err != nil {
		merr = faults.DeadlineExceeded("matching aborted: %v", err)
		return nil, merr
	}

	target := gaps.TargetSpec{
		Persona:  state.Goals.Persona,
		Industry: state.Goals.TargetIndustry,
		Required: state.Goals.TargetSkills,
	}
	if len(target.Required) > 0 {
		if err := target.Validate(); err != nil {
			merr = err
			return nil, err
		}
	}

	// Expertise overlap is measured against the mentee's open gaps, falling
	// back to the declared target skills when no gap analysis is possible.
	wanted := map[string]bool{}
	for _, g := range m.analyzer.AnalyzeGaps(state, target) {
		wanted[g.SkillID] = true
	}
	if len(wanted) == 0 {
		for skillID := range state.Goals.TargetSkills {
			wanted[skillID] = true
		}
	}

	weights := m.cfg.WeightsFor(state.Goals.Persona)
	items := make([]RankedMentor, 0, len(roster))
	for _, mentor := range roster {
		if mentor.Load >= mentor.Capacity {
			continue
		}
		items = append(items, m.score(mentor, state, wanted, weights))
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].MentorID < items[j].MentorID
	})

	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}
	if state.Degraded {
		metrics.DegradedResults.WithLabelValues("match").Inc()
	}

	m.logger.Debug().Str("mentee_id", menteeID).Int("candidates", total).
		Int("returned", len(items)).Bool("degraded", state.Degraded).
		Dur("took", time.Since(start)).Msg("Ranked mentor matches")

	return &Result{Items: items, Degraded: state.Degraded, TotalCandidates: total}, nil
}

func (m *Matcher) score(mentor MentorProfile, state *profile.LearnerState,
	wanted map[string]bool, weights config.MatchWeights) RankedMentor {

	factors := []scoring.Factor{
		{Name: FactorIndustryMatch, Weight: weights.Industry,
			Value: industryMatchScore(mentor.Industries, state.Goals.TargetIndustry)},
		{Name: FactorExpertiseOverlap, Weight: weights.Expertise,
			Value: expertiseOverlapScore(mentor.Expertise, wanted)},
		{Name: FactorAvailability, Weight: weights.Availability,
			Value: availabilityScore(mentor.Load, mentor.Capacity)},
		{Name: FactorTrackRecord, Weight: weights.TrackRecord,
			Value: scoring.Clamp(mentor.Rating*2, 0, scoring.ScaleMax)},
	}
	score := scoring.Blend(factors)

	return RankedMentor{
		MentorID: mentor.ID,
		Name:     mentor.Name,
		Score:    score,
		Factors:  factors,
	}
}

// industryMatchScore scores 10 for the mentor's current industry, 8 for a
// past industry, 3 otherwise.
func industryMatchScore(industries []string, target string) float64 {
	if target == "" || len(industries) == 0 {
		return 3
	}
	if industries[0] == target {
		return 10
	}
	for _, ind := range industries[1:] {
		if ind == target {
			return 8
		}
	}
	return 3
}

// expertiseOverlapScore is the covered fraction of the mentee's wanted
// skills on the ten-point scale.
func expertiseOverlapScore(expertise []string, wanted map[string]bool) float64 {
	if len(wanted) == 0 {
		return 0
	}
	covered := 0
	for _, skillID := range expertise {
		if wanted[skillID] {
			covered++
		}
	}
	return scoring.FractionToScale(float64(covered) / float64(len(wanted)))
}

// availabilityScore scores 10 when taking this mentee still leaves spare
// capacity, 3 when it fills the mentor's last slot. Callers already
// excluded mentors with no slot at all.
func availabilityScore(load, capacity int) float64 {
	if load+1 < capacity {
		return 10
	}
	return 3
}
