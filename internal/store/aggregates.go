// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package store

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/didactus/didactus/internal/analytics"
	"github.com/didactus/didactus/internal/skillgraph"
)

// ComputeProgress aggregates per-skill learner progress.
func (s *Store) ComputeProgress(ctx context.Context, lim *rate.Limiter) ([]analytics.ProgressSummary, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			skill_id,
			COUNT(DISTINCT learner_id) AS learners,
			100.0 * COUNT(DISTINCT CASE WHEN kind = 'completion' THEN learner_id END)
				/ COUNT(DISTINCT learner_id) AS completion_rate,
			LEAST(GREATEST(AVG(score), 0), 100) AS avg_proficiency
		FROM progress_events
		WHERE skill_id <> ''
		GROUP BY skill_id
		ORDER BY skill_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate progress: %w", err)
	}
	defer rows.Close()

	var out []analytics.ProgressSummary
	for rows.Next() {
		var r analytics.ProgressSummary
		if err := rows.Scan(&r.SkillID, &r.Learners, &r.CompletionRate, &r.AvgProficiency); err != nil {
			return nil, fmt.Errorf("scan progress aggregate: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ComputeMarket aggregates per-content market effectiveness. Quality and
// relevance are recomputed from observed completions and taxonomy demand,
// replacing the catalog's editorial defaults in the ranking pass.
func (s *Store) ComputeMarket(ctx context.Context, lim *rate.Limiter) ([]analytics.MarketEffectiveness, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			e.content_id,
			COALESCE(MAX(e.skill_id), '') AS skill_id,
			COUNT(*) AS completions,
			LEAST(GREATEST(AVG(e.score), 0), 100) AS effectiveness,
			COALESCE(MAX(sk.hourly_rate), 0) AS hourly_rate
		FROM progress_events e
		LEFT JOIN skills sk ON sk.id = e.skill_id
		WHERE e.kind = 'completion' AND e.content_id <> ''
		GROUP BY e.content_id
		ORDER BY e.content_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate market: %w", err)
	}
	defer rows.Close()

	var out []analytics.MarketEffectiveness
	for rows.Next() {
		var (
			r          analytics.MarketEffectiveness
			hourlyRate float64
		)
		if err := rows.Scan(&r.ContentID, &r.SkillID, &r.Completions, &r.Effectiveness, &hourlyRate); err != nil {
			return nil, fmt.Errorf("scan market aggregate: %w", err)
		}
		r.DemandScore = skillgraph.RateToDemand(hourlyRate)
		r.QualityScore = r.Effectiveness / 10
		r.MarketRelevance = r.DemandScore / 10
		out = append(out, r)
	}
	return out, rows.Err()
}

// ComputeMentorship aggregates per-mentor outcomes.
func (s *Store) ComputeMentorship(ctx context.Context, lim *rate.Limiter) ([]analytics.MentorshipEffectiveness, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			mentor_id,
			COUNT(*) AS matches,
			100.0 * SUM(CASE WHEN success THEN 1 ELSE 0 END) / COUNT(*) AS success_rate,
			LEAST(GREATEST(AVG(rating), 0), 5) AS avg_rating
		FROM mentorship_outcomes
		GROUP BY mentor_id
		ORDER BY mentor_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate mentorship: %w", err)
	}
	defer rows.Close()

	var out []analytics.MentorshipEffectiveness
	for rows.Next() {
		var r analytics.MentorshipEffectiveness
		if err := rows.Scan(&r.MentorID, &r.Matches, &r.SuccessRate, &r.AvgRating); err != nil {
			return nil, fmt.Errorf("scan mentorship aggregate: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
