// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package recommend ranks learning content for a learner by blending
// vector similarity, skill-gap alignment, stage fit and market quality
// into one weighted score with a per-factor breakdown.
package recommend

import (
	"context"

	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/scoring"
)

// ContentItem is one piece of learning content from the catalog.
type ContentItem struct {
	// ID identifies the content.
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// SkillIDs are the skills this content teaches.
	SkillIDs []string `json:"skill_ids"`

	// Difficulty is the content difficulty level, 1 (intro) to 5 (expert).
	Difficulty int `json:"difficulty"`

	// TargetStage is the learner stage the content is written for.
	// profile.StageAny marks content addressed to every stage.
	TargetStage profile.Stage `json:"target_stage"`

	// Format is the delivery format ("course", "article", "video", ...).
	Format string `json:"format,omitempty"`

	// Quality is the editorial quality score in [0, 10].
	Quality float64 `json:"quality"`

	// MarketRelevance is the market-relevance score in [0, 10].
	MarketRelevance float64 `json:"market_relevance"`

	// Published gates whether the content may be recommended.
	Published bool `json:"published"`
}

// ContentStore provides the published catalog.
type ContentStore interface {
	// ListPublished returns all published content items.
	ListPublished(ctx context.Context) ([]ContentItem, error)
}

// ProfileSource resolves learner states. Implemented by profile.Aggregator.
type ProfileSource interface {
	GetLearnerState(ctx context.Context, learnerID string) (*profile.LearnerState, error)
}

// RankedContent is one scored recommendation.
type RankedContent struct {
	// ContentID identifies the recommended content.
	ContentID string `json:"content_id"`

	// Title is the content title.
	Title string `json:"title"`

	// Score is the blended final score.
	Score float64 `json:"score"`

	// Difficulty is carried for the deterministic tie-break.
	Difficulty int `json:"difficulty"`

	// Factors is the per-factor breakdown, in blend order.
	Factors []scoring.Factor `json:"factors"`
}

// Result is one complete ranking response.
type Result struct {
	// Items are the ranked recommendations, best first.
	Items []RankedContent `json:"items"`

	// Degraded is set when the result was computed from a stale learner
	// state or with embeddings missing from the index.
	Degraded bool `json:"degraded,omitempty"`

	// SnapshotID is the analytics snapshot generation the whole pass read
	// from; zero when no snapshot has been published yet.
	SnapshotID int64 `json:"snapshot_id,omitempty"`

	// TotalCandidates is how many candidates were scored before truncation.
	TotalCandidates int `json:"total_candidates"`
}
