// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/didactus/didactus/internal/analytics"
	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/gaps"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/metrics"
	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/scoring"
	"github.com/didactus/didactus/internal/vector"
)

// Sub-score factor names, in blend order.
const (
	FactorSimilarity    = "similarity"
	FactorGapAlignment  = "gap_alignment"
	FactorStageMatch    = "stage_match"
	FactorQualitySignal = "quality_signal"
)

// Ranker produces ranked content recommendations for a learner. One
// ranking pass reads exactly one analytics snapshot generation and one
// learner state, so a concurrent refresh never mixes into a response.
type Ranker struct {
	profiles  ProfileSource
	analyzer  *gaps.Analyzer
	index     *vector.Index
	snapshots *analytics.Store
	contents  ContentStore
	cfg       config.RankingConfig
	logger    zerolog.Logger
}

// NewRanker wires a Ranker from its collaborators.
func NewRanker(profiles ProfileSource, analyzer *gaps.Analyzer, index *vector.Index,
	snapshots *analytics.Store, contents ContentStore, cfg config.RankingConfig) *Ranker {
	return &Ranker{
		profiles:  profiles,
		analyzer:  analyzer,
		index:     index,
		snapshots: snapshots,
		contents:  contents,
		cfg:       cfg,
		logger:    logging.Component("recommend"),
	}
}

// Recommend ranks published content for learnerID. limit 0 selects the
// configured default; out-of-range limits are rejected. On deadline expiry
// the call returns DeadlineExceeded with no partial results.
func (r *Ranker) Recommend(ctx context.Context, learnerID string, limit int) (*Result, error) {
	start := time.Now()
	var rerr error
	defer func() {
		metrics.ObserveRequest("recommend", start, rerr, faults.KindOf(rerr).String())
	}()

	if learnerID == "" {
		rerr = faults.InvalidArgument("learner ID is required")
		return nil, rerr
	}
	switch {
	case limit == 0:
		limit = r.cfg.DefaultLimit
	case limit < 0 || limit > r.cfg.MaxLimit:
		rerr = faults.InvalidArgument("limit %d outside [1, %d]", limit, r.cfg.MaxLimit)
		return nil, rerr
	}

	state, err := r.profiles.GetLearnerState(ctx, learnerID)
	if err != nil {
		rerr = err
		return nil, err
	}
	degraded := state.Degraded

	if err := checkDeadline(ctx); err != nil {
		rerr = err
		return nil, err
	}

	// Pin one snapshot generation for the whole pass. No snapshot yet is
	// fine: quality falls back to the catalog's intrinsic scores.
	var snapshotID int64
	market := map[string]analytics.MarketEffectiveness{}
	if snap, err := r.snapshots.Current(analytics.FamilyMarket); err == nil {
		snapshotID = snap.ID
		for _, row := range snap.Market {
			market[row.ContentID] = row
		}
	}

	target := gaps.TargetSpec{
		Persona:  state.Goals.Persona,
		Industry: state.Goals.TargetIndustry,
		Required: state.Goals.TargetSkills,
	}
	// A learner with no targets is valid; set targets must be well formed.
	if len(target.Required) > 0 {
		if err := target.Validate(); err != nil {
			rerr = err
			return nil, err
		}
	}
	gapList := r.analyzer.AnalyzeGaps(state, target)
	gapUrgency := make(map[string]float64, len(gapList))
	var maxUrgency float64
	for _, g := range gapList {
		gapUrgency[g.SkillID] = g.Urgency
		if g.Urgency > maxUrgency {
			maxUrgency = g.Urgency
		}
	}

	if err := checkDeadline(ctx); err != nil {
		rerr = err
		return nil, err
	}

	catalog, err := r.contents.ListPublished(ctx)
	if err != nil {
		if ctx.Err() != nil {
			rerr = faults.DeadlineExceeded("listing catalog: %v", err)
			return nil, rerr
		}
		rerr = faults.UpstreamUnavailable("listing catalog: %v", err)
		return nil, rerr
	}

	learnerVec := r.learnerVector(state)
	candidates, serendipityDegraded, err := r.buildCandidates(ctx, state, catalog, gapUrgency, learnerVec)
	if err != nil {
		rerr = err
		return nil, err
	}
	degraded = degraded || serendipityDegraded

	if err := checkDeadline(ctx); err != nil {
		rerr = err
		return nil, err
	}

	weights := r.cfg.WeightsFor(state.Goals.Persona)
	items := make([]RankedContent, 0, len(candidates))
	for _, item := range candidates {
		ranked, missingEmbedding := r.score(item, state, learnerVec, gapUrgency, maxUrgency, market, weights)
		degraded = degraded || missingEmbedding
		items = append(items, ranked)
	}
	metrics.CandidatesScored.Observe(float64(len(items)))

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Difficulty != items[j].Difficulty {
			return items[i].Difficulty < items[j].Difficulty
		}
		return items[i].ContentID < items[j].ContentID
	})

	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}
	if degraded {
		metrics.DegradedResults.WithLabelValues("recommend").Inc()
	}

	r.logger.Debug().Str("learner_id", learnerID).Int("candidates", total).
		Int("returned", len(items)).Int64("snapshot_id", snapshotID).
		Bool("degraded", degraded).Dur("took", time.Since(start)).
		Msg("Ranked recommendations")

	return &Result{
		Items:           items,
		Degraded:        degraded,
		SnapshotID:      snapshotID,
		TotalCandidates: total,
	}, nil
}

// PersonaVectorID is the index key of a persona's reference embedding.
// Reference vectors are stored in the embeddings table alongside content
// embeddings and loaded into the same index.
func PersonaVectorID(persona string) string {
	return "persona:" + persona
}

// learnerVector is the mean embedding of the learner's recent completions,
// or the persona's reference embedding for a learner with no history in the
// index. Nil when neither resolves.
func (r *Ranker) learnerVector(state *profile.LearnerState) []float32 {
	var vs [][]float32
	for _, contentID := range state.RecentCompleted {
		if v, ok := r.index.Get(contentID); ok {
			vs = append(vs, v)
		}
	}
	if mean := vector.Mean(vs); mean != nil {
		return mean
	}
	if v, ok := r.index.Get(PersonaVectorID(state.Goals.Persona)); ok {
		return v
	}
	return nil
}

// buildCandidates selects published, not-yet-completed content that teaches
// a gap or target skill, then adds up to SerendipityQuota pure vector
// neighbours so the list is not all remediation. The set is capped at
// MaxCandidates in deterministic ID order.
func (r *Ranker) buildCandidates(ctx context.Context, state *profile.LearnerState, catalog []ContentItem,
	gapUrgency map[string]float64, learnerVec []float32) ([]ContentItem, bool, error) {

	byID := make(map[string]ContentItem, len(catalog))
	picked := make(map[string]bool, len(catalog))
	var out []ContentItem
	for _, item := range catalog {
		if !item.Published {
			continue
		}
		byID[item.ID] = item
		if _, done := state.Completed[item.ID]; done {
			continue
		}
		if r.teachesRelevantSkill(item, state, gapUrgency) {
			picked[item.ID] = true
			out = append(out, item)
		}
	}

	degraded := false
	if r.cfg.SerendipityQuota > 0 && learnerVec != nil {
		// Over-fetch: neighbours include completed and already-picked items.
		k := r.cfg.SerendipityQuota + len(state.Completed) + len(out)
		hits, err := r.index.Search(ctx, learnerVec, k)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, faults.DeadlineExceeded("serendipity search: %v", err)
			}
			// Serendipity is additive; a search failure degrades instead
			// of failing the whole ranking.
			r.logger.Warn().Err(err).Msg("Serendipity search failed")
			degraded = true
			hits = nil
		}
		added := 0
		for _, hit := range hits {
			if added >= r.cfg.SerendipityQuota {
				break
			}
			item, ok := byID[hit.ID]
			if !ok || picked[hit.ID] {
				continue
			}
			if _, done := state.Completed[hit.ID]; done {
				continue
			}
			picked[hit.ID] = true
			out = append(out, item)
			added++
		}
	}

	if r.cfg.MaxCandidates > 0 && len(out) > r.cfg.MaxCandidates {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		out = out[:r.cfg.MaxCandidates]
	}
	return out, degraded, nil
}

func (r *Ranker) teachesRelevantSkill(item ContentItem, state *profile.LearnerState, gapUrgency map[string]float64) bool {
	for _, skillID := range item.SkillIDs {
		if _, ok := gapUrgency[skillID]; ok {
			return true
		}
		if _, ok := state.Goals.TargetSkills[skillID]; ok {
			return true
		}
	}
	return false
}

// score computes the four sub-scores and blends them. The second return
// reports a missing candidate embedding, which taints the result degraded.
func (r *Ranker) score(item ContentItem, state *profile.LearnerState, learnerVec []float32,
	gapUrgency map[string]float64, maxUrgency float64,
	market map[string]analytics.MarketEffectiveness, weights config.ScoringWeights) (RankedContent, bool) {

	missingEmbedding := false
	similarity := 0.0
	if learnerVec != nil {
		if emb, ok := r.index.Get(item.ID); ok {
			similarity = scoring.CosineToScale(vector.Cosine(learnerVec, emb))
		} else {
			missingEmbedding = true
		}
	}

	gapAlignment := 0.0
	if maxUrgency > 0 {
		var best float64
		for _, skillID := range item.SkillIDs {
			if u := gapUrgency[skillID]; u > best {
				best = u
			}
		}
		gapAlignment = scoring.FractionToScale(best / maxUrgency)
	}

	stageMatch := stageMatchScore(item.TargetStage, state.Stage)

	quality := (item.Quality + item.MarketRelevance) / 2
	if row, ok := market[item.ID]; ok {
		quality = (row.QualityScore + row.MarketRelevance) / 2
	}
	quality = scoring.Clamp(quality, 0, scoring.ScaleMax)

	factors := []scoring.Factor{
		{Name: FactorSimilarity, Weight: weights.Similarity, Value: similarity},
		{Name: FactorGapAlignment, Weight: weights.Gap, Value: gapAlignment},
		{Name: FactorStageMatch, Weight: weights.Stage, Value: stageMatch},
		{Name: FactorQualitySignal, Weight: weights.Quality, Value: quality},
	}
	score := scoring.Blend(factors)

	return RankedContent{
		ContentID:  item.ID,
		Title:      item.Title,
		Score:      score,
		Difficulty: item.Difficulty,
		Factors:    factors,
	}, missingEmbedding
}

// stageMatchScore rewards exact stage fit; content addressed to any stage
// takes a neutral fallback, and mismatched concrete stages score low.
func stageMatchScore(content, learner profile.Stage) float64 {
	switch {
	case content == profile.StageAny:
		return 7
	case content == learner:
		return 10
	default:
		return 3
	}
}

func checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return faults.DeadlineExceeded("ranking aborted: %v", err)
	}
	return nil
}
