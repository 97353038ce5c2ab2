// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package gaps computes ranked skill gaps: target skills where a learner
// sits below the required proficiency, weighted by market demand and by how
// many locked downstream skills each gap unblocks.
package gaps

import (
	"sort"
	"sync/atomic"

	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/skillgraph"
)

// TargetSpec names the skills a learner is measured against. It is resolved
// from a persona, an industry, or an explicit skill list before reaching the
// analyzer; Required is the resolved form.
type TargetSpec struct {
	// Persona selects scoring-weight configuration downstream.
	Persona string `json:"persona,omitempty"`

	// Industry is the target industry/domain.
	Industry string `json:"industry,omitempty"`

	// Required maps skill ID to the minimum proficiency the target demands.
	Required map[string]float64 `json:"required"`
}

// Validate rejects malformed target specs.
func (t TargetSpec) Validate() error {
	if len(t.Required) == 0 {
		return faults.InvalidArgument("target spec requires at least one skill")
	}
	for id, min := range t.Required {
		if id == "" {
			return faults.InvalidArgument("target spec contains an empty skill ID")
		}
		if min < 0 || min > 100 {
			return faults.InvalidArgument("target spec requires proficiency %.1f for %s, must be in [0, 100]", min, id)
		}
	}
	return nil
}

// GapSkill is one ranked gap.
type GapSkill struct {
	// SkillID identifies the gap skill.
	SkillID string `json:"skill_id"`

	// Urgency is demand * (1 - proficiency/100) * unlock factor.
	Urgency float64 `json:"urgency"`

	// Proficiency is the learner's current level, 0 when unknown.
	Proficiency float64 `json:"proficiency"`

	// Required is the target's minimum proficiency.
	Required float64 `json:"required"`

	// EstimatedMinutes is the skill's typical learning time.
	EstimatedMinutes int `json:"estimated_minutes"`
}

// Analyzer ranks skill gaps against the shared skill graph. The graph
// handle swaps atomically when the taxonomy reloads, so in-flight analyses
// always see one consistent graph.
type Analyzer struct {
	graph         atomic.Pointer[skillgraph.Graph]
	lockThreshold float64
}

// NewAnalyzer creates an Analyzer over the given graph.
func NewAnalyzer(graph *skillgraph.Graph, lockThreshold float64) *Analyzer {
	a := &Analyzer{lockThreshold: lockThreshold}
	a.graph.Store(graph)
	return a
}

// SetGraph swaps in a freshly loaded taxonomy.
func (a *Analyzer) SetGraph(graph *skillgraph.Graph) {
	a.graph.Store(graph)
}

// Graph returns the current graph handle.
func (a *Analyzer) Graph() *skillgraph.Graph {
	return a.graph.Load()
}

// AnalyzeGaps returns the target skills the learner has not reached,
// sorted by strictly non-increasing urgency. Ties break by ascending
// estimated learning time (quick wins first), then skill ID for
// determinism. A target skill absent from the proficiency map counts as
// proficiency 0, not an error; skills unknown to the graph keep urgency 0
// and sink to the bottom of the ranking.
func (a *Analyzer) AnalyzeGaps(state *profile.LearnerState, target TargetSpec) []GapSkill {
	graph := a.graph.Load()

	out := make([]GapSkill, 0, len(target.Required))
	for skillID, required := range target.Required {
		prof := state.Proficiency[skillID]
		if prof >= required {
			continue
		}

		gap := GapSkill{
			SkillID:     skillID,
			Proficiency: prof,
			Required:    required,
		}
		if skill, ok := graph.Skill(skillID); ok {
			unlock := graph.UnlockFactor(skillID, state.Proficiency, a.lockThreshold)
			gap.Urgency = skill.Demand * (1 - prof/100) * unlock
			gap.EstimatedMinutes = skill.EstimatedMinutes
		}
		out = append(out, gap)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Urgency != out[j].Urgency {
			return out[i].Urgency > out[j].Urgency
		}
		if out[i].EstimatedMinutes != out[j].EstimatedMinutes {
			return out[i].EstimatedMinutes < out[j].EstimatedMinutes
		}
		return out[i].SkillID < out[j].SkillID
	})
	return out
}
