// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package skillgraph holds the in-memory skill taxonomy: skills, directed
// prerequisite edges, undirected complementary edges, and per-skill market
// statistics. The graph is read-only once loaded; the external taxonomy
// administrator owns the source data.
//
// Prerequisite edges must form a DAG. Acyclicity is validated with a
// topological sort at load time; skills caught in a cycle are quarantined
// (excluded from unlock scoring) rather than failing the whole load, and
// never re-checked during scoring.
package skillgraph

import (
	"math"
	"sort"

	"github.com/didactus/didactus/internal/faults"
)

// MaxUnlockDepth caps the breadth-first walk used by UnlockFactor to bound
// per-request cost.
const MaxUnlockDepth = 3

// DemandBounds is the winsorization policy for self-reported market inputs.
// Hourly-rate signals outside [RateFloor, RateCeil] are clamped before they
// feed demand scores; demand itself clamps to [0, 100].
var DemandBounds = struct {
	RateFloor float64
	RateCeil  float64
}{RateFloor: 10, RateCeil: 500}

// Skill is one node of the taxonomy.
type Skill struct {
	// ID is the unique skill identifier.
	ID string `json:"id"`

	// Name is the human-readable skill name.
	Name string `json:"name"`

	// Category groups related skills (e.g. "engineering", "marketing").
	Category string `json:"category"`

	// Prereqs lists skill IDs that must be learned first.
	Prereqs []string `json:"prereqs,omitempty"`

	// Complements lists skills commonly learned alongside this one.
	Complements []string `json:"complements,omitempty"`

	// Demand is the market-demand score in [0, 100], winsorized at load.
	Demand float64 `json:"demand"`

	// EstimatedMinutes is the typical learning-time estimate.
	EstimatedMinutes int `json:"estimated_minutes"`
}

// Snapshot is the raw taxonomy as delivered by the external store.
type Snapshot struct {
	Skills []Skill `json:"skills"`
}

// Graph is the validated, immutable in-memory taxonomy.
type Graph struct {
	skills      map[string]Skill
	dependents  map[string][]string // reverse prerequisite edges
	quarantined map[string]struct{}
}

// Load validates a taxonomy snapshot and builds the graph.
// Demand scores are winsorized, unknown edge endpoints are dropped, and
// skills on prerequisite cycles are quarantined. Load fails only on an
// empty snapshot.
func Load(snap Snapshot) (*Graph, error) {
	if len(snap.Skills) == 0 {
		return nil, faults.InvalidArgument("taxonomy snapshot has no skills")
	}

	g := &Graph{
		skills:      make(map[string]Skill, len(snap.Skills)),
		dependents:  make(map[string][]string),
		quarantined: make(map[string]struct{}),
	}

	for _, s := range snap.Skills {
		s.Demand = clamp(s.Demand, 0, 100)
		g.skills[s.ID] = s
	}

	// Drop edges pointing outside the snapshot, then build reverse edges.
	for id, s := range g.skills {
		kept := s.Prereqs[:0:0]
		for _, p := range s.Prereqs {
			if _, ok := g.skills[p]; ok && p != id {
				kept = append(kept, p)
			}
		}
		s.Prereqs = kept
		g.skills[id] = s
		for _, p := range kept {
			g.dependents[p] = append(g.dependents[p], id)
		}
	}
	for p := range g.dependents {
		sort.Strings(g.dependents[p])
	}

	g.quarantineCycles()
	return g, nil
}

// quarantineCycles runs Kahn's algorithm over the prerequisite edges.
// Any node that cannot be removed sits on (or downstream-in-cycle of) a
// cycle and is quarantined.
func (g *Graph) quarantineCycles() {
	indegree := make(map[string]int, len(g.skills))
	for id, s := range g.skills {
		indegree[id] = len(s.Prereqs)
	}

	queue := make([]string, 0, len(g.skills))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	removed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if removed == len(g.skills) {
		return
	}
	for id, d := range indegree {
		if d > 0 {
			g.quarantined[id] = struct{}{}
		}
	}
}

// Skill returns the skill for id.
func (g *Graph) Skill(id string) (Skill, bool) {
	s, ok := g.skills[id]
	return s, ok
}

// Len returns the number of skills in the graph, quarantined included.
func (g *Graph) Len() int {
	return len(g.skills)
}

// Quarantined returns the IDs of skills excluded for sitting on a
// prerequisite cycle, sorted for determinism.
func (g *Graph) Quarantined() []string {
	out := make([]string, 0, len(g.quarantined))
	for id := range g.quarantined {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsQuarantined reports whether id was excluded at load time.
func (g *Graph) IsQuarantined(id string) bool {
	_, ok := g.quarantined[id]
	return ok
}

// UnlockFactor rewards skills that unblock the largest number of currently
// locked downstream skills. A downstream skill counts as locked when any of
// its prerequisites sits below threshold in the proficiency map. The walk
// follows reverse prerequisite edges breadth-first to MaxUnlockDepth.
//
// The factor is >= 1 and grows sub-linearly with the locked count so that a
// single hub skill cannot drown out proficiency and demand signals.
func (g *Graph) UnlockFactor(skillID string, proficiency map[string]float64, threshold float64) float64 {
	if g.IsQuarantined(skillID) {
		return 1
	}

	locked := 0
	visited := map[string]struct{}{skillID: {}}
	frontier := []string{skillID}

	for depth := 0; depth < MaxUnlockDepth && len(frontier) > 0; depth++ {
		next := frontier[:0:0]
		for _, id := range frontier {
			for _, dep := range g.dependents[id] {
				if _, seen := visited[dep]; seen {
					continue
				}
				visited[dep] = struct{}{}
				if g.IsQuarantined(dep) {
					continue
				}
				if g.isLocked(dep, proficiency, threshold) {
					locked++
				}
				next = append(next, dep)
			}
		}
		frontier = next
	}

	return 1 + 0.5*math.Log2(1+float64(locked))
}

func (g *Graph) isLocked(id string, proficiency map[string]float64, threshold float64) bool {
	for _, p := range g.skills[id].Prereqs {
		if proficiency[p] < threshold {
			return true
		}
	}
	return false
}

// WinsorizeRate clamps a self-reported hourly-rate signal to DemandBounds
// before it is normalized into a demand score.
func WinsorizeRate(rate float64) float64 {
	return clamp(rate, DemandBounds.RateFloor, DemandBounds.RateCeil)
}

// RateToDemand maps a winsorized hourly rate to a [0, 100] demand score.
func RateToDemand(rate float64) float64 {
	r := WinsorizeRate(rate)
	return (r - DemandBounds.RateFloor) / (DemandBounds.RateCeil - DemandBounds.RateFloor) * 100
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
