// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package skillgraph

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/didactus/didactus/internal/faults"
)

func TestLoadEmptySnapshot(t *testing.T) {
	if _, err := Load(Snapshot{}); !errors.Is(err, faults.ErrInvalidArgument) {
		t.Errorf("Load(empty) = %v, want InvalidArgument", err)
	}
}

func TestLoadClampsDemand(t *testing.T) {
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "a", Demand: 140},
		{ID: "b", Demand: -5},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	a, _ := g.Skill("a")
	b, _ := g.Skill("b")
	if a.Demand != 100 {
		t.Errorf("demand(a) = %v, want clamped 100", a.Demand)
	}
	if b.Demand != 0 {
		t.Errorf("demand(b) = %v, want clamped 0", b.Demand)
	}
}

func TestLoadDropsDanglingEdges(t *testing.T) {
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "a", Prereqs: []string{"ghost", "a"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, _ := g.Skill("a")
	if len(a.Prereqs) != 0 {
		t.Errorf("prereqs = %v, want dangling and self edges dropped", a.Prereqs)
	}
}

func TestCycleQuarantine(t *testing.T) {
	// a <-> b form a cycle; c depends on nothing; d depends on c.
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "a", Prereqs: []string{"b"}},
		{ID: "b", Prereqs: []string{"a"}},
		{ID: "c"},
		{ID: "d", Prereqs: []string{"c"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := g.Quarantined(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Quarantined() = %v, want [a b]", got)
	}
	if g.IsQuarantined("c") || g.IsQuarantined("d") {
		t.Error("acyclic subgraph must not be quarantined")
	}
	if g.Len() != 4 {
		t.Errorf("Len = %d, want 4 (quarantined skills stay loaded)", g.Len())
	}
}

func TestCycleDownstreamQuarantine(t *testing.T) {
	// c depends on the a<->b cycle, so it can never topologically resolve.
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "a", Prereqs: []string{"b"}},
		{ID: "b", Prereqs: []string{"a"}},
		{ID: "c", Prereqs: []string{"a"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !g.IsQuarantined("c") {
		t.Error("skill depending on a cyclic subgraph must be quarantined")
	}
}

func TestUnlockFactor(t *testing.T) {
	// sql unlocks analytics and etl; python unlocks nothing.
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "sql"},
		{ID: "python"},
		{ID: "analytics", Prereqs: []string{"sql"}},
		{ID: "etl", Prereqs: []string{"sql"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	prof := map[string]float64{"sql": 10}
	sqlFactor := g.UnlockFactor("sql", prof, 70)
	pyFactor := g.UnlockFactor("python", prof, 70)

	if pyFactor != 1 {
		t.Errorf("UnlockFactor(python) = %v, want 1 (no dependents)", pyFactor)
	}
	want := 1 + 0.5*math.Log2(3) // two locked dependents
	if math.Abs(sqlFactor-want) > 1e-9 {
		t.Errorf("UnlockFactor(sql) = %v, want %v", sqlFactor, want)
	}
	if sqlFactor <= pyFactor {
		t.Error("skill unblocking locked dependents must score above one with none")
	}
}

func TestUnlockFactorDepthCap(t *testing.T) {
	// Chain s0 <- s1 <- s2 <- s3 <- s4: only three levels below s0 may count.
	skills := []Skill{{ID: "s0"}}
	for i := 1; i <= 4; i++ {
		skills = append(skills, Skill{
			ID:      id(i),
			Prereqs: []string{id(i - 1)},
		})
	}
	g, err := Load(Snapshot{Skills: skills})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	factor := g.UnlockFactor("s0", map[string]float64{}, 70)
	want := 1 + 0.5*math.Log2(4) // s1, s2, s3 locked; s4 beyond depth cap
	if math.Abs(factor-want) > 1e-9 {
		t.Errorf("UnlockFactor = %v, want %v (depth capped at %d)", factor, want, MaxUnlockDepth)
	}
}

func TestUnlockFactorSkipsSatisfiedDependents(t *testing.T) {
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "sql"},
		{ID: "analytics", Prereqs: []string{"sql"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Prerequisite already met: analytics is not locked.
	factor := g.UnlockFactor("sql", map[string]float64{"sql": 90}, 70)
	if factor != 1 {
		t.Errorf("UnlockFactor = %v, want 1 when all dependents are unlocked", factor)
	}
}

func TestQuarantinedSkillHasNeutralUnlockFactor(t *testing.T) {
	g, err := Load(Snapshot{Skills: []Skill{
		{ID: "a", Prereqs: []string{"b"}},
		{ID: "b", Prereqs: []string{"a"}},
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f := g.UnlockFactor("a", nil, 70); f != 1 {
		t.Errorf("UnlockFactor(quarantined) = %v, want 1", f)
	}
}

func TestRateToDemand(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{"floor", 10, 0},
		{"ceiling", 500, 100},
		{"below floor winsorized", -50, 0},
		{"above ceiling winsorized", 10000, 100},
		{"midpoint", 255, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RateToDemand(tt.rate); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RateToDemand(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func id(i int) string {
	return "s" + string(rune('0'+i))
}
