// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package store

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/match"
	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/recommend"
	"github.com/didactus/didactus/internal/skillgraph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{}) // in-memory
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLearnerProfileRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := profile.LearnerProfile{
		LearnerID: "l1",
		Goals: profile.Goals{
			Persona:        "founder",
			TargetIndustry: "fintech",
			TargetSkills:   map[string]float64{"python": 80, "sql": 70},
			WeeklyMinutes:  300,
		},
		Stage: profile.StageLaunch,
	}
	if err := s.UpsertLearnerProfile(ctx, want); err != nil {
		t.Fatalf("UpsertLearnerProfile() error = %v", err)
	}

	got, err := s.GetLearnerProfile(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLearnerProfile() error = %v", err)
	}
	if got.Goals.Persona != "founder" || got.Stage != profile.StageLaunch {
		t.Errorf("GetLearnerProfile() = %+v, want %+v", got, want)
	}
	if got.Goals.TargetSkills["sql"] != 70 {
		t.Errorf("target skills = %v, want sql:70", got.Goals.TargetSkills)
	}

	_, err = s.GetLearnerProfile(ctx, "ghost")
	if faults.KindOf(err) != faults.KindNotFound {
		t.Errorf("GetLearnerProfile(ghost) error = %v, want NotFound", err)
	}
}

func TestProgressEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	records := []profile.ProgressRecord{
		{LearnerID: "l1", ContentID: "c1", SkillID: "python", Kind: profile.KindCompletion, Score: 85, Minutes: 40, OccurredAt: base},
		{LearnerID: "l1", SkillID: "python", Kind: profile.KindAssessment, Score: 72, OccurredAt: base.Add(time.Hour)},
		{LearnerID: "l2", ContentID: "c1", SkillID: "python", Kind: profile.KindCompletion, Score: 60, OccurredAt: base},
	}
	for _, r := range records {
		if err := s.InsertProgress(ctx, r); err != nil {
			t.Fatalf("InsertProgress() error = %v", err)
		}
	}

	got, err := s.GetRawProgress(ctx, "l1")
	if err != nil {
		t.Fatalf("GetRawProgress() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetRawProgress() returned %d records, want 2", len(got))
	}
	if got[0].Kind != profile.KindCompletion || got[1].Kind != profile.KindAssessment {
		t.Errorf("record kinds = %v, %v", got[0].Kind, got[1].Kind)
	}
	if !got[0].OccurredAt.Before(got[1].OccurredAt) {
		t.Error("records not ordered by occurred_at")
	}
}

func TestCatalogAndEmbeddings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []recommend.ContentItem{
		{ID: "c1", Title: "SQL Basics", SkillIDs: []string{"sql"}, Difficulty: 1,
			TargetStage: profile.StageLaunch, Quality: 7, MarketRelevance: 6, Published: true},
		{ID: "c2", Title: "Draft", SkillIDs: []string{"sql"}, Difficulty: 2, Published: false},
	}
	for _, item := range items {
		if err := s.UpsertContent(ctx, item); err != nil {
			t.Fatalf("UpsertContent() error = %v", err)
		}
	}
	if err := s.UpsertEmbedding(ctx, "c1", []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("UpsertEmbedding() error = %v", err)
	}

	published, err := s.ListPublished(ctx)
	if err != nil {
		t.Fatalf("ListPublished() error = %v", err)
	}
	if len(published) != 1 || published[0].ID != "c1" {
		t.Fatalf("ListPublished() = %+v, want only c1", published)
	}
	if published[0].TargetStage != profile.StageLaunch || published[0].SkillIDs[0] != "sql" {
		t.Errorf("ListPublished() row = %+v", published[0])
	}

	embeddings, err := s.ListEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ListEmbeddings() error = %v", err)
	}
	if len(embeddings["c1"]) != 3 {
		t.Errorf("embeddings = %v, want 3-dim vector for c1", embeddings)
	}
}

func TestSkillGraphLoading(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	skills := []skillgraph.Skill{
		{ID: "python", Name: "Python", Category: "engineering", EstimatedMinutes: 1200},
		{ID: "ml", Name: "ML", Category: "engineering", Prereqs: []string{"python"}, EstimatedMinutes: 2400},
	}
	for i, sk := range skills {
		if err := s.UpsertSkill(ctx, sk, float64(100+i*100)); err != nil {
			t.Fatalf("UpsertSkill() error = %v", err)
		}
	}

	snap, err := s.LoadSkillGraph(ctx)
	if err != nil {
		t.Fatalf("LoadSkillGraph() error = %v", err)
	}
	if len(snap.Skills) != 2 {
		t.Fatalf("LoadSkillGraph() returned %d skills, want 2", len(snap.Skills))
	}
	// Rate 100 within [10, 500] maps onto the demand scale.
	wantDemand := skillgraph.RateToDemand(100)
	if snap.Skills[1].ID != "python" || snap.Skills[1].Demand != wantDemand {
		t.Errorf("python = %+v, want demand %.2f", snap.Skills[1], wantDemand)
	}
	if g, err := skillgraph.Load(snap); err != nil || g.Len() != 2 {
		t.Errorf("skillgraph.Load() = %v, %v", g, err)
	}
}

func TestMentorRoster(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := match.MentorProfile{
		ID: "m1", Name: "Alex", Industries: []string{"fintech", "retail"},
		Expertise: []string{"python", "sql"}, Capacity: 4, Load: 2, Rating: 4.5,
	}
	if err := s.UpsertMentor(ctx, m); err != nil {
		t.Fatalf("UpsertMentor() error = %v", err)
	}

	roster, err := s.ListMentors(ctx)
	if err != nil {
		t.Fatalf("ListMentors() error = %v", err)
	}
	if len(roster) != 1 || roster[0].Load != 2 || roster[0].Industries[0] != "fintech" {
		t.Errorf("ListMentors() = %+v", roster)
	}
}

func TestAggregateComputation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	lim := rate.NewLimiter(rate.Inf, 1)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := s.UpsertSkill(ctx, skillgraph.Skill{ID: "python", Name: "Python"}, 255); err != nil {
		t.Fatalf("UpsertSkill() error = %v", err)
	}
	events := []profile.ProgressRecord{
		{LearnerID: "l1", ContentID: "c1", SkillID: "python", Kind: profile.KindCompletion, Score: 80, OccurredAt: base},
		{LearnerID: "l2", ContentID: "c1", SkillID: "python", Kind: profile.KindCompletion, Score: 60, OccurredAt: base},
		{LearnerID: "l3", SkillID: "python", Kind: profile.KindAssessment, Score: 40, OccurredAt: base},
	}
	for _, r := range events {
		if err := s.InsertProgress(ctx, r); err != nil {
			t.Fatalf("InsertProgress() error = %v", err)
		}
	}
	if err := s.RecordMentorshipOutcome(ctx, "m1", "l1", true, 5, base); err != nil {
		t.Fatalf("RecordMentorshipOutcome() error = %v", err)
	}
	if err := s.RecordMentorshipOutcome(ctx, "m1", "l2", false, 3, base); err != nil {
		t.Fatalf("RecordMentorshipOutcome() error = %v", err)
	}

	progress, err := s.ComputeProgress(ctx, lim)
	if err != nil {
		t.Fatalf("ComputeProgress() error = %v", err)
	}
	if len(progress) != 1 || progress[0].SkillID != "python" || progress[0].Learners != 3 {
		t.Fatalf("ComputeProgress() = %+v", progress)
	}
	// 2 of 3 learners completed; rates stay inside validation bounds.
	if progress[0].CompletionRate < 66 || progress[0].CompletionRate > 67 {
		t.Errorf("completion rate = %.2f, want ~66.67", progress[0].CompletionRate)
	}

	market, err := s.ComputeMarket(ctx, lim)
	if err != nil {
		t.Fatalf("ComputeMarket() error = %v", err)
	}
	if len(market) != 1 || market[0].ContentID != "c1" || market[0].Completions != 2 {
		t.Fatalf("ComputeMarket() = %+v", market)
	}
	if market[0].Effectiveness != 70 {
		t.Errorf("effectiveness = %.2f, want 70", market[0].Effectiveness)
	}
	wantDemand := skillgraph.RateToDemand(255)
	if market[0].DemandScore != wantDemand {
		t.Errorf("demand score = %.2f, want %.2f", market[0].DemandScore, wantDemand)
	}

	mentorship, err := s.ComputeMentorship(ctx, lim)
	if err != nil {
		t.Fatalf("ComputeMentorship() error = %v", err)
	}
	if len(mentorship) != 1 || mentorship[0].SuccessRate != 50 || mentorship[0].AvgRating != 4 {
		t.Fatalf("ComputeMentorship() = %+v", mentorship)
	}
}
