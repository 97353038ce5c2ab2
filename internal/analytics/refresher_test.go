// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/time/rate"

	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/faults"
)

// fakeSource is a controllable AggregateSource for tests.
type fakeSource struct {
	mu       sync.Mutex
	computes int
	market   []MarketEffectiveness
	progress []ProgressSummary
	err      error
	block    chan struct{} // when non-nil, ComputeMarket waits on it
}

func (f *fakeSource) ComputeProgress(ctx context.Context, _ *rate.Limiter) ([]ProgressSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computes++
	return f.progress, f.err
}

func (f *fakeSource) ComputeMarket(ctx context.Context, _ *rate.Limiter) ([]MarketEffectiveness, error) {
	f.mu.Lock()
	block := f.block
	f.computes++
	rows, err := f.market, f.err
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, err
}

func (f *fakeSource) ComputeMentorship(ctx context.Context, _ *rate.Limiter) ([]MentorshipEffectiveness, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computes++
	return nil, f.err
}

func (f *fakeSource) computeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.computes
}

func (f *fakeSource) set(rows []MarketEffectiveness, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.market = rows
	f.err = err
}

func testAnalyticsConfig() config.AnalyticsConfig {
	cfg := config.Default().Analytics
	cfg.RefreshInterval = time.Hour
	return cfg
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	store := NewStore(nil)
	src := &fakeSource{market: []MarketEffectiveness{
		{ContentID: "c1", Completions: 12, Effectiveness: 88, DemandScore: 70, QualityScore: 8.5, MarketRelevance: 7},
	}}
	r := NewRefresher(FamilyMarket, store, src, testAnalyticsConfig())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snap, err := store.Current(FamilyMarket)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if snap.ID != 1 {
		t.Errorf("snapshot ID = %d, want 1", snap.ID)
	}
	if snap.RunID == "" {
		t.Error("snapshot RunID is empty")
	}
	if len(snap.Market) != 1 || snap.Market[0].ContentID != "c1" {
		t.Errorf("snapshot rows = %+v", snap.Market)
	}
	if r.Phase() != PhaseIdle {
		t.Errorf("phase after refresh = %v, want idle", r.Phase())
	}
}

func TestCurrentBeforeFirstPublish(t *testing.T) {
	store := NewStore(nil)
	_, err := store.Current(FamilyProgress)
	if faults.KindOf(err) != faults.KindNotFound {
		t.Errorf("Current() error = %v, want NotFound", err)
	}
}

func TestValidationFailureKeepsPreviousSnapshot(t *testing.T) {
	store := NewStore(nil)
	src := &fakeSource{market: []MarketEffectiveness{
		{ContentID: "c1", Effectiveness: 90, QualityScore: 9},
	}}
	r := NewRefresher(FamilyMarket, store, src, testAnalyticsConfig())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	good, _ := store.Current(FamilyMarket)

	// Rate out of range must fail validation and leave v1 in place.
	src.set([]MarketEffectiveness{{ContentID: "c2", Effectiveness: 140}}, nil)
	err := r.Refresh(context.Background())
	if faults.KindOf(err) != faults.KindSnapshotValidation {
		t.Fatalf("second Refresh() error = %v, want SnapshotValidationFailed", err)
	}

	cur, err := store.Current(FamilyMarket)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur.ID != good.ID {
		t.Errorf("current snapshot ID = %d, want previous %d", cur.ID, good.ID)
	}
	if len(cur.Market) != 1 || cur.Market[0].ContentID != "c1" {
		t.Errorf("current snapshot rows = %+v, want previous generation", cur.Market)
	}
	if r.Phase() != PhaseIdle {
		t.Errorf("phase after failed refresh = %v, want idle", r.Phase())
	}
}

func TestComputeErrorKeepsPreviousSnapshot(t *testing.T) {
	store := NewStore(nil)
	src := &fakeSource{market: []MarketEffectiveness{{ContentID: "c1", Effectiveness: 50}}}
	r := NewRefresher(FamilyMarket, store, src, testAnalyticsConfig())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	src.set(nil, errors.New("store offline"))
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("second Refresh() error = nil, want compute error")
	}
	cur, err := store.Current(FamilyMarket)
	if err != nil || cur.ID != 1 {
		t.Errorf("Current() = %v, %v, want snapshot 1", cur, err)
	}
}

func TestConcurrentTriggersCoalesce(t *testing.T) {
	store := NewStore(nil)
	block := make(chan struct{})
	src := &fakeSource{
		market: []MarketEffectiveness{{ContentID: "c1", Effectiveness: 50}},
		block:  block,
	}
	r := NewRefresher(FamilyMarket, store, src, testAnalyticsConfig())

	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = r.Refresh(context.Background())
	}()

	// Wait for the first trigger to enter Computing, then pile on.
	deadline := time.Now().Add(2 * time.Second)
	for r.Phase() != PhaseComputing {
		if time.Now().After(deadline) {
			t.Fatal("refresher never entered computing phase")
		}
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Refresh(context.Background())
		}(i)
	}
	time.Sleep(10 * time.Millisecond)
	close(block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("trigger %d error = %v", i, err)
		}
	}
	if got := src.computeCount(); got != 1 {
		t.Errorf("compute invocations = %d, want 1 (triggers must coalesce)", got)
	}
	if snap, _ := store.Current(FamilyMarket); snap == nil || snap.ID != 1 {
		t.Errorf("current snapshot = %+v, want single generation", snap)
	}
}

func TestReadersSeeConsistentGenerations(t *testing.T) {
	store := NewStore(nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := store.NextID()
			rows := make([]ProgressSummary, 3)
			for j := range rows {
				rows[j] = ProgressSummary{SkillID: "s", Learners: int(id)}
			}
			_ = store.Publish(&Snapshot{
				ID: id, Family: FamilyProgress, GeneratedAt: time.Now(), Progress: rows,
			})
		}
		close(stop)
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastID int64
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, err := store.Current(FamilyProgress)
				if err != nil {
					continue
				}
				if snap.ID < lastID {
					t.Errorf("snapshot ID went backwards: %d after %d", snap.ID, lastID)
					return
				}
				lastID = snap.ID
				for _, row := range snap.Progress {
					if int64(row.Learners) != snap.ID {
						t.Errorf("torn snapshot: row learners %d inside generation %d", row.Learners, snap.ID)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestStorePersistenceRoundtrip(t *testing.T) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	snap := &Snapshot{
		ID:          store.NextID(),
		RunID:       "run-1",
		Family:      FamilyMentorship,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Mentorship: []MentorshipEffectiveness{
			{MentorID: "m1", Matches: 4, SuccessRate: 75, AvgRating: 4.5},
		},
	}
	if err := store.Publish(snap); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// A fresh store over the same DB must restore the generation.
	restored := NewStore(db)
	if err := restored.LoadPersisted(); err != nil {
		t.Fatalf("LoadPersisted() error = %v", err)
	}
	got, err := restored.Current(FamilyMentorship)
	if err != nil {
		t.Fatalf("Current() after restore error = %v", err)
	}
	if got.ID != snap.ID || got.RunID != "run-1" || len(got.Mentorship) != 1 {
		t.Errorf("restored snapshot = %+v, want %+v", got, snap)
	}
	if next := restored.NextID(); next != snap.ID+1 {
		t.Errorf("NextID() after restore = %d, want %d", next, snap.ID+1)
	}
}

func TestSnapshotValidateBounds(t *testing.T) {
	tests := []struct {
		name    string
		snap    Snapshot
		maxRows int
		wantOK  bool
	}{
		{
			name: "valid progress",
			snap: Snapshot{Family: FamilyProgress, Progress: []ProgressSummary{
				{SkillID: "s1", Learners: 10, CompletionRate: 62.5, AvgProficiency: 48},
			}},
			wantOK: true,
		},
		{
			name: "completion rate above 100",
			snap: Snapshot{Family: FamilyProgress, Progress: []ProgressSummary{
				{SkillID: "s1", CompletionRate: 101},
			}},
		},
		{
			name: "negative learner count",
			snap: Snapshot{Family: FamilyProgress, Progress: []ProgressSummary{
				{SkillID: "s1", Learners: -1},
			}},
		},
		{
			name: "rating above scale",
			snap: Snapshot{Family: FamilyMentorship, Mentorship: []MentorshipEffectiveness{
				{MentorID: "m1", AvgRating: 5.1},
			}},
		},
		{
			name: "row count over bound",
			snap: Snapshot{Family: FamilyProgress, Progress: []ProgressSummary{
				{SkillID: "s1"}, {SkillID: "s2"},
			}},
			maxRows: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate(tt.maxRows)
			if tt.wantOK && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.wantOK {
				if faults.KindOf(err) != faults.KindSnapshotValidation {
					t.Errorf("Validate() error = %v, want SnapshotValidationFailed", err)
				}
			}
		})
	}
}

func TestParseFamily(t *testing.T) {
	if _, err := ParseFamily("market"); err != nil {
		t.Errorf("ParseFamily(market) error = %v", err)
	}
	_, err := ParseFamily("finance")
	if faults.KindOf(err) != faults.KindInvalidArgument {
		t.Errorf("ParseFamily(finance) error = %v, want InvalidArgument", err)
	}
}
