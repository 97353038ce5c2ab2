// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package analytics maintains versioned aggregate snapshots over the raw
// learner-activity stores. A background refresher recomputes each snapshot
// family on its own timer and publishes atomically: readers observe either
// the fully-old or the fully-new snapshot, never a mix.
package analytics

import (
	"fmt"
	"time"

	"github.com/didactus/didactus/internal/faults"
)

// Family is one independently versioned category of aggregates.
type Family string

const (
	// FamilyProgress covers learner-progress summaries per skill.
	FamilyProgress Family = "progress"
	// FamilyMarket covers skill/content market effectiveness.
	FamilyMarket Family = "market"
	// FamilyMentorship covers mentorship effectiveness.
	FamilyMentorship Family = "mentorship"
)

// Families lists all known families in deterministic order.
func Families() []Family {
	return []Family{FamilyProgress, FamilyMarket, FamilyMentorship}
}

// ParseFamily validates a family name.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyProgress, FamilyMarket, FamilyMentorship:
		return Family(s), nil
	default:
		return "", faults.InvalidArgument("unknown snapshot family %q", s)
	}
}

// ProgressSummary is one per-skill progress aggregate row.
type ProgressSummary struct {
	SkillID        string  `json:"skill_id"`
	Learners       int     `json:"learners"`
	CompletionRate float64 `json:"completion_rate"` // percent, [0, 100]
	AvgProficiency float64 `json:"avg_proficiency"` // [0, 100]
}

// MarketEffectiveness is one per-content market aggregate row. The
// refresher recomputes the quality and relevance scores the ranker consumes.
type MarketEffectiveness struct {
	ContentID       string  `json:"content_id"`
	SkillID         string  `json:"skill_id,omitempty"`
	Completions     int     `json:"completions"`
	Effectiveness   float64 `json:"effectiveness"`    // percent, [0, 100]
	DemandScore     float64 `json:"demand_score"`     // [0, 100]
	QualityScore    float64 `json:"quality_score"`    // [0, 10]
	MarketRelevance float64 `json:"market_relevance"` // [0, 10]
}

// MentorshipEffectiveness is one per-mentor aggregate row.
type MentorshipEffectiveness struct {
	MentorID    string  `json:"mentor_id"`
	Matches     int     `json:"matches"`
	SuccessRate float64 `json:"success_rate"` // percent, [0, 100]
	AvgRating   float64 `json:"avg_rating"`   // [0, 5]
}

// Snapshot is one immutable published aggregate generation. Exactly one
// snapshot is current per family; a refresh produces a brand-new Snapshot
// and swaps the family pointer.
type Snapshot struct {
	// ID is monotonic across all families.
	ID int64 `json:"id"`

	// RunID traces the refresh run that produced this snapshot.
	RunID string `json:"run_id"`

	// Family names the aggregate family this snapshot covers.
	Family Family `json:"family"`

	// GeneratedAt is when the snapshot was computed.
	GeneratedAt time.Time `json:"generated_at"`

	// MaxStaleness is the refresh interval the snapshot was published
	// under; Age beyond it means the refresher is behind.
	MaxStaleness time.Duration `json:"max_staleness"`

	// Exactly one of the following is populated, per Family.
	Progress   []ProgressSummary         `json:"progress,omitempty"`
	Market     []MarketEffectiveness     `json:"market,omitempty"`
	Mentorship []MentorshipEffectiveness `json:"mentorship,omitempty"`
}

// Age returns how old the snapshot is.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.GeneratedAt)
}

// Stale reports whether the snapshot exceeded its staleness bound.
func (s *Snapshot) Stale() bool {
	return s.MaxStaleness > 0 && s.Age() > s.MaxStaleness
}

// Rows returns the row count of the populated family table.
func (s *Snapshot) Rows() int {
	switch s.Family {
	case FamilyProgress:
		return len(s.Progress)
	case FamilyMarket:
		return len(s.Market)
	default:
		return len(s.Mentorship)
	}
}

// Validate performs the pre-publish sanity checks: row counts within
// bounds, no negative counters, percentages within [0, 100]. A failed
// candidate snapshot is never published.
func (s *Snapshot) Validate(maxRows int) error {
	if maxRows > 0 && s.Rows() > maxRows {
		return faults.SnapshotValidation("family %s has %d rows, bound is %d", s.Family, s.Rows(), maxRows)
	}

	check := func(row string, field string, v float64, lo, hi float64) error {
		if v < lo || v > hi {
			return faults.SnapshotValidation("family %s row %s: %s %.2f outside [%.0f, %.0f]", s.Family, row, field, v, lo, hi)
		}
		return nil
	}

	switch s.Family {
	case FamilyProgress:
		for _, r := range s.Progress {
			if r.Learners < 0 {
				return faults.SnapshotValidation("family %s row %s: negative learner count %d", s.Family, r.SkillID, r.Learners)
			}
			if err := check(r.SkillID, "completion rate", r.CompletionRate, 0, 100); err != nil {
				return err
			}
			if err := check(r.SkillID, "avg proficiency", r.AvgProficiency, 0, 100); err != nil {
				return err
			}
		}
	case FamilyMarket:
		for _, r := range s.Market {
			if r.Completions < 0 {
				return faults.SnapshotValidation("family %s row %s: negative completions %d", s.Family, r.ContentID, r.Completions)
			}
			if err := check(r.ContentID, "effectiveness", r.Effectiveness, 0, 100); err != nil {
				return err
			}
			if err := check(r.ContentID, "demand score", r.DemandScore, 0, 100); err != nil {
				return err
			}
			if err := check(r.ContentID, "quality score", r.QualityScore, 0, 10); err != nil {
				return err
			}
			if err := check(r.ContentID, "market relevance", r.MarketRelevance, 0, 10); err != nil {
				return err
			}
		}
	case FamilyMentorship:
		for _, r := range s.Mentorship {
			if r.Matches < 0 {
				return faults.SnapshotValidation("family %s row %s: negative match count %d", s.Family, r.MentorID, r.Matches)
			}
			if err := check(r.MentorID, "success rate", r.SuccessRate, 0, 100); err != nil {
				return err
			}
			if err := check(r.MentorID, "avg rating", r.AvgRating, 0, 5); err != nil {
				return err
			}
		}
	default:
		return faults.SnapshotValidation("unknown family %q", s.Family)
	}
	return nil
}

// String implements fmt.Stringer for log fields.
func (s *Snapshot) String() string {
	return fmt.Sprintf("%s/%d", s.Family, s.ID)
}
