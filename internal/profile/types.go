// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package profile

import "time"

// ProgressKind classifies a raw progress record.
type ProgressKind int

const (
	// KindCompletion is a content completion with a mastery score.
	KindCompletion ProgressKind = iota
	// KindAssessment is a graded assessment attempt.
	KindAssessment
)

// String returns a human-readable kind name.
func (k ProgressKind) String() string {
	switch k {
	case KindCompletion:
		return "completion"
	case KindAssessment:
		return "assessment"
	default:
		return "unknown"
	}
}

// ProgressRecord is one raw learner activity row from the external
// progress store.
type ProgressRecord struct {
	// LearnerID identifies the learner.
	LearnerID string `json:"learner_id"`

	// ContentID is the content item involved, empty for pure assessments.
	ContentID string `json:"content_id,omitempty"`

	// SkillID is the skill the record evidences, empty when untagged.
	SkillID string `json:"skill_id,omitempty"`

	// Kind classifies the record.
	Kind ProgressKind `json:"kind"`

	// Score is the mastery or grade signal in [0, 100].
	Score float64 `json:"score"`

	// Minutes is the time spent, informational only.
	Minutes int `json:"minutes,omitempty"`

	// OccurredAt is when the activity happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// Stage is the learner's career/business stage.
type Stage int

const (
	// StageExplore is pre-commitment exploration.
	StageExplore Stage = iota
	// StageLaunch is the first committed build-out.
	StageLaunch
	// StageGrow is established and expanding.
	StageGrow
	// StageScale is scaling an established practice.
	StageScale
)

// StageAny marks catalog content addressed to every stage. Learners always
// carry a concrete stage.
const StageAny Stage = -1

// String returns the canonical stage name.
func (s Stage) String() string {
	switch s {
	case StageExplore:
		return "explore"
	case StageLaunch:
		return "launch"
	case StageGrow:
		return "grow"
	case StageScale:
		return "scale"
	case StageAny:
		return "any"
	default:
		return "unknown"
	}
}

// ParseStage maps a stage name to its enum; unknown names map to
// StageExplore, the most conservative assumption.
func ParseStage(s string) Stage {
	switch s {
	case "launch":
		return StageLaunch
	case "grow":
		return StageGrow
	case "scale":
		return StageScale
	case "any", "general":
		return StageAny
	default:
		return StageExplore
	}
}

// Goals holds a learner's active goals.
type Goals struct {
	// Persona selects the scoring-weight profile.
	Persona string `json:"persona,omitempty"`

	// TargetIndustry is the industry or domain the learner aims at.
	TargetIndustry string `json:"target_industry,omitempty"`

	// TargetSkills maps skill ID to the minimum proficiency the learner
	// wants to reach.
	TargetSkills map[string]float64 `json:"target_skills,omitempty"`

	// WeeklyMinutes is the learner's declared time budget.
	WeeklyMinutes int `json:"weekly_minutes,omitempty"`
}

// LearnerProfile is the goal/stage row from the external progress store.
type LearnerProfile struct {
	LearnerID string `json:"learner_id"`
	Goals     Goals  `json:"goals"`
	Stage     Stage  `json:"stage"`
}

// LearnerState is the normalized, versioned learner snapshot. It is built
// and cached exclusively by the Aggregator; every other component receives
// read-only copies.
type LearnerState struct {
	// LearnerID identifies the learner.
	LearnerID string `json:"learner_id"`

	// Completed maps completed content ID to its best mastery score.
	Completed map[string]float64 `json:"completed"`

	// Proficiency maps skill ID to proficiency in [0, 100].
	Proficiency map[string]float64 `json:"proficiency"`

	// RecentCompleted lists recently completed content IDs, newest first,
	// capped at the configured window. Feeds the learner-interest vector.
	RecentCompleted []string `json:"recent_completed,omitempty"`

	// Goals are the learner's active goals.
	Goals Goals `json:"goals"`

	// Stage is the learner's career/business stage.
	Stage Stage `json:"stage"`

	// Version orders rebuilds of the same learner; a stale rebuild never
	// overwrites a fresher cached state.
	Version int64 `json:"version"`

	// BuiltAt is when this state was folded.
	BuiltAt time.Time `json:"built_at"`

	// Degraded is set when the state was served stale because the
	// progress store was unreachable.
	Degraded bool `json:"degraded,omitempty"`
}

// Clone returns a deep copy so callers can never mutate the cached state.
func (s *LearnerState) Clone() *LearnerState {
	cp := *s
	cp.Completed = make(map[string]float64, len(s.Completed))
	for k, v := range s.Completed {
		cp.Completed[k] = v
	}
	cp.Proficiency = make(map[string]float64, len(s.Proficiency))
	for k, v := range s.Proficiency {
		cp.Proficiency[k] = v
	}
	cp.RecentCompleted = append([]string(nil), s.RecentCompleted...)
	if s.Goals.TargetSkills != nil {
		cp.Goals.TargetSkills = make(map[string]float64, len(s.Goals.TargetSkills))
		for k, v := range s.Goals.TargetSkills {
			cp.Goals.TargetSkills[k] = v
		}
	}
	return &cp
}
