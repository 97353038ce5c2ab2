// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/profile"
)

// GetRawProgress returns all progress records for a learner, newest last.
func (s *Store) GetRawProgress(ctx context.Context, learnerID string) ([]profile.ProgressRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT learner_id, content_id, skill_id, kind, score, minutes, occurred_at
		FROM progress_events
		WHERE learner_id = ?
		ORDER BY occurred_at`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("query progress for %s: %w", learnerID, err)
	}
	defer rows.Close()

	var records []profile.ProgressRecord
	for rows.Next() {
		var (
			r    profile.ProgressRecord
			kind string
		)
		if err := rows.Scan(&r.LearnerID, &r.ContentID, &r.SkillID, &kind, &r.Score, &r.Minutes, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		if kind == "assessment" {
			r.Kind = profile.KindAssessment
		} else {
			r.Kind = profile.KindCompletion
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetLearnerProfile returns the learner's goals and stage.
func (s *Store) GetLearnerProfile(ctx context.Context, learnerID string) (profile.LearnerProfile, error) {
	var (
		p            profile.LearnerProfile
		targetSkills string
		stage        string
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT learner_id, persona, target_industry, target_skills, weekly_minutes, stage
		FROM learner_profiles
		WHERE learner_id = ?`, learnerID).
		Scan(&p.LearnerID, &p.Goals.Persona, &p.Goals.TargetIndustry, &targetSkills, &p.Goals.WeeklyMinutes, &stage)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.LearnerProfile{}, faults.NotFound("learner %s has no profile", learnerID)
	}
	if err != nil {
		return profile.LearnerProfile{}, fmt.Errorf("query profile for %s: %w", learnerID, err)
	}
	if err := json.Unmarshal([]byte(targetSkills), &p.Goals.TargetSkills); err != nil {
		return profile.LearnerProfile{}, fmt.Errorf("decode target skills for %s: %w", learnerID, err)
	}
	p.Stage = profile.ParseStage(stage)
	return p, nil
}

// UpsertLearnerProfile writes a learner's goals and stage.
func (s *Store) UpsertLearnerProfile(ctx context.Context, p profile.LearnerProfile) error {
	targetSkills, err := json.Marshal(p.Goals.TargetSkills)
	if err != nil {
		return fmt.Errorf("encode target skills: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO learner_profiles
			(learner_id, persona, target_industry, target_skills, weekly_minutes, stage)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.LearnerID, p.Goals.Persona, p.Goals.TargetIndustry, string(targetSkills),
		p.Goals.WeeklyMinutes, p.Stage.String())
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.LearnerID, err)
	}
	return nil
}

// InsertProgress appends one raw progress event.
func (s *Store) InsertProgress(ctx context.Context, r profile.ProgressRecord) error {
	occurredAt := r.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO progress_events (learner_id, content_id, skill_id, kind, score, minutes, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.LearnerID, r.ContentID, r.SkillID, r.Kind.String(), r.Score, r.Minutes, occurredAt)
	if err != nil {
		return fmt.Errorf("insert progress for %s: %w", r.LearnerID, err)
	}
	return nil
}
