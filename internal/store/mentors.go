// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/didactus/didactus/internal/match"
)

// ListMentors returns the full mentor roster in ID order.
func (s *Store) ListMentors(ctx context.Context) ([]match.MentorProfile, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, industries, expertise, capacity, mentee_load, rating
		FROM mentors
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query mentors: %w", err)
	}
	defer rows.Close()

	var mentors []match.MentorProfile
	for rows.Next() {
		var (
			m          match.MentorProfile
			industries string
			expertise  string
		)
		if err := rows.Scan(&m.ID, &m.Name, &industries, &expertise, &m.Capacity, &m.Load, &m.Rating); err != nil {
			return nil, fmt.Errorf("scan mentor row: %w", err)
		}
		if err := json.Unmarshal([]byte(industries), &m.Industries); err != nil {
			return nil, fmt.Errorf("decode industries for %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(expertise), &m.Expertise); err != nil {
			return nil, fmt.Errorf("decode expertise for %s: %w", m.ID, err)
		}
		mentors = append(mentors, m)
	}
	return mentors, rows.Err()
}

// UpsertMentor writes one roster entry.
func (s *Store) UpsertMentor(ctx context.Context, m match.MentorProfile) error {
	industries, err := json.Marshal(m.Industries)
	if err != nil {
		return fmt.Errorf("encode industries: %w", err)
	}
	expertise, err := json.Marshal(m.Expertise)
	if err != nil {
		return fmt.Errorf("encode expertise: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO mentors
			(id, name, industries, expertise, capacity, mentee_load, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(industries), string(expertise), m.Capacity, m.Load, m.Rating)
	if err != nil {
		return fmt.Errorf("upsert mentor %s: %w", m.ID, err)
	}
	return nil
}

// RecordMentorshipOutcome appends one finished mentorship.
func (s *Store) RecordMentorshipOutcome(ctx context.Context, mentorID, menteeID string, success bool, rating float64, endedAt time.Time) error {
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO mentorship_outcomes (mentor_id, mentee_id, success, rating, ended_at)
		VALUES (?, ?, ?, ?, ?)`,
		mentorID, menteeID, success, rating, endedAt)
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", mentorID, err)
	}
	return nil
}
