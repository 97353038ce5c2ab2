// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/recommend"
	"github.com/didactus/didactus/internal/skillgraph"
)

// ListPublished returns all published content items in ID order.
func (s *Store) ListPublished(ctx context.Context) ([]recommend.ContentItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, title, skill_ids, difficulty, target_stage, format, quality, market_relevance, published
		FROM content
		WHERE published
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var items []recommend.ContentItem
	for rows.Next() {
		var (
			item     recommend.ContentItem
			skillIDs string
			stage    string
		)
		if err := rows.Scan(&item.ID, &item.Title, &skillIDs, &item.Difficulty, &stage,
			&item.Format, &item.Quality, &item.MarketRelevance, &item.Published); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		if err := json.Unmarshal([]byte(skillIDs), &item.SkillIDs); err != nil {
			return nil, fmt.Errorf("decode skills for content %s: %w", item.ID, err)
		}
		item.TargetStage = profile.ParseStage(stage)
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertContent writes one catalog item.
func (s *Store) UpsertContent(ctx context.Context, item recommend.ContentItem) error {
	skillIDs, err := json.Marshal(item.SkillIDs)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO content
			(id, title, skill_ids, difficulty, target_stage, format, quality, market_relevance, published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, string(skillIDs), item.Difficulty, item.TargetStage.String(),
		item.Format, item.Quality, item.MarketRelevance, item.Published)
	if err != nil {
		return fmt.Errorf("upsert content %s: %w", item.ID, err)
	}
	return nil
}

// ListEmbeddings returns all stored embeddings keyed by ID. Persona
// reference vectors live in the same table under a "persona:" key.
// Feeds the in-memory vector index at boot.
func (s *Store) ListEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT content_id, embedding FROM content_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	out := map[string][]float32{}
	for rows.Next() {
		var (
			contentID string
			raw       string
		)
		if err := rows.Scan(&contentID, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", contentID, err)
		}
		out[contentID] = vec
	}
	return out, rows.Err()
}

// UpsertEmbedding writes one content embedding.
func (s *Store) UpsertEmbedding(ctx context.Context, contentID string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO content_embeddings (content_id, embedding) VALUES (?, ?)`,
		contentID, string(raw))
	if err != nil {
		return fmt.Errorf("upsert embedding %s: %w", contentID, err)
	}
	return nil
}

// LoadSkillGraph reads the taxonomy. Hourly-rate signals become demand
// scores through the winsorization bounds.
func (s *Store) LoadSkillGraph(ctx context.Context) (skillgraph.Snapshot, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, category, prereqs, complements, hourly_rate, estimated_minutes
		FROM skills
		ORDER BY id`)
	if err != nil {
		return skillgraph.Snapshot{}, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var snap skillgraph.Snapshot
	for rows.Next() {
		var (
			sk          skillgraph.Skill
			prereqs     string
			complements string
			hourlyRate  float64
		)
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Category, &prereqs, &complements,
			&hourlyRate, &sk.EstimatedMinutes); err != nil {
			return skillgraph.Snapshot{}, fmt.Errorf("scan skill row: %w", err)
		}
		if err := json.Unmarshal([]byte(prereqs), &sk.Prereqs); err != nil {
			return skillgraph.Snapshot{}, fmt.Errorf("decode prereqs for %s: %w", sk.ID, err)
		}
		if err := json.Unmarshal([]byte(complements), &sk.Complements); err != nil {
			return skillgraph.Snapshot{}, fmt.Errorf("decode complements for %s: %w", sk.ID, err)
		}
		sk.Demand = skillgraph.RateToDemand(hourlyRate)
		snap.Skills = append(snap.Skills, sk)
	}
	return snap, rows.Err()
}

// UpsertSkill writes one taxonomy node.
func (s *Store) UpsertSkill(ctx context.Context, sk skillgraph.Skill, hourlyRate float64) error {
	prereqs, err := json.Marshal(sk.Prereqs)
	if err != nil {
		return fmt.Errorf("encode prereqs: %w", err)
	}
	complements, err := json.Marshal(sk.Complements)
	if err != nil {
		return fmt.Errorf("encode complements: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO skills
			(id, name, category, prereqs, complements, hourly_rate, estimated_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sk.ID, sk.Name, sk.Category, string(prereqs), string(complements), hourlyRate, sk.EstimatedMinutes)
	if err != nil {
		return fmt.Errorf("upsert skill %s: %w", sk.ID, err)
	}
	return nil
}
