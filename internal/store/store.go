// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package store is the DuckDB data-access layer. It backs every read the
// engine makes: raw learner progress, the content catalog with embeddings,
// the skill taxonomy, the mentor roster and the analytics aggregates.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/logging"
)

// Store wraps the DuckDB connection.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the DuckDB database and initializes the schema.
// An empty path opens an in-memory database.
func Open(cfg config.StoreConfig) (*Store, error) {
	if cfg.Path != "" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn, logger: logging.Component("store")}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	s.logger.Info().Str("path", cfg.Path).Msg("Opened store")
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS learner_profiles (
			learner_id      VARCHAR PRIMARY KEY,
			persona         VARCHAR NOT NULL DEFAULT '',
			target_industry VARCHAR NOT NULL DEFAULT '',
			target_skills   VARCHAR NOT NULL DEFAULT '{}',
			weekly_minutes  INTEGER NOT NULL DEFAULT 0,
			stage           VARCHAR NOT NULL DEFAULT 'explore'
		)`,
		`CREATE TABLE IF NOT EXISTS progress_events (
			learner_id  VARCHAR NOT NULL,
			content_id  VARCHAR NOT NULL DEFAULT '',
			skill_id    VARCHAR NOT NULL DEFAULT '',
			kind        VARCHAR NOT NULL,
			score       DOUBLE  NOT NULL DEFAULT 0,
			minutes     INTEGER NOT NULL DEFAULT 0,
			occurred_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_learner ON progress_events (learner_id)`,
		`CREATE TABLE IF NOT EXISTS content (
			id               VARCHAR PRIMARY KEY,
			title            VARCHAR NOT NULL,
			skill_ids        VARCHAR NOT NULL DEFAULT '[]',
			difficulty       INTEGER NOT NULL DEFAULT 1,
			target_stage     VARCHAR NOT NULL DEFAULT 'explore',
			format           VARCHAR NOT NULL DEFAULT '',
			quality          DOUBLE  NOT NULL DEFAULT 0,
			market_relevance DOUBLE  NOT NULL DEFAULT 0,
			published        BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS content_embeddings (
			content_id VARCHAR PRIMARY KEY,
			embedding  VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id                VARCHAR PRIMARY KEY,
			name              VARCHAR NOT NULL,
			category          VARCHAR NOT NULL DEFAULT '',
			prereqs           VARCHAR NOT NULL DEFAULT '[]',
			complements       VARCHAR NOT NULL DEFAULT '[]',
			hourly_rate       DOUBLE  NOT NULL DEFAULT 0,
			estimated_minutes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS mentors (
			id         VARCHAR PRIMARY KEY,
			name       VARCHAR NOT NULL,
			industries VARCHAR NOT NULL DEFAULT '[]',
			expertise  VARCHAR NOT NULL DEFAULT '[]',
			capacity   INTEGER NOT NULL DEFAULT 0,
			mentee_load INTEGER NOT NULL DEFAULT 0,
			rating     DOUBLE  NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS mentorship_outcomes (
			mentor_id VARCHAR NOT NULL,
			mentee_id VARCHAR NOT NULL,
			success   BOOLEAN NOT NULL,
			rating    DOUBLE  NOT NULL DEFAULT 0,
			ended_at  TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
