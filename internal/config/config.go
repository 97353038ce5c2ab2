// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package config defines and loads the Didactus configuration: scoring
// weights per persona, refresh intervals per analytics family, learner-state
// cache TTL, and candidate-set quotas. Values layer as defaults, then an
// optional YAML file, then DIDACTUS_-prefixed environment variables.
package config

import (
	"fmt"
	"math"
	"time"
)

// WeightSumTolerance bounds how far a persona's scoring weights may drift
// from summing to exactly 1.0.
const WeightSumTolerance = 0.001

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Profile   ProfileConfig   `koanf:"profile"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Matching  MatchingConfig  `koanf:"matching"`
	Analytics AnalyticsConfig `koanf:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs and RateLimitWindow bound per-IP request rates.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig holds backing-store settings.
type StoreConfig struct {
	// Path is the DuckDB database file. Empty means in-memory.
	Path string `koanf:"path"`

	// SnapshotDir is the Badger directory for persisted snapshots.
	// Empty means in-memory (snapshots do not survive restarts).
	SnapshotDir string `koanf:"snapshot_dir"`
}

// ProfileConfig holds Profile Aggregator settings.
type ProfileConfig struct {
	// CacheTTL bounds learner-state staleness before a rebuild.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// DecayHalfLife is the recency-decay half-life for proficiency folding.
	DecayHalfLife time.Duration `koanf:"decay_half_life"`

	// AssessmentWeight and CompletionWeight scale the two signal kinds in
	// the proficiency fold.
	AssessmentWeight float64 `koanf:"assessment_weight"`
	CompletionWeight float64 `koanf:"completion_weight"`

	// RecentWindow is how many most-recent completions feed the
	// learner-interest vector.
	RecentWindow int `koanf:"recent_window"`

	// BreakerFailures trips the progress-store circuit breaker after this
	// many consecutive failures; BreakerCooldown is the open interval.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// ScoringWeights are the four recommendation sub-score weights.
// They must sum to 1.0 within WeightSumTolerance.
type ScoringWeights struct {
	Similarity float64 `koanf:"similarity"`
	Gap        float64 `koanf:"gap"`
	Stage      float64 `koanf:"stage"`
	Quality    float64 `koanf:"quality"`
}

// Sum returns the total weight.
func (w ScoringWeights) Sum() float64 {
	return w.Similarity + w.Gap + w.Stage + w.Quality
}

// Validate checks the sum constraint.
func (w ScoringWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > WeightSumTolerance {
		return fmt.Errorf("scoring weights sum to %.4f, must be 1.0 ± %.3f", w.Sum(), WeightSumTolerance)
	}
	return nil
}

// RankingConfig holds Recommendation Ranker settings.
type RankingConfig struct {
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit is the hard cap on requested limits.
	MaxLimit int `koanf:"max_limit"`

	// MaxCandidates caps the number of candidates scored per request.
	MaxCandidates int `koanf:"max_candidates"`

	// SerendipityQuota is how many pure vector neighbours join the
	// candidate set regardless of gap/target overlap.
	SerendipityQuota int `koanf:"serendipity_quota"`

	// LockThreshold is the proficiency below which a prerequisite counts
	// as unmet for unlock scoring.
	LockThreshold float64 `koanf:"lock_threshold"`

	// Weights are the default sub-score weights.
	Weights ScoringWeights `koanf:"weights"`

	// Personas overrides Weights per persona, tunable without code changes.
	Personas map[string]ScoringWeights `koanf:"personas"`
}

// WeightsFor returns the weights for a persona, falling back to defaults.
func (c RankingConfig) WeightsFor(persona string) ScoringWeights {
	if w, ok := c.Personas[persona]; ok {
		return w
	}
	return c.Weights
}

// MatchWeights are the four mentor-match sub-score weights.
// They must sum to 1.0 within WeightSumTolerance.
type MatchWeights struct {
	Industry     float64 `koanf:"industry"`
	Expertise    float64 `koanf:"expertise"`
	Availability float64 `koanf:"availability"`
	TrackRecord  float64 `koanf:"track_record"`
}

// Sum returns the total weight.
func (w MatchWeights) Sum() float64 {
	return w.Industry + w.Expertise + w.Availability + w.TrackRecord
}

// Validate checks the sum constraint.
func (w MatchWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > WeightSumTolerance {
		return fmt.Errorf("match weights sum to %.4f, must be 1.0 ± %.3f", w.Sum(), WeightSumTolerance)
	}
	return nil
}

// MatchingConfig holds Mentor Matcher settings.
type MatchingConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`

	Weights  MatchWeights            `koanf:"weights"`
	Personas map[string]MatchWeights `koanf:"personas"`
}

// WeightsFor returns the weights for a persona, falling back to defaults.
func (c MatchingConfig) WeightsFor(persona string) MatchWeights {
	if w, ok := c.Personas[persona]; ok {
		return w
	}
	return c.Weights
}

// AnalyticsConfig holds Analytics Refresher settings.
type AnalyticsConfig struct {
	// RefreshInterval is the default per-family refresh interval.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// FamilyIntervals overrides RefreshInterval per family name.
	FamilyIntervals map[string]time.Duration `koanf:"family_intervals"`

	// MaxRows bounds the row count a candidate snapshot may carry before
	// validation rejects it.
	MaxRows int `koanf:"max_rows"`

	// ReadsPerSecond paces the refresher's bulk reads against the shared
	// stores. Zero disables pacing.
	ReadsPerSecond float64 `koanf:"reads_per_second"`
}

// IntervalFor returns the refresh interval for a family.
func (c AnalyticsConfig) IntervalFor(family string) time.Duration {
	if d, ok := c.FamilyIntervals[family]; ok && d > 0 {
		return d
	}
	return c.RefreshInterval
}

// Default returns a Config with all default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path:        "",
			SnapshotDir: "",
		},
		Profile: ProfileConfig{
			CacheTTL:         5 * time.Minute,
			DecayHalfLife:    90 * 24 * time.Hour,
			AssessmentWeight: 1.0,
			CompletionWeight: 0.6,
			RecentWindow:     5,
			BreakerFailures:  5,
			BreakerCooldown:  30 * time.Second,
		},
		Ranking: RankingConfig{
			DefaultLimit:     10,
			MaxLimit:         100,
			MaxCandidates:    500,
			SerendipityQuota: 5,
			LockThreshold:    70,
			Weights: ScoringWeights{
				Similarity: 0.30,
				Gap:        0.30,
				Stage:      0.20,
				Quality:    0.20,
			},
		},
		Matching: MatchingConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			Weights: MatchWeights{
				Industry:     0.40,
				Expertise:    0.35,
				Availability: 0.15,
				TrackRecord:  0.10,
			},
		},
		Analytics: AnalyticsConfig{
			RefreshInterval: 4 * time.Hour,
			MaxRows:         1_000_000,
			ReadsPerSecond:  0,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Profile.CacheTTL <= 0 {
		return fmt.Errorf("profile.cache_ttl must be positive")
	}
	if c.Profile.DecayHalfLife <= 0 {
		return fmt.Errorf("profile.decay_half_life must be positive")
	}
	if c.Ranking.DefaultLimit < 1 || c.Ranking.DefaultLimit > c.Ranking.MaxLimit {
		return fmt.Errorf("ranking.default_limit %d out of range [1, %d]", c.Ranking.DefaultLimit, c.Ranking.MaxLimit)
	}
	if c.Ranking.MaxCandidates < 1 {
		return fmt.Errorf("ranking.max_candidates must be positive")
	}
	if c.Ranking.SerendipityQuota < 0 {
		return fmt.Errorf("ranking.serendipity_quota must not be negative")
	}
	if err := c.Ranking.Weights.Validate(); err != nil {
		return fmt.Errorf("ranking.weights: %w", err)
	}
	for persona, w := range c.Ranking.Personas {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("ranking.personas[%s]: %w", persona, err)
		}
	}
	if err := c.Matching.Weights.Validate(); err != nil {
		return fmt.Errorf("matching.weights: %w", err)
	}
	for persona, w := range c.Matching.Personas {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("matching.personas[%s]: %w", persona, err)
		}
	}
	if c.Analytics.RefreshInterval <= 0 {
		return fmt.Errorf("analytics.refresh_interval must be positive")
	}
	for family, d := range c.Analytics.FamilyIntervals {
		if d <= 0 {
			return fmt.Errorf("analytics.family_intervals[%s] must be positive", family)
		}
	}
	return nil
}
