// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package main is the entry point for the Didactus server.
//
// Didactus ranks learning content and mentor matches for individual
// learners and maintains versioned analytics snapshots over learner
// activity. Startup proceeds in order:
//
//  1. Configuration: Koanf v2 layered load (defaults, config file, env)
//  2. Store: DuckDB schema over progress, catalog, taxonomy and mentors
//  3. Skill graph: load and validate the taxonomy (cycles quarantined)
//  4. Vector index: content embeddings loaded into memory
//  5. Profile aggregator: learner-state cache with invalidation bus
//  6. Analytics: persisted snapshots restored, per-family refreshers
//  7. HTTP server: REST API plus /metrics, under Suture supervision
//
// Configuration uses the DIDACTUS_ env prefix (e.g. DIDACTUS_SERVER_PORT)
// layered over an optional YAML file at DIDACTUS_CONFIG_PATH.
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dgraph-io/badger/v4"

	"github.com/didactus/didactus/internal/analytics"
	"github.com/didactus/didactus/internal/api"
	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/gaps"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/match"
	"github.com/didactus/didactus/internal/profile"
	"github.com/didactus/didactus/internal/recommend"
	"github.com/didactus/didactus/internal/skillgraph"
	"github.com/didactus/didactus/internal/store"
	"github.com/didactus/didactus/internal/supervisor"
	"github.com/didactus/didactus/internal/vector"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	badgerOpts := badger.DefaultOptions(cfg.Store.SnapshotDir).WithLogger(nil)
	if cfg.Store.SnapshotDir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	snapshotDB, err := badger.Open(badgerOpts)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer snapshotDB.Close()

	// Skill taxonomy. Quarantined cycle members are logged and excluded
	// from unlock scoring; everything else proceeds.
	taxonomy, err := st.LoadSkillGraph(ctx)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	graph, err := skillgraph.Load(taxonomy)
	if err != nil {
		return fmt.Errorf("build skill graph: %w", err)
	}
	if q := graph.Quarantined(); len(q) > 0 {
		logger.Warn().Strs("skills", q).Msg("Quarantined skills on prerequisite cycles")
	}
	analyzer := gaps.NewAnalyzer(graph, cfg.Ranking.LockThreshold)

	// Content embeddings into the in-memory index.
	embeddings, err := st.ListEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	dim := 0
	for _, vec := range embeddings {
		dim = len(vec)
		break
	}
	index := vector.NewIndex(dim)
	for contentID, vec := range embeddings {
		if err := index.Upsert(contentID, vec); err != nil {
			logger.Warn().Err(err).Str("content_id", contentID).Msg("Skipping malformed embedding")
		}
	}
	logger.Info().Int("vectors", index.Len()).Int("dim", dim).Msg("Vector index loaded")

	aggregator := profile.NewAggregator(st, cfg.Profile, logging.Get())
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	snapshots := analytics.NewStore(snapshotDB)
	if err := snapshots.LoadPersisted(); err != nil {
		logger.Warn().Err(err).Msg("Could not restore persisted snapshots")
	}
	refreshers := map[analytics.Family]*analytics.Refresher{}
	for _, fam := range analytics.Families() {
		refreshers[fam] = analytics.NewRefresher(fam, snapshots, st, cfg.Analytics)
	}

	ranker := recommend.NewRanker(aggregator, analyzer, index, snapshots, st, cfg.Ranking)
	matcher := match.NewMatcher(aggregator, analyzer, st, cfg.Matching)

	router := api.NewRouter(ranker, matcher, snapshots, refreshers, cfg.Server)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(slog.New(slog.NewJSONHandler(os.Stderr, nil)), supervisor.DefaultTreeConfig())
	for _, r := range refreshers {
		tree.AddAnalyticsService(r)
	}
	tree.AddAnalyticsService(supervisor.NewInvalidationService(aggregator, bus))
	tree.AddAPIService(supervisor.NewHTTPService(httpServer))

	logger.Info().Str("addr", httpServer.Addr).Msg("Starting server")
	err = tree.Serve(ctx)
	logger.Info().Msg("Server stopped")
	if err != nil && ctx.Err() != nil {
		return nil // clean shutdown
	}
	return err
}
