// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/didactus/didactus/internal/analytics"
	"github.com/didactus/didactus/internal/config"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/match"
	"github.com/didactus/didactus/internal/recommend"
)

// Router wires the engine components behind the HTTP API.
type Router struct {
	ranker     *recommend.Ranker
	matcher    *match.Matcher
	snapshots  *analytics.Store
	refreshers map[analytics.Family]*analytics.Refresher
	cfg        config.ServerConfig
}

// NewRouter creates the API router.
func NewRouter(ranker *recommend.Ranker, matcher *match.Matcher, snapshots *analytics.Store,
	refreshers map[analytics.Family]*analytics.Refresher, cfg config.ServerConfig) *Router {
	return &Router{
		ranker:     ranker,
		matcher:    matcher,
		snapshots:  snapshots,
		refreshers: refreshers,
		cfg:        cfg,
	}
}

// Handler builds the chi handler tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if rt.cfg.Timeout > 0 {
		r.Use(chimiddleware.Timeout(rt.cfg.Timeout))
	}
	if len(rt.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if rt.cfg.RateLimitReqs > 0 {
		window := rt.cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, window))
	}

	r.Get("/api/v1/health", rt.handleHealth)
	r.Get("/api/v1/health/live", rt.handleLive)
	r.Get("/api/v1/health/ready", rt.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/learners/{learnerID}/recommendations", rt.handleRecommendations)
		r.Get("/mentees/{menteeID}/mentor-matches", rt.handleMentorMatches)
		r.Get("/analytics/snapshots/{family}", rt.handleSnapshot)
		r.Post("/analytics/refresh/{family}", rt.handleRefresh)
	})

	return r
}

// requestIDMiddleware assigns every request an ID, honouring one supplied
// by the caller, and threads it through the context for logging.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}
