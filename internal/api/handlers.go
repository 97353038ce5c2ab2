// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/didactus/didactus/internal/analytics"
	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/match"
	"github.com/didactus/didactus/internal/recommend"
)

var validate = validator.New()

// listParams are the shared query parameters of the two ranking endpoints.
type listParams struct {
	SubjectID string `validate:"required,max=128"`
	Limit     int    `validate:"min=0,max=100"`
}

func parseListParams(r *http.Request, idParam string) (listParams, error) {
	p := listParams{SubjectID: chi.URLParam(r, idParam)}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return p, faults.InvalidArgument("limit %q is not an integer", raw)
		}
		p.Limit = limit
	}
	if err := validate.Struct(p); err != nil {
		return p, faults.InvalidArgument("invalid request parameters: %v", err)
	}
	return p, nil
}

type rankResponse struct {
	RequestID string `json:"request_id"`
	*recommend.Result
}

func (rt *Router) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r, "learnerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.ranker.Recommend(r.Context(), p.SubjectID, p.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{
		RequestID: logging.RequestIDFromContext(r.Context()),
		Result:    res,
	})
}

type matchResponse struct {
	RequestID string `json:"request_id"`
	*match.Result
}

func (rt *Router) handleMentorMatches(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r, "menteeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.matcher.Match(r.Context(), p.SubjectID, p.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{
		RequestID: logging.RequestIDFromContext(r.Context()),
		Result:    res,
	})
}

type snapshotResponse struct {
	*analytics.Snapshot
	Stale bool `json:"stale"`
}

func (rt *Router) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	family, err := analytics.ParseFamily(chi.URLParam(r, "family"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := rt.snapshots.Current(family)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, Stale: snap.Stale()})
}

type refreshResponse struct {
	Family     string `json:"family"`
	SnapshotID int64  `json:"snapshot_id"`
}

func (rt *Router) handleRefresh(w http.ResponseWriter, r *http.Request) {
	family, err := analytics.ParseFamily(chi.URLParam(r, "family"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	refresher, ok := rt.refreshers[family]
	if !ok {
		writeError(w, r, faults.NotFound("no refresher for family %s", family))
		return
	}
	if err := refresher.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := rt.snapshots.Current(family)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Family: string(family), SnapshotID: snap.ID})
}

type healthResponse struct {
	Status    string           `json:"status"`
	Snapshots map[string]int64 `json:"snapshots,omitempty"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshots := map[string]int64{}
	for _, fam := range analytics.Families() {
		if snap, err := rt.snapshots.Current(fam); err == nil {
			snapshots[string(fam)] = snap.ID
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Snapshots: snapshots})
}

func (rt *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReady reports ready once every analytics family has published a
// snapshot. Load balancers should gate traffic on this, not on liveness.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	snapshots := map[string]int64{}
	for _, fam := range analytics.Families() {
		snap, err := rt.snapshots.Current(fam)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting", Snapshots: snapshots})
			return
		}
		snapshots[string(fam)] = snap.ID
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Snapshots: snapshots})
}
