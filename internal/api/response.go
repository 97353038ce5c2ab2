// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package api is the HTTP surface of the engine: recommendation and
// mentor-match queries, analytics snapshot reads and manual refresh
// triggers, plus health and Prometheus endpoints.
package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/logging"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the fault taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := faults.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case faults.KindNotFound:
		status = http.StatusNotFound
	case faults.KindInvalidArgument:
		status = http.StatusBadRequest
	case faults.KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	case faults.KindDeadlineExceeded:
		status = http.StatusGatewayTimeout
	case faults.KindSnapshotValidation:
		status = http.StatusUnprocessableEntity
	}

	requestID := logging.RequestIDFromContext(r.Context())
	logger := logging.Ctx(r.Context())
	if status >= 500 {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String(), RequestID: requestID})
}
