// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"not found", NotFound("learner %s", "l-1"), KindNotFound},
		{"upstream", UpstreamUnavailable("progress store"), KindUpstreamUnavailable},
		{"invalid argument", InvalidArgument("limit %d out of range", 500), KindInvalidArgument},
		{"deadline", DeadlineExceeded("ranking pass"), KindDeadlineExceeded},
		{"context deadline", context.DeadlineExceeded, KindDeadlineExceeded},
		{"context canceled", context.Canceled, KindDeadlineExceeded},
		{"snapshot validation", SnapshotValidation("completion rate 140"), KindSnapshotValidation},
		{"plain error", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrappingPreservesSentinel(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("learner %s", "l-2"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("double-wrapped error lost its sentinel")
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %v, want KindNotFound", KindOf(err))
	}
}

func TestMessagesIncludeContext(t *testing.T) {
	err := NotFound("learner %s", "l-3")
	want := "learner l-3: not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindUnknown:             "unknown",
		KindNotFound:            "not_found",
		KindUpstreamUnavailable: "upstream_unavailable",
		KindInvalidArgument:     "invalid_argument",
		KindDeadlineExceeded:    "deadline_exceeded",
		KindSnapshotValidation:  "snapshot_validation_failed",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
