// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package faults defines the error taxonomy shared by the ranking, matching,
// profile, and analytics components.
//
// Each taxonomy entry is a sentinel error; constructors wrap a descriptive
// message around the sentinel so callers can classify with errors.Is or
// KindOf while still seeing the full context in logs.
package faults

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy entry.
var (
	// ErrNotFound indicates an unknown learner, mentee, mentor, or content ID.
	// Surfaced to the caller, never retried.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable indicates a backing store could not be reached.
	// Callers may retry with bounded backoff; the engine falls back to
	// last-known-good cached data where one exists.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidArgument indicates an out-of-range limit or malformed target
	// spec. Surfaced immediately, never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeadlineExceeded indicates a caller-supplied deadline expired.
	// Partial results are discarded, never returned.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrSnapshotValidation indicates a candidate analytics snapshot failed
	// sanity checks. Internal to the refresher; the previous snapshot is
	// retained and ranking callers never see this error.
	ErrSnapshotValidation = errors.New("snapshot validation failed")
)

// Kind classifies an error into the taxonomy.
type Kind int

const (
	// KindUnknown is any error outside the taxonomy.
	KindUnknown Kind = iota
	// KindNotFound corresponds to ErrNotFound.
	KindNotFound
	// KindUpstreamUnavailable corresponds to ErrUpstreamUnavailable.
	KindUpstreamUnavailable
	// KindInvalidArgument corresponds to ErrInvalidArgument.
	KindInvalidArgument
	// KindDeadlineExceeded corresponds to ErrDeadlineExceeded.
	KindDeadlineExceeded
	// KindSnapshotValidation corresponds to ErrSnapshotValidation.
	KindSnapshotValidation
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindDeadlineExceeded:
		return "deadline_exceeded"
	case KindSnapshotValidation:
		return "snapshot_validation_failed"
	default:
		return "unknown"
	}
}

// NotFound returns an error wrapping ErrNotFound.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// UpstreamUnavailable returns an error wrapping ErrUpstreamUnavailable.
func UpstreamUnavailable(format string, args ...any) error {
	return wrap(ErrUpstreamUnavailable, format, args...)
}

// InvalidArgument returns an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return wrap(ErrInvalidArgument, format, args...)
}

// DeadlineExceeded returns an error wrapping ErrDeadlineExceeded.
func DeadlineExceeded(format string, args ...any) error {
	return wrap(ErrDeadlineExceeded, format, args...)
}

// SnapshotValidation returns an error wrapping ErrSnapshotValidation.
func SnapshotValidation(format string, args ...any) error {
	return wrap(ErrSnapshotValidation, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// KindOf classifies err. Context cancellation errors map to
// KindDeadlineExceeded so transport layers can report them uniformly.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindDeadlineExceeded
	case errors.Is(err, ErrSnapshotValidation):
		return KindSnapshotValidation
	default:
		return KindUnknown
	}
}
