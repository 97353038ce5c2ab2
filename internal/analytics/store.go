// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

package analytics

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/didactus/didactus/internal/faults"
	"github.com/didactus/didactus/internal/logging"
	"github.com/didactus/didactus/internal/metrics"
)

const snapshotKeyPrefix = "snapshot:"

// Store holds the current snapshot per family behind an atomic pointer and
// persists published snapshots to Badger so a restart serves the last good
// generation instead of an empty one.
type Store struct {
	progress   atomic.Pointer[Snapshot]
	market     atomic.Pointer[Snapshot]
	mentorship atomic.Pointer[Snapshot]

	nextID atomic.Int64

	db     *badger.DB // nil disables persistence
	logger zerolog.Logger
}

// NewStore creates a snapshot store. db may be nil for ephemeral use.
func NewStore(db *badger.DB) *Store {
	return &Store{
		db:     db,
		logger: logging.Component("analytics.store"),
	}
}

// LoadPersisted restores the newest persisted snapshot per family. Missing
// families are left empty; a corrupt record is skipped with a warning.
func (s *Store) LoadPersisted() error {
	if s.db == nil {
		return nil
	}
	return s.db.View(func(txn *badger.Txn) error {
		for _, fam := range Families() {
			item, err := txn.Get([]byte(snapshotKeyPrefix + string(fam)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read snapshot %s: %w", fam, err)
			}
			var snap Snapshot
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				s.logger.Warn().Err(err).Str("family", string(fam)).
					Msg("Skipping corrupt persisted snapshot")
				continue
			}
			s.pointer(fam).Store(&snap)
			// NextID pre-increments, so the counter rests on the last used ID.
			if snap.ID > s.nextID.Load() {
				s.nextID.Store(snap.ID)
			}
			s.logger.Info().Str("family", string(fam)).Int64("snapshot_id", snap.ID).
				Time("generated_at", snap.GeneratedAt).Msg("Restored persisted snapshot")
		}
		return nil
	})
}

// Current returns the published snapshot for a family, or NotFound when no
// generation has been published yet.
func (s *Store) Current(fam Family) (*Snapshot, error) {
	snap := s.pointer(fam).Load()
	if snap == nil {
		return nil, faults.NotFound("no published snapshot for family %s", fam)
	}
	return snap, nil
}

// NextID allocates the next monotonic snapshot ID.
func (s *Store) NextID() int64 {
	return s.nextID.Add(1)
}

// Publish swaps the family pointer to snap and persists it. The swap is the
// publication point: in-flight readers keep the generation they loaded.
func (s *Store) Publish(snap *Snapshot) error {
	s.pointer(snap.Family).Store(snap)
	metrics.SnapshotVersion.WithLabelValues(string(snap.Family)).Set(float64(snap.ID))
	metrics.SnapshotAge.WithLabelValues(string(snap.Family)).Set(0)

	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKeyPrefix+string(snap.Family)), raw)
	})
	if err != nil {
		// The in-memory swap already happened; persistence is best effort.
		s.logger.Error().Err(err).Str("family", string(snap.Family)).
			Int64("snapshot_id", snap.ID).Msg("Failed to persist snapshot")
		return fmt.Errorf("persist snapshot %s: %w", snap, err)
	}
	return nil
}

// ObserveAges updates the snapshot-age gauges. Called from the refresher tick.
func (s *Store) ObserveAges() {
	for _, fam := range Families() {
		if snap := s.pointer(fam).Load(); snap != nil {
			metrics.SnapshotAge.WithLabelValues(string(fam)).Set(snap.Age().Seconds())
		}
	}
}

func (s *Store) pointer(fam Family) *atomic.Pointer[Snapshot] {
	switch fam {
	case FamilyProgress:
		return &s.progress
	case FamilyMarket:
		return &s.market
	default:
		return &s.mentorship
	}
}
