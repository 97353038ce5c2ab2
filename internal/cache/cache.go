// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package cache provides a thread-safe TTL cache with versioned
// compare-and-swap writes and per-key invalidation.
//
// The versioned write path exists for the learner-state cache: the profile
// aggregator is the only writer, but two rebuilds of the same key can race,
// and a stale rebuild must never clobber a fresher one. Expired entries are
// kept until overwritten so readers can fall back to last-known-good data
// when the upstream store is unreachable.
package cache

import (
	"sync"
	"time"
)

// Stats holds cache efficiency counters.
type Stats struct {
	Hits      int64
	Misses    int64
	StaleHits int64
	Entries   int
}

type entry[V any] struct {
	value     V
	version   int64
	expiresAt time.Time
}

// Cache is a TTL cache keyed by string. The zero value is not usable;
// call New.
type Cache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]

	hits      int64
	misses    int64
	staleHits int64
}

// New creates a cache whose entries expire after ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// GetStale returns the value for key even when expired. The second return
// reports presence, the third freshness. Used for last-known-good fallback
// when a rebuild fails.
func (c *Cache[V]) GetStale(key string) (V, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false, false
	}
	fresh := !time.Now().After(e.expiresAt)
	if fresh {
		c.hits++
	} else {
		c.staleHits++
	}
	return e.value, true, fresh
}

// CompareAndSet stores value under key only when version is strictly newer
// than the stored entry's version. Returns whether the write happened.
func (c *Cache[V]) CompareAndSet(key string, value V, version int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.version >= version {
		return false
	}
	c.entries[key] = entry[V]{
		value:     value,
		version:   version,
		expiresAt: time.Now().Add(c.ttl),
	}
	return true
}

// Invalidate drops the entry for key, forcing the next read to rebuild.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// GetStats returns a point-in-time snapshot of the counters.
func (c *Cache[V]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		StaleHits: c.staleHits,
		Entries:   len(c.entries),
	}
}

// HitRate returns the fresh-hit rate as a percentage.
func (c *Cache[V]) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses + s.StaleHits
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
