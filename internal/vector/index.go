// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package vector provides an in-memory similarity index over pre-computed
// embedding vectors. The engine never generates embeddings; it consumes
// vectors produced by an external embedding service and answers
// "k most similar to X" queries with exact cosine similarity.
//
// The index is exhaustive rather than approximate: candidate sets in this
// system are bounded by the published-content catalog, small enough that a
// scan beats the operational cost of an ANN structure. Results are fully
// deterministic, including tie order.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/didactus/didactus/internal/faults"
)

// Hit is a single similarity search result.
type Hit struct {
	// ID identifies the matched vector (content or profile ID).
	ID string

	// Similarity is the cosine similarity in [-1, 1].
	Similarity float64
}

// Index is a thread-safe exact nearest-neighbour index.
// The zero value is not usable; call NewIndex.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float32
}

// NewIndex creates an index for vectors of the given dimensionality.
func NewIndex(dim int) *Index {
	return &Index{
		dim:     dim,
		vectors: make(map[string][]float32),
	}
}

// Dim returns the configured vector dimensionality.
func (ix *Index) Dim() int {
	return ix.dim
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Upsert inserts or replaces the vector for id.
// The vector is copied; callers may reuse the slice.
func (ix *Index) Upsert(id string, v []float32) error {
	if id == "" {
		return faults.InvalidArgument("vector id must not be empty")
	}
	if len(v) != ix.dim {
		return faults.InvalidArgument("vector %s has dimension %d, index expects %d", id, len(v), ix.dim)
	}

	cp := make([]float32, len(v))
	copy(cp, v)

	ix.mu.Lock()
	ix.vectors[id] = cp
	ix.mu.Unlock()
	return nil
}

// Get returns a copy of the stored vector for id.
func (ix *Index) Get(id string) ([]float32, bool) {
	ix.mu.RLock()
	v, ok := ix.vectors[id]
	ix.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := make([]float32, len(v))
	copy(cp, v)
	return cp, true
}

// Search returns the k vectors most similar to query, ordered by descending
// cosine similarity with ties broken by ascending ID for determinism.
// Fewer than k hits is a valid result, not an error.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, faults.InvalidArgument("query has dimension %d, index expects %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, faults.InvalidArgument("k must be positive, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.vectors))
	for id, v := range ix.vectors {
		hits = append(hits, Hit{ID: id, Similarity: Cosine(query, v)})
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine computes the cosine similarity between two vectors of equal length.
// Returns 0 when either vector has zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean returns the element-wise mean of the given vectors.
// Returns nil for an empty input. Vectors must share a length.
func Mean(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float32, len(vs[0]))
	for _, v := range vs {
		for i := range out {
			out[i] += v[i]
		}
	}
	n := float32(len(vs))
	for i := range out {
		out[i] /= n
	}
	return out
}
