// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package scoring is the shared multi-factor scoring core used by both the
// recommendation ranker and the mentor matcher. One parameterized blend
// replaces per-persona forks of the scoring function: callers supply factor
// values and weights, the package produces the final scalar plus the ordered
// breakdown used for explainability.
package scoring

// ScaleMax is the upper bound of every normalized sub-score.
const ScaleMax = 10.0

// Factor is one contributing sub-score in a candidate's breakdown.
type Factor struct {
	// Name identifies the sub-score (e.g. "similarity", "gap_alignment").
	Name string `json:"name"`

	// Weight is the configured blend weight for this factor.
	Weight float64 `json:"weight"`

	// Value is the normalized sub-score in [0, ScaleMax].
	Value float64 `json:"value"`

	// Contribution is Weight * Value, the factor's share of the final score.
	Contribution float64 `json:"contribution"`
}

// Blend computes the weighted final score from factor values and fills in
// each factor's contribution. The input order is preserved in the breakdown.
func Blend(factors []Factor) float64 {
	var total float64
	for i := range factors {
		factors[i].Contribution = factors[i].Weight * factors[i].Value
		total += factors[i].Contribution
	}
	return total
}

// CosineToScale rescales a cosine similarity from [-1, 1] to [0, ScaleMax].
func CosineToScale(sim float64) float64 {
	return Clamp((sim+1)/2*ScaleMax, 0, ScaleMax)
}

// FractionToScale rescales a fraction in [0, 1] to [0, ScaleMax].
func FractionToScale(f float64) float64 {
	return Clamp(f*ScaleMax, 0, ScaleMax)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
