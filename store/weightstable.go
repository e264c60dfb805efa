// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package store implements the stratified store: the collection of
// strata keyed by weight bucket, the lock-free weights table, the
// assigner that routes re-scored examples into buckets, and the
// sampler that draws a bias-corrected stream from them (spec.md §4.3).
package store

import (
	"sync"

	"github.com/arapat/sparrow/stats"
)

// WeightsTable maps a stratum index to the sum of example weights
// currently held in that stratum (on disk plus both of its queues).
// Reads never block writers or other readers: it is a sync.Map of
// atomic float cells, so the assigner's adds and the sampler's
// subtracts commute freely and are visible to readers without any lock
// (spec.md §4.3.3, §9).
type WeightsTable struct {
	cells sync.Map // int32 -> *stats.Float
}

// NewWeightsTable returns an empty WeightsTable.
func NewWeightsTable() *WeightsTable {
	return &WeightsTable{}
}

// Add atomically adds delta (positive from the assigner, negative from
// the sampler) to the weight sum for idx, creating the cell on first
// use.
func (t *WeightsTable) Add(idx int32, delta float64) {
	t.cell(idx).Add(delta)
}

// Get returns the current weight sum for idx, or 0 if idx has never
// been used.
func (t *WeightsTable) Get(idx int32) float64 {
	v, ok := t.cells.Load(idx)
	if !ok {
		return 0
	}
	return v.(*stats.Float).Get()
}

// Snapshot returns a point-in-time copy of every index's weight sum,
// for the sampler's weighted roulette draw. Snapshot never blocks a
// concurrent Add; the copy may be stale by the time it is used, which
// is fine since the sampler only needs an approximately-correct
// distribution (spec.md §9).
func (t *WeightsTable) Snapshot() map[int32]float64 {
	out := make(map[int32]float64)
	t.cells.Range(func(k, v interface{}) bool {
		out[k.(int32)] = v.(*stats.Float).Get()
		return true
	})
	return out
}

func (t *WeightsTable) cell(idx int32) *stats.Float {
	v, ok := t.cells.Load(idx)
	if ok {
		return v.(*stats.Float)
	}
	v, _ = t.cells.LoadOrStore(idx, new(stats.Float))
	return v.(*stats.Float)
}
