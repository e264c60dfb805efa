// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"sync"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/slotpool"
	"github.com/arapat/sparrow/stats"
	"github.com/arapat/sparrow/stratum"
	"github.com/arapat/sparrow/weight"
	"golang.org/x/sync/errgroup"
)

// Store is the stratified store: the collection of weight-bucketed
// strata, the weights table summing each bucket's total weight, the
// assigner that routes rescored examples into buckets, and the sampler
// that draws a bias-corrected stream out of them (spec.md §4.3).
//
// A Store is driven by a single call to Run; strata are created lazily
// as the assigner first encounters each bucket index.
type Store struct {
	pool               *slotpool.Pool
	numExamplesPerSlot int
	queueDepth         int
	clampStreakLimit   int
	weightFn           weight.Func
	model              *model.Latest

	Weights *WeightsTable

	// ClampEvents counts every weight.Clamp correction observed by the
	// assigner or the sampler, for observability (spec.md §7).
	ClampEvents stats.Int

	// UpdatedExamplesQueue carries examples that need (re)bucketing: new
	// arrivals from the caller and rescored examples looped back by the
	// sampler.
	UpdatedExamplesQueue chan example.ScoredExample

	// SampledExamplesQueue carries the sampler's output stream, destined
	// for the buffer loader.
	SampledExamplesQueue chan example.SampledExample

	mu     sync.Mutex
	strata map[int32]*stratum.Stratum
	g      *errgroup.Group
	runCtx context.Context
}

// New returns a Store backed by pool. weightFn computes an example's
// importance weight from its label and current score; model is the
// shared latest-model handoff the sampler rescores against.
// queueDepth bounds UpdatedExamplesQueue, SampledExamplesQueue, and
// every stratum's InQueue/OutQueue. clampStreakLimit bounds how many
// consecutive weight.Clamp corrections the assigner tolerates before
// failing the run (spec.md §7).
func New(pool *slotpool.Pool, numExamplesPerSlot, queueDepth, clampStreakLimit int, weightFn weight.Func, latest *model.Latest) *Store {
	return &Store{
		pool:                 pool,
		numExamplesPerSlot:   numExamplesPerSlot,
		queueDepth:           queueDepth,
		clampStreakLimit:     clampStreakLimit,
		weightFn:             weightFn,
		model:                latest,
		Weights:              NewWeightsTable(),
		UpdatedExamplesQueue: make(chan example.ScoredExample, queueDepth),
		SampledExamplesQueue: make(chan example.SampledExample, queueDepth),
		strata:               make(map[int32]*stratum.Stratum),
	}
}

// Run launches the assigner, the sampler, and every stratum's workers,
// and blocks until ctx is canceled or one of them fails.
func (s *Store) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.mu.Lock()
	s.g = g
	s.runCtx = ctx
	s.mu.Unlock()

	a := &assigner{store: s}
	sm := newSampler(s)
	g.Go(func() error { return a.run(ctx) })
	g.Go(func() error { return sm.run(ctx) })
	return g.Wait()
}

// stratumFor returns the Stratum for idx, creating and launching it on
// first use. Creating a stratum mid-Run is safe: it is started under
// the same errgroup and context Run itself is using.
func (s *Store) stratumFor(idx int32) *stratum.Stratum {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.strata[idx]; ok {
		return st
	}
	st := stratum.New(int(idx), s.pool, s.numExamplesPerSlot, s.queueDepth)
	s.strata[idx] = st
	g, ctx := s.g, s.runCtx
	g.Go(func() error { return st.Run(ctx) })
	return st
}

// snapshotStrata returns a copy of the bucket-index-to-Stratum map for
// every bucket that currently has a Stratum. The sampler's weighted
// roulette draw reads Weights.Snapshot, not this.
func (s *Store) snapshotStrata() map[int32]*stratum.Stratum {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int32]*stratum.Stratum, len(s.strata))
	for idx, st := range s.strata {
		out[idx] = st
	}
	return out
}
