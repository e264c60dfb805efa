// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bufferloader implements the double-buffered in-memory sample
// set the booster reads from: a front buffer serving batches while a
// back buffer refills asynchronously from the sampler's output stream
// (spec.md §4.4).
package bufferloader

import (
	"context"
	"math/rand"
	"sync"

	"github.com/arapat/sparrow/ctxsync"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/weight"
	"gonum.org/v1/gonum/floats"
)

// Loader is a double-buffered circular sample of Size SampledExamples.
// The zero value is not usable; construct with New.
type Loader struct {
	size      int
	batchSize int
	weightFn  weight.Func
	in        <-chan example.SampledExample
	rng       *rand.Rand

	mu        sync.Mutex
	cond      *ctxsync.Cond
	front     []example.SampledExample
	frontPos  int
	back      []example.SampledExample
	backReady bool
}

// New returns a Loader that serves batches of batchSize from a front
// buffer of size examples, refilled from in.
func New(size, batchSize int, weightFn weight.Func, in <-chan example.SampledExample) *Loader {
	l := &Loader{
		size:      size,
		batchSize: batchSize,
		weightFn:  weightFn,
		in:        in,
		rng:       rand.New(rand.NewSource(1)),
	}
	l.cond = ctxsync.NewCond(&l.mu)
	return l
}

// Run drives the filler: it accumulates Size examples from in, shuffles
// them, waits for the previous back buffer to be swapped into front, and
// then hands the result to the back buffer. It blocks until ctx is
// canceled.
func (l *Loader) Run(ctx context.Context) error {
	for {
		buf := make([]example.SampledExample, 0, l.size)
		for len(buf) < l.size {
			select {
			case ex := <-l.in:
				buf = append(buf, ex)
			case <-ctx.Done():
				return nil
			}
		}
		l.rng.Shuffle(len(buf), func(i, j int) { buf[i], buf[j] = buf[j], buf[i] })

		l.mu.Lock()
		for l.backReady {
			if err := l.cond.Wait(ctx); err != nil {
				l.mu.Unlock()
				return nil
			}
		}
		l.back = buf
		l.backReady = true
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// GetNextBatch returns the next BatchSize-sized slice of the front
// buffer, treating it as circular. If the back buffer is ready, it is
// swapped into front first (front↔back, clearing the ready flag) so the
// caller always reads the most recently completed sample once one
// exists. GetNextBatch returns nil if no sample has been loaded yet.
func (l *Loader) GetNextBatch() []example.SampledExample {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.backReady {
		l.front, l.back = l.back, l.front
		l.frontPos = 0
		l.backReady = false
		l.cond.Broadcast()
	}
	if len(l.front) == 0 {
		return nil
	}
	batch := make([]example.SampledExample, l.batchSize)
	for i := range batch {
		batch[i] = l.front[l.frontPos]
		l.frontPos = (l.frontPos + 1) % len(l.front)
	}
	return batch
}

// UpdateScores rescores every example in the front buffer against the
// trees m added since each example's LastTreeIndex. It must be called
// after the booster appends a tree so the front buffer never drifts
// stale relative to the published model.
func (l *Loader) UpdateScores(m model.Model) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.front {
		ex := &l.front[i]
		ex.LastScore += m.ScoreRange(ex.Features, ex.LastTreeIndex)
		ex.LastTreeIndex = uint32(m.Len())
	}
	l.cond.Broadcast()
}

// PeekESS returns the front buffer's current normalized Kish effective
// sample size without blocking.
func (l *Loader) PeekESS() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.essLocked()
}

// GetESS blocks until the front buffer's ESS is at least threshold, or
// ctx is done. Pass a non-positive threshold to return immediately.
func (l *Loader) GetESS(ctx context.Context, threshold float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.essLocked() < threshold {
		if err := l.cond.Wait(ctx); err != nil {
			return 0, err
		}
	}
	return l.essLocked(), nil
}

func (l *Loader) essLocked() float64 {
	n := len(l.front)
	if n == 0 {
		return 0
	}
	weights := make([]float64, n)
	for i, ex := range l.front {
		weights[i] = float64(ex.Weight(l.weightFn))
	}
	sumW := floats.Sum(weights)
	sumW2 := floats.Dot(weights, weights)
	if sumW2 == 0 {
		return 0
	}
	return (sumW * sumW) / (float64(n) * sumW2)
}
