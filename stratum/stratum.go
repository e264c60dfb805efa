// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stratum implements one weight-bucket's worth of storage: a
// bounded in-queue of examples arriving to be persisted, a bounded
// out-queue of examples reloaded for sampling, and the disk slots this
// stratum currently owns (spec.md §4.2).
package stratum

import (
	"context"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/slotpool"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
)

// Stratum owns one weight bucket's examples. InQueue and OutQueue are
// SPSC in the steady state; the bypass edge case (see runEnqueue) makes
// OutQueue's producer side effectively two goroutines for as long as a
// stratum has no disk backlog, which spec.md explicitly allows ("order
// is not promised globally" across the bypass and disk-dequeue paths).
type Stratum struct {
	Index int

	InQueue  chan example.ScoredExample
	OutQueue chan example.ScoredExample

	pool               *slotpool.Pool
	numExamplesPerSlot int
	slotIDs            chan slotpool.SlotID
}

// New returns a Stratum backed by pool, with the given channel depths.
// numExamplesPerSlot is the batch size the enqueue side accumulates
// before writing a disk slot.
func New(index int, pool *slotpool.Pool, numExamplesPerSlot, queueDepth int) *Stratum {
	return &Stratum{
		Index:              index,
		InQueue:            make(chan example.ScoredExample, queueDepth),
		OutQueue:           make(chan example.ScoredExample, queueDepth),
		pool:               pool,
		numExamplesPerSlot: numExamplesPerSlot,
		// A stratum can never own more slots than the pool has, so that
		// bounds the backlog queue without needing an unbounded buffer.
		slotIDs: make(chan slotpool.SlotID, pool.NumSlots()),
	}
}

// Run launches the enqueue and dequeue workers and blocks until ctx is
// canceled or one of them fails. A disk I/O error from either worker is
// fatal to the stratum, per spec.md §4.2's failure semantics; Run wraps
// and returns it so the caller (the stratified store) can abort the job.
func (s *Stratum) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runEnqueue(ctx) })
	g.Go(func() error { return s.runDequeue(ctx) })
	return g.Wait()
}

// runEnqueue is the sole consumer of InQueue. It is also responsible for
// the bypass edge case: design note in spec.md §9 requires folding the
// bypass check into InQueue's single consumer so it can never race with
// the staging buffer it is itself filling.
func (s *Stratum) runEnqueue(ctx context.Context) error {
	staging := make(example.Batch, 0, s.numExamplesPerSlot)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ex, ok := <-s.InQueue:
			if !ok {
				return nil
			}
			if len(staging) == 0 && len(s.slotIDs) == 0 && len(s.InQueue) < s.numExamplesPerSlot {
				select {
				case s.OutQueue <- ex:
					continue
				case <-ctx.Done():
					return nil
				}
			}
			staging = append(staging, ex)
			if len(staging) < s.numExamplesPerSlot {
				continue
			}
			if err := s.flush(ctx, staging); err != nil {
				return err
			}
			staging = staging[:0]
		}
	}
}

func (s *Stratum) flush(ctx context.Context, batch example.Batch) error {
	id, err := s.pool.ReserveFree(ctx)
	if err != nil {
		return err
	}
	if err := s.pool.Write(ctx, id, batch); err != nil {
		log.Error.Printf("stratum %d: fatal write error: %v", s.Index, err)
		return errors.E(errors.Fatal, err)
	}
	select {
	case s.slotIDs <- id:
	case <-ctx.Done():
	}
	return nil
}

// runDequeue pops the oldest owned slot, reads and frees it, and feeds
// its examples to OutQueue one at a time.
func (s *Stratum) runDequeue(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-s.slotIDs:
			batch, err := s.pool.ReadAndFree(ctx, id)
			if err != nil {
				log.Error.Printf("stratum %d: fatal read error: %v", s.Index, err)
				return errors.E(errors.Fatal, err)
			}
			for _, ex := range batch {
				select {
				case s.OutQueue <- ex:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
