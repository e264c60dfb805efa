// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/weight"
)

// idleBackoff bounds how long the sampler sleeps when no stratum yet
// carries any weight, rather than busy-looping before the first
// examples arrive.
const idleBackoff = time.Millisecond

// sampler runs the weighted roulette / grid-rule draw of spec.md
// §4.3.2. There is exactly one sampler per Store; lastGrid is owned
// exclusively by its own goroutine, so it needs no synchronization
// (spec.md §4.3.2's "why this algorithm" note).
type sampler struct {
	store    *Store
	rng      *rand.Rand
	lastGrid map[int32]float64
}

func newSampler(s *Store) *sampler {
	return &sampler{
		store:    s,
		rng:      rand.New(rand.NewSource(1)),
		lastGrid: make(map[int32]float64),
	}
}

func (sm *sampler) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		idx, ok := sm.drawStratum()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idleBackoff):
			}
			continue
		}
		if err := sm.drawFromStratum(ctx, idx); err != nil {
			return err
		}
	}
}

// drawStratum picks a bucket index proportional to its current total
// weight, using a point-in-time WeightsTable snapshot. Keys are
// visited in sorted order so the draw is reproducible given the same
// snapshot and random stream.
func (sm *sampler) drawStratum() (int32, bool) {
	snap := sm.store.Weights.Snapshot()
	var total float64
	idxs := make([]int32, 0, len(snap))
	for idx, w := range snap {
		if w <= 0 {
			continue
		}
		total += w
		idxs = append(idxs, idx)
	}
	if total <= 0 {
		return 0, false
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	r := sm.rng.Float64() * total
	for _, idx := range idxs {
		r -= snap[idx]
		if r <= 0 {
			return idx, true
		}
	}
	return idxs[len(idxs)-1], true
}

// drawFromStratum opens a read loop on idx's stratum, rescoring and
// re-bucketing every example it reads until the per-stratum grid
// accumulator clears the bucket's grid size, then emits the winning
// example (possibly more than once, if the accumulator overshot by
// more than one grid unit).
func (sm *sampler) drawFromStratum(ctx context.Context, idx int32) error {
	st := sm.store.stratumFor(idx)
	grid := gridSize(idx)

	var winner example.SampledExample
	for {
		var ex example.ScoredExample
		select {
		case ex = <-st.OutQueue:
		case <-ctx.Done():
			return nil
		}

		oldWeight, wasClamped := weight.Clamp(ex.Weight(sm.store.weightFn))
		if wasClamped {
			sm.store.ClampEvents.Add(1)
		}
		m := sm.store.model.Load()
		ex.LastScore += m.ScoreRange(ex.Features, ex.LastTreeIndex)
		ex.LastTreeIndex = uint32(m.Len())

		sm.store.Weights.Add(idx, -float64(oldWeight))
		select {
		case sm.store.UpdatedExamplesQueue <- ex:
		case <-ctx.Done():
			return nil
		}

		newWeight, wasClamped := weight.Clamp(ex.Weight(sm.store.weightFn))
		if wasClamped {
			sm.store.ClampEvents.Add(1)
		}
		sm.lastGrid[idx] += float64(newWeight)
		if sm.lastGrid[idx] >= grid {
			winner = example.SampledExample{
				LabeledData:      ex.LabeledData,
				SampledScore:     ex.LastScore,
				SampledTreeIndex: ex.LastTreeIndex,
				LastScore:        ex.LastScore,
				LastTreeIndex:    ex.LastTreeIndex,
			}
			break
		}
	}

	for sm.lastGrid[idx] >= grid {
		select {
		case sm.store.SampledExamplesQueue <- winner:
		case <-ctx.Done():
			return nil
		}
		sm.lastGrid[idx] -= grid
	}
	return nil
}
