// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"fmt"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/stats"
	"github.com/arapat/sparrow/weight"
	"github.com/grailbio/base/errors"
)

// assigner consumes UpdatedExamplesQueue and routes each example into
// its weight bucket (spec.md §4.3.1). There is exactly one assigner per
// Store, so clampStreak needs no synchronization beyond the stats.Int
// it is stored in.
type assigner struct {
	store       *Store
	clampStreak stats.Int
}

func (a *assigner) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ex, ok := <-a.store.UpdatedExamplesQueue:
			if !ok {
				return nil
			}
			if err := a.assign(ctx, ex); err != nil {
				return err
			}
		}
	}
}

func (a *assigner) assign(ctx context.Context, ex example.ScoredExample) error {
	w, wasClamped := weight.Clamp(ex.Weight(a.store.weightFn))
	if err := a.trackClamp(wasClamped); err != nil {
		return err
	}
	idx := StratumIndex(w)
	st := a.store.stratumFor(idx)
	select {
	case st.InQueue <- ex:
	case <-ctx.Done():
		return nil
	}
	a.store.Weights.Add(idx, float64(w))
	return nil
}

// trackClamp records a weight.Clamp outcome and escalates once
// clampStreak, the number of consecutive clamped weights the assigner
// has seen, exceeds the configured limit: a persistent stream of
// non-finite or out-of-range weights means WeightFunc is misconfigured,
// not a transient NaN (spec.md §7).
func (a *assigner) trackClamp(wasClamped bool) error {
	if !wasClamped {
		a.clampStreak.Set(0)
		return nil
	}
	a.store.ClampEvents.Add(1)
	a.clampStreak.Add(1)
	if int(a.clampStreak.Get()) > a.store.clampStreakLimit {
		return errors.E(errors.Invalid, fmt.Sprintf("store: weight function produced %d consecutive clamped weights; it appears misconfigured", a.store.clampStreakLimit))
	}
	return nil
}
