// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sparrow

import (
	"context"

	"github.com/arapat/sparrow/booster"
	"github.com/arapat/sparrow/bufferloader"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/store"
	"golang.org/x/sync/errgroup"
)

// RunTraining assembles the disk slot pool, the stratified store, the
// buffer loader and the boosting driver into one training job, feeds
// cfg.Examples into the store, and returns once the booster has
// adopted cfg.TotalIterations trees (or ctx is canceled, or a component
// fails fatally).
func RunTraining(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	pool, err := newSlotPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	latest := new(model.Latest)
	st := store.New(pool, cfg.NumExamplesPerSlot, cfg.queueDepth(), cfg.clampStreakLimit(), cfg.WeightFunc, latest)
	loader := bufferloader.New(cfg.Size, cfg.BatchSize, cfg.WeightFunc, st.SampledExamplesQueue)
	b := booster.New(cfg.Candidates, cfg.Gamma, cfg.Delta, cfg.TotalIterations, cfg.Size, cfg.EssThreshold, cfg.WeightFunc, loader, latest)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.Run(gctx) })
	g.Go(func() error { return loader.Run(gctx) })
	g.Go(func() error { return feedExamples(gctx, cfg.Examples, st.UpdatedExamplesQueue) })
	g.Go(func() error {
		err := b.Run(gctx)
		// The booster reaching TotalIterations is spec.md §5's shutdown
		// marker: cancel the rest of the pipeline now rather than
		// waiting for it to notice closed input on its own.
		cancel()
		return err
	})
	return g.Wait()
}

// feedExamples drains in into out as freshly-created ScoredExamples
// (LastScore = 0, LastTreeIndex = 0, spec.md §3's lifecycle). It
// returns once in is closed; examples already routed into the store
// keep cycling through the sampler/assigner loop independently.
func feedExamples(ctx context.Context, in <-chan example.LabeledData, out chan<- example.ScoredExample) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ex, ok := <-in:
			if !ok {
				return nil
			}
			select {
			case out <- example.ScoredExample{LabeledData: ex}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
