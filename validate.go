// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sparrow

import (
	"context"

	"github.com/arapat/sparrow/metrics"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/serialstorage"
	"github.com/grailbio/base/errors"
)

// RunValidate starts a validation worker that evaluates every model
// published on models against storage. On each arrival it first drains
// any further already-queued publications non-blockingly, keeping only
// the latest (spec.md §9: "latest published; intermediate drops
// permitted"), then scans the test set once, producing one score per
// evalFuncs entry on the returned channel. The returned channel is
// closed when models is closed or ctx is done.
func RunValidate(ctx context.Context, cfg Config, models <-chan model.Model, storage serialstorage.Storage, evalFuncs map[string]metrics.EvalFunc) (<-chan map[string]float64, error) {
	if storage == nil {
		return nil, errors.E(errors.Invalid, "sparrow: RunValidate requires a Storage")
	}
	if len(evalFuncs) == 0 {
		return nil, errors.E(errors.Invalid, "sparrow: RunValidate requires at least one eval func")
	}

	out := make(chan map[string]float64)
	go func() {
		defer close(out)
		for {
			m, ok := recvLatest(ctx, models)
			if !ok {
				return
			}
			scores, err := evaluate(ctx, storage, m, evalFuncs)
			if err != nil {
				return
			}
			select {
			case out <- scores:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// recvLatest blocks for the first model on models, then drains any
// further ones already queued without blocking, returning only the
// most recent.
func recvLatest(ctx context.Context, models <-chan model.Model) (model.Model, bool) {
	var m model.Model
	select {
	case <-ctx.Done():
		return m, false
	case mm, ok := <-models:
		if !ok {
			return m, false
		}
		m = mm
	}
	for {
		select {
		case mm, ok := <-models:
			if !ok {
				return m, true
			}
			m = mm
		default:
			return m, true
		}
	}
}

func evaluate(ctx context.Context, storage serialstorage.Storage, m model.Model, evalFuncs map[string]metrics.EvalFunc) (map[string]float64, error) {
	if err := storage.UpdateScores(ctx, m); err != nil {
		return nil, err
	}
	n, err := storage.GetSize(ctx)
	if err != nil {
		return nil, err
	}
	data, err := storage.Read(ctx, n)
	if err != nil {
		return nil, err
	}
	scores, err := storage.GetScores(ctx)
	if err != nil {
		return nil, err
	}

	points := make([]metrics.Point, len(data))
	for i, d := range data {
		points[i] = metrics.Point{Score: scores[i], Label: d.Label}
	}

	results := make(map[string]float64, len(evalFuncs))
	for name, fn := range evalFuncs {
		results[name] = fn(points)
	}
	return results, nil
}
