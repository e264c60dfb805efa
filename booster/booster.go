// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package booster implements the online weak-rule-selection loop: a
// fixed candidate pool of weak rules accumulates running statistics
// batch by batch, and a law-of-iterated-logarithm bound decides when a
// candidate's advantage is statistically proven enough to adopt
// (spec.md §4.5).
package booster

import (
	"context"
	"math"
	"time"

	"github.com/arapat/sparrow/bufferloader"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/stats"
	"github.com/arapat/sparrow/weight"
	"golang.org/x/sync/errgroup"
)

// WeakRule is a candidate tree split the booster scores examples
// against. Sparrow never builds or searches splits itself — that is
// the pluggable piece named in spec.md §1's Non-goals — it only calls
// Predict and, on adoption, Tree.
type WeakRule interface {
	Predict(features []float32) float32
	Tree() model.Tree
}

// candidate holds one WeakRule's running statistics, accumulated
// across batches since the last adoption or γ-shrink.
type candidate struct {
	rule WeakRule

	sumOfC        float64
	sumOfCSquared float64
	sumOfScore    float64
	sumOfWeights  float64
}

func (c *candidate) reset() {
	c.sumOfC = 0
	c.sumOfCSquared = 0
	c.sumOfScore = 0
	c.sumOfWeights = 0
}

// idlePoll bounds how long Run waits before retrying GetNextBatch when
// the loader has nothing ready yet (spec.md §8's "empty batch: loader
// blocks; learner does not advance" boundary behavior).
const idlePoll = time.Millisecond

// Booster runs the boosting driver loop described in spec.md §4.5.
type Booster struct {
	candidates []*candidate
	gamma      float64
	delta      float64
	total      int

	weightFn     weight.Func
	loader       *bufferloader.Loader
	latest       *model.Latest
	essThreshold float64

	// iterations counts trees adopted so far; clampEvents counts every
	// weight.Clamp correction observed while scoring candidates, for
	// the same observability spec.md §7 asks of the store.
	iterations  stats.Int
	clampEvents stats.Int
	sweptSize   int
	sampleSize  int
}

// New returns a Booster over rules, seeded with initial advantage
// gamma0 and bound confidence delta, that runs for total adopted
// iterations before terminating. sampleSize is the buffer loader's
// Size, used to detect a full sweep with no adoption. essThreshold is
// the minimum normalized Kish effective sample size Run waits for
// before reading each batch (spec.md §4.4's "the booster may pause and
// wait on a refill when ESS falls below a threshold"); a non-positive
// value disables the wait.
func New(rules []WeakRule, gamma0, delta float64, total, sampleSize int, essThreshold float64, weightFn weight.Func, loader *bufferloader.Loader, latest *model.Latest) *Booster {
	candidates := make([]*candidate, len(rules))
	for i, r := range rules {
		candidates[i] = &candidate{rule: r}
	}
	return &Booster{
		candidates:   candidates,
		gamma:        gamma0,
		delta:        delta,
		total:        total,
		weightFn:     weightFn,
		loader:       loader,
		latest:       latest,
		sampleSize:   sampleSize,
		essThreshold: essThreshold,
	}
}

// Iterations returns the number of trees adopted so far.
func (b *Booster) Iterations() int { return int(b.iterations.Get()) }

// ClampEvents returns the number of weight.Clamp corrections observed
// while scoring candidates so far, for observability (spec.md §7).
func (b *Booster) ClampEvents() int64 { return b.clampEvents.Get() }

// Gamma returns the booster's current target advantage.
func (b *Booster) Gamma() float64 { return b.gamma }

// Run drives the loop until total iterations have been adopted or ctx
// is canceled. Reaching total iterations is the terminal state spec.md
// §4.5 calls the "shutdown marker": Run simply returns nil, and a
// caller joining on it (e.g. via errgroup) treats the return as the
// signal to close the rest of the pipeline down.
func (b *Booster) Run(ctx context.Context) error {
	for int(b.iterations.Get()) < b.total {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		batch := b.loader.GetNextBatch()
		if batch == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idlePoll):
			}
			continue
		}
		// Having just consumed a batch, pause here rather than on the
		// next GetNextBatch call so the wait never blocks on a front
		// buffer that has never been filled (spec.md §4.4's "the
		// booster may pause and wait on a refill when ESS falls below
		// a threshold").
		if b.essThreshold > 0 {
			if _, err := b.loader.GetESS(ctx, b.essThreshold); err != nil {
				return nil
			}
		}
		if err := b.processBatch(ctx, batch); err != nil {
			return err
		}
		if b.checkAdoption() {
			continue
		}
		b.sweptSize += len(batch)
		if b.sweptSize >= b.sampleSize {
			b.shrinkGamma()
			b.sweptSize = 0
		}
	}
	return nil
}

// processBatch updates every candidate's running statistics against
// batch. Candidates are data-parallel within a batch: each owns its
// own statistics, so no candidate's update can race another's.
func (b *Booster) processBatch(ctx context.Context, batch []example.SampledExample) error {
	g, _ := errgroup.WithContext(ctx)
	gamma := b.gamma
	for _, c := range b.candidates {
		c := c
		g.Go(func() error {
			for _, ex := range batch {
				w, wasClamped := weight.Clamp(ex.Weight(b.weightFn))
				if wasClamped {
					b.clampEvents.Add(1)
				}
				y := float64(ex.Label)
				yHat := float64(c.rule.Predict(ex.Features))
				W := float64(w)
				c.sumOfScore += yHat * y * W
				c.sumOfC += yHat*y*W - 2*gamma*W
				c.sumOfCSquared += (W + 2*gamma*W) * (W + 2*gamma*W)
				c.sumOfWeights += W
			}
			return nil
		})
	}
	return g.Wait()
}

// checkAdoption scans the candidate pool for one whose SumOfC exceeds
// its statistical bound, adopting the first one found. It returns
// whether a candidate was adopted.
func (b *Booster) checkAdoption() bool {
	for _, c := range b.candidates {
		bound := computeBound(c.sumOfC, c.sumOfCSquared, b.delta)
		if c.sumOfC > bound {
			b.adopt(c)
			return true
		}
	}
	return false
}

func (b *Booster) adopt(c *candidate) {
	m := b.latest.Load().Append(c.rule.Tree())
	b.latest.Publish(m)
	b.loader.UpdateScores(m)
	for _, cand := range b.candidates {
		cand.reset()
	}
	b.sweptSize = 0
	b.iterations.Add(1)
}

// shrinkGamma implements spec.md §4.5's "no adoption after a full
// sweep" branch: find the candidate with the largest SumOfScore and
// retarget γ to 90% of its per-weight advantage, then reset every
// candidate's statistics so the retargeted bound starts fresh.
func (b *Booster) shrinkGamma() {
	var winner *candidate
	for _, c := range b.candidates {
		if winner == nil || c.sumOfScore > winner.sumOfScore {
			winner = c
		}
	}
	if winner != nil && winner.sumOfWeights > 0 {
		b.gamma = 0.9 * winner.sumOfScore / (2 * winner.sumOfWeights)
	}
	for _, c := range b.candidates {
		c.reset()
	}
}

// computeBound implements spec.md §4.5's statistical stopping bound.
// The worked example in spec.md §8(e) pins the inner clamp to e, not
// e² as the prose formula's exponent might suggest: with
// SumOfCSquared=100, SumOfC=50, δ=0.05, ratio=3 and the example
// computes ln(ln(3)) directly rather than ln(ln(e²)), so clamping the
// argument against e (guaranteeing it exceeds 1, so the outer log is
// defined) rather than e² is the implementation this package follows.
func computeBound(sumOfC, sumOfCSquared, delta float64) float64 {
	if sumOfCSquared == 0 {
		return 0
	}
	ratio := 3 * sumOfCSquared / (2 * math.Abs(sumOfC))
	inner := math.Max(ratio, math.E)
	return math.Sqrt(3 * sumOfCSquared * (2*math.Log(math.Log(inner)) + math.Log(2/delta)))
}
