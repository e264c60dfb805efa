// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/slotpool"
)

func TestStratumIndexScenario(t *testing.T) {
	cases := []struct {
		w    float32
		want int32
	}{
		{0.7, -1},
		{1.0, 0},
		{3.5, 1},
		{16.0, 4},
	}
	for _, c := range cases {
		if got := StratumIndex(c.w); got != c.want {
			t.Errorf("StratumIndex(%v) = %d, want %d", c.w, got, c.want)
		}
	}
}

func TestStratumIndexBucketBounds(t *testing.T) {
	for _, w := range []float32{0.001, 0.5, 1, 2.5, 7, 100, 100000} {
		idx := StratumIndex(w)
		lo := math.Pow(2, float64(idx))
		hi := math.Pow(2, float64(idx+1))
		if float64(w) < lo || float64(w) >= hi {
			t.Errorf("weight %v not within bucket %d's bounds [%v, %v)", w, idx, lo, hi)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	pool, err := slotpool.Create(filepath.Join(t.TempDir(), "slots"), 16, 4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pool.Close() })
	weightFn := func(label int8, score float32) float32 {
		return float32(math.Exp(float64(-float32(label) * score)))
	}
	return New(pool, 4, 8, 50, weightFn, new(model.Latest))
}

// TestStoreWeightNeverNegative exercises invariant 5 of spec.md §8: the
// weights table never goes negative under normal assign/sample churn.
func TestStoreWeightNeverNegative(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	const n = 40
	for i := 0; i < n; i++ {
		s.UpdatedExamplesQueue <- example.ScoredExample{
			LabeledData: example.LabeledData{Features: []float32{float32(i)}, Label: 1},
		}
	}

	deadline := time.After(2 * time.Second)
	received := 0
	for received < n {
		select {
		case <-s.SampledExamplesQueue:
			received++
		case <-deadline:
			t.Fatalf("only received %d/%d sampled examples", received, n)
		}
	}

	for idx, w := range s.Weights.Snapshot() {
		if w < 0 {
			t.Errorf("bucket %d has negative weight %v", idx, w)
		}
	}
}

// TestStoreCreatesStratumOnFirstUse exercises the assigner's "creates a
// new Stratum on first use of an index" rule (spec.md §4.3.1).
func TestStoreCreatesStratumOnFirstUse(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.UpdatedExamplesQueue <- example.ScoredExample{
		LabeledData: example.LabeledData{Features: []float32{0}, Label: 1},
	}

	select {
	case <-s.SampledExamplesQueue:
	case <-time.After(time.Second):
		t.Fatal("no sampled example emitted after a single arrival")
	}

	if len(s.snapshotStrata()) == 0 {
		t.Fatal("no stratum was created")
	}
}

// TestStoreEscalatesPersistentClamping exercises spec.md §7: a weight
// function that produces nothing but non-finite weights is treated as
// misconfigured once the clamp streak exceeds the configured limit, and
// Run returns an errors.Invalid failure rather than running forever.
func TestStoreEscalatesPersistentClamping(t *testing.T) {
	pool, err := slotpool.Create(filepath.Join(t.TempDir(), "slots"), 16, 4096)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pool.Close() })
	brokenWeightFn := func(label int8, score float32) float32 {
		return float32(math.NaN())
	}
	const clampStreakLimit = 3
	s := New(pool, 4, 8, clampStreakLimit, brokenWeightFn, new(model.Latest))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// queueDepth is 8, comfortably above the streak limit, so every send
	// below is non-blocking even if the assigner has already exited.
	for i := 0; i < clampStreakLimit+2; i++ {
		s.UpdatedExamplesQueue <- example.ScoredExample{
			LabeledData: example.LabeledData{Features: []float32{float32(i)}, Label: 1},
		}
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return an error for persistent clamping")
		}
	case <-ctx.Done():
		t.Fatal("Run did not escalate before the context timed out")
	}

	if s.ClampEvents.Get() == 0 {
		t.Error("ClampEvents was never incremented")
	}
}
