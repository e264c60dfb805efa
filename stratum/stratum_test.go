// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stratum

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/slotpool"
)

func newTestPool(t *testing.T, numSlots, slotBytes int) *slotpool.Pool {
	t.Helper()
	p, err := slotpool.Create(filepath.Join(t.TempDir(), "slots"), numSlots, slotBytes)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func labeled(label int8) example.ScoredExample {
	return example.ScoredExample{LabeledData: example.LabeledData{Features: []float32{1, 2, 3}, Label: label}}
}

func TestStratumBypass(t *testing.T) {
	pool := newTestPool(t, 4, 1024)
	s := New(0, pool, 8, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.InQueue <- labeled(1)
	select {
	case got := <-s.OutQueue:
		if got.Label != 1 {
			t.Errorf("got label %v, want 1", got.Label)
		}
	case <-time.After(time.Second):
		t.Fatal("bypass did not deliver example to OutQueue")
	}
}

func TestStratumDrainsThroughDiskPath(t *testing.T) {
	pool := newTestPool(t, 8, 4096)
	const (
		slotSize = 4
		total    = 20
	)
	s := New(0, pool, slotSize, total)

	// Queue a burst well beyond one slot's worth before the worker
	// starts consuming, so the enqueue worker sees a deep backlog and
	// accumulates full slots rather than taking the bypass path for
	// every item.
	for i := 0; i < total; i++ {
		s.InQueue <- labeled(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	got := 0
	for got < total {
		select {
		case <-s.OutQueue:
			got++
		case <-time.After(2 * time.Second):
			t.Fatalf("only received %d/%d examples", got, total)
		}
	}
}
