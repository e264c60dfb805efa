// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package serialstorage

import (
	"context"
	"testing"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
)

func TestInMemoryUpdateScoresIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory([]example.LabeledData{
		{Features: []float32{1}, Label: 1},
		{Features: []float32{-1}, Label: -1},
	})
	m := model.Model{}.Append(model.Tree{Nodes: []model.Node{
		{LeftChild: model.NoChild, RightChild: model.NoChild, Prediction: 2},
	}})
	if err := s.UpdateScores(ctx, m); err != nil {
		t.Fatal(err)
	}
	first, _ := s.GetScores(ctx)
	if err := s.UpdateScores(ctx, m); err != nil {
		t.Fatal(err)
	}
	second, _ := s.GetScores(ctx)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("UpdateScores was not a no-op on the second call at index %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestInMemoryReadWraps(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory([]example.LabeledData{
		{Features: []float32{1}}, {Features: []float32{2}}, {Features: []float32{3}},
	})
	first, _ := s.Read(ctx, 2)
	if len(first) != 2 {
		t.Fatalf("got %d examples, want 2", len(first))
	}
	second, _ := s.Read(ctx, 2)
	if len(second) != 1 {
		t.Fatalf("got %d examples, want 1 (remainder before wrap)", len(second))
	}
	third, _ := s.Read(ctx, 2)
	if len(third) != 2 {
		t.Fatalf("got %d examples, want 2 (wrapped around)", len(third))
	}
}
