// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package serialstorage

import (
	"context"
	"sync"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
)

// InMemory is a minimal Storage backed by a slice held entirely in
// memory. It exists for tests and for exercising run_validate in
// examples; the core trainer has no dependency on it, and it makes no
// attempt to support datasets that exceed RAM (that is the stratified
// store's job, not this one's).
type InMemory struct {
	mu       sync.Mutex
	data     []example.LabeledData
	scores   []float32
	lastTree uint32
	pos      int
}

// NewInMemory returns an InMemory store over data.
func NewInMemory(data []example.LabeledData) *InMemory {
	return &InMemory{
		data:   data,
		scores: make([]float32, len(data)),
	}
}

func (s *InMemory) GetSize(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data), nil
}

func (s *InMemory) Read(ctx context.Context, n int) ([]example.LabeledData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.data) {
		s.pos = 0 // validation scans the test set once per model arrival
	}
	end := s.pos + n
	if end > len(s.data) {
		end = len(s.data)
	}
	out := s.data[s.pos:end]
	s.pos = end
	return out, nil
}

func (s *InMemory) UpdateScores(ctx context.Context, m model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint32(m.Len()) == s.lastTree {
		return nil // re-running update_scores with the same model is a no-op
	}
	for i, d := range s.data {
		s.scores[i] += m.ScoreRange(d.Features, s.lastTree)
	}
	s.lastTree = uint32(m.Len())
	return nil
}

func (s *InMemory) GetScores(ctx context.Context) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.scores))
	copy(out, s.scores)
	return out, nil
}
