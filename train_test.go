// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sparrow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arapat/sparrow/booster"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
	"github.com/arapat/sparrow/weight"
)

type stump struct {
	feature int32
	thresh  float32
	pos     float32
	neg     float32
}

func (s *stump) Predict(features []float32) float32 {
	if features[s.feature] < s.thresh {
		return s.neg
	}
	return s.pos
}

func (s *stump) Tree() model.Tree {
	return model.Tree{Nodes: []model.Node{
		{SplitIndex: s.feature, SplitThreshold: s.thresh, LeftChild: 1, RightChild: 2},
		{Prediction: s.neg, LeftChild: model.NoChild, RightChild: model.NoChild},
		{Prediction: s.pos, LeftChild: model.NoChild, RightChild: model.NoChild},
	}}
}

func TestConfigValidateRejectsMissingDelta(t *testing.T) {
	cfg := Config{
		Size: 10, BatchSize: 10, NumExamplesPerSlot: 4, NumSlots: 4,
		SlotPath: "x", TotalIterations: 1, Gamma: 0.1,
		WeightFunc: weight.AdaBoost, Candidates: []booster.WeakRule{&stump{}},
		Examples: make(chan example.LabeledData),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for missing Delta")
	}
	cfg.Delta = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for Delta outside (0, 1)")
	}
	cfg.Delta = 0.05
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for an otherwise-valid config: %v", err)
	}
}

// TestRunTrainingAdoptsAndTerminates exercises RunTraining end to end
// on a tiny, perfectly-separable dataset and confirms it terminates
// after adopting exactly TotalIterations trees (invariant 3: model
// monotonicity never decreases, here it reaches exactly 1).
func TestRunTrainingAdoptsAndTerminates(t *testing.T) {
	examples := make(chan example.LabeledData, 20)
	for i := 0; i < 20; i++ {
		label := int8(-1)
		feature := float32(0)
		if i%2 == 0 {
			label = 1
			feature = 1
		}
		examples <- example.LabeledData{Features: []float32{feature}, Label: label}
	}
	close(examples)

	cfg := Config{
		Size:               40,
		BatchSize:          20,
		NumExamplesPerSlot: 4,
		NumSlots:           8,
		SlotPath:           filepath.Join(t.TempDir(), "slots"),
		TotalIterations:    1,
		Delta:              0.05,
		Gamma:              0.1,
		WeightFunc:         weight.AdaBoost,
		Candidates:         []booster.WeakRule{&stump{feature: 0, thresh: 0.5, pos: 1, neg: -1}},
		Examples:           examples,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RunTraining(ctx, cfg); err != nil {
		t.Fatalf("RunTraining returned error: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("RunTraining returned only because the deadline passed, not after adopting TotalIterations trees")
	}
}
