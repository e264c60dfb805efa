// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package example defines the data records that flow through Sparrow's
// data plane: raw labeled examples, the scored form persisted in the
// stratified store, and the sampled form consumed by the buffer loader.
package example

// LabeledData is a single training example: a fixed-length feature
// vector and its binary label.
type LabeledData struct {
	Features []float32
	Label    int8 // +1 or -1
}

// ScoredExample is a LabeledData annotated with the ensemble's most
// recent prediction for it. LastTreeIndex records how many trees were
// folded into LastScore, so a reader holding a longer model can update
// the score incrementally rather than replay from tree 0.
//
// ScoredExample lives in the stratified store; it is mutated only by the
// sampler (rescoring) and the assigner (bucket placement).
type ScoredExample struct {
	LabeledData
	LastScore     float32
	LastTreeIndex uint32
}

// SampledExample additionally records the model snapshot in effect at
// the moment this example was drawn by the sampler (SampledScore,
// SampledTreeIndex), distinct from the incrementally-updated LastScore
// pair used for rescoring against newer models while resident in the
// buffer loader.
type SampledExample struct {
	LabeledData
	SampledScore     float32
	SampledTreeIndex uint32
	LastScore        float32
	LastTreeIndex    uint32
}

// Weight evaluates fn for this example's label and current score.
func (s ScoredExample) Weight(fn func(label int8, score float32) float32) float32 {
	return fn(s.Label, s.LastScore)
}

// Weight evaluates fn for this example's label and current score.
func (s SampledExample) Weight(fn func(label int8, score float32) float32) float32 {
	return fn(s.Label, s.LastScore)
}
