// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package metrics provides the evaluation-function contract consumed by
// the validation driver (spec.md §6) plus reference implementations.
// Metric computation itself is a Non-goal of the core trainer; these
// exist only to give run_validate something concrete to call and to
// exercise the worked examples of spec.md §8 in tests.
package metrics

// Point is one (score, label) observation fed to an EvalFunc.
type Point struct {
	Score float32
	Label int8
}

// EvalFunc computes a single scalar metric over a set of scored
// points. run_validate calls one EvalFunc per named metric once per
// model arrival.
type EvalFunc func(points []Point) float64
