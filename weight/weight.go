// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package weight defines the pluggable scalar weight function that maps
// a labeled example's label and current ensemble score to its importance
// weight. The core treats the weight function as an opaque dependency;
// this package supplies the type and one reference implementation named
// in the spec, not a mandated default.
package weight

import "math"

// Func maps a label (+1/-1) and the ensemble's current score for an
// example to a non-negative importance weight.
type Func func(label int8, score float32) float32

// AdaBoost is the reference weight function named in spec.md: the
// exponential loss gradient magnitude exp(-label*score). It is provided
// for tests and examples; callers select it explicitly via Config, it is
// never assumed by the core.
func AdaBoost(label int8, score float32) float32 {
	return float32(math.Exp(float64(-float32(label) * score)))
}

const (
	minWeight = 1e-12
	maxWeight = 1e12
)

// Clamp bounds w into [minWeight, maxWeight], mapping NaN and +Inf to
// maxWeight and -Inf to minWeight. It implements spec.md §7's "NaN / non-finite
// weights: clamped" policy; sustained clamping is tracked by the caller
// (the assigner) and escalated if persistent.
func Clamp(w float32) (clamped float32, wasClamped bool) {
	if math.IsNaN(float64(w)) {
		return maxWeight, true
	}
	switch {
	case w > maxWeight:
		return maxWeight, true
	case w < minWeight:
		return minWeight, true
	default:
		return w, false
	}
}
