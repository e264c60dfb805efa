// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package store

import "math"

// StratumIndex computes the weight-bucket index for a positive weight
// w: floor(log2(w)). Bucket membership bounds the weight ratio between
// any two members of the same bucket to less than 2, which the sampler
// relies on for its grid-rule correction (spec.md §3, §4.3.2).
func StratumIndex(w float32) int32 {
	return int32(math.Floor(math.Log2(float64(w))))
}

// gridSize returns the grid-rule threshold 2^(idx+1) for bucket idx.
func gridSize(idx int32) float64 {
	return math.Ldexp(1, int(idx)+1)
}
