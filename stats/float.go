// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"math"
	"sync/atomic"
)

// A Float is a float64 counter, the floating-point analogue of Int.
// Adds are atomic compare-and-swap loops since there is no hardware
// atomic add for floats; this is the cell type the stratified store's
// weights table uses so that the assigner and the sampler can both add
// (positive and negative, respectively) to the same index without ever
// blocking each other or a concurrent reader.
type Float struct {
	bits uint64
}

// Add atomically adds delta to v and returns the new value.
func (v *Float) Add(delta float64) float64 {
	for {
		old := atomic.LoadUint64(&v.bits)
		oldF := math.Float64frombits(old)
		newF := oldF + delta
		if atomic.CompareAndSwapUint64(&v.bits, old, math.Float64bits(newF)) {
			return newF
		}
	}
}

// Get returns the current value of v.
func (v *Float) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&v.bits))
}

// Set sets v's value to val.
func (v *Float) Set(val float64) {
	atomic.StoreUint64(&v.bits, math.Float64bits(val))
}
