// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sparrow

import (
	"github.com/arapat/sparrow/booster"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/weight"
	"github.com/grailbio/base/errors"
)

const (
	defaultQueueDepth       = 64
	defaultBytesPerExample  = 256
	defaultClampStreakLimit = 50
)

// Config collects every knob spec.md §6 enumerates: the loader's
// capacity and batch size, the disk slot layout, the stopping bound's
// confidence and initial advantage, the weight function, and the
// candidate weak-rule pool.
type Config struct {
	// Size is the buffer loader's capacity, in examples.
	Size int
	// BatchSize is the number of examples the booster reads per batch;
	// must be no larger than Size.
	BatchSize int

	// NumExamplesPerSlot is the disk slot pool's batching unit.
	NumExamplesPerSlot int
	// NumSlots is the total number of slots in the disk slot pool.
	NumSlots int
	// BytesPerExample bounds the per-example encoded size; 0 selects a
	// generous variable-length default (spec.md §6's "variable-length
	// allowed otherwise").
	BytesPerExample int
	// SlotPath is the path of the backing slot file, created or
	// truncated by RunTraining.
	SlotPath string

	// QueueDepth bounds every inter-stage channel; 0 selects a default.
	QueueDepth int

	// ClampStreakLimit bounds the number of consecutive weight.Clamp
	// corrections the assigner tolerates before treating WeightFunc as
	// misconfigured and failing the run (spec.md §7); 0 selects a
	// default.
	ClampStreakLimit int

	// EssThreshold is the minimum normalized Kish effective sample size
	// the booster waits for before reading each batch (spec.md §4.4);
	// 0 disables the wait.
	EssThreshold float64

	// TotalIterations is the number of trees RunTraining adopts before
	// returning.
	TotalIterations int
	// Delta is the stopping bound's confidence parameter; required, no
	// default (spec.md §9's open question, resolved here).
	Delta float64
	// Gamma is the initial target advantage a weak rule must
	// demonstrate to be adopted.
	Gamma float64

	// WeightFunc maps a label and current score to an importance
	// weight. Required; the core treats it as opaque.
	WeightFunc weight.Func
	// Candidates is the fixed pool of weak rules the booster evaluates
	// every batch.
	Candidates []booster.WeakRule

	// Examples supplies the initial population of labeled examples.
	// RunTraining drains it into the stratified store until it is closed
	// or training ends, and returns once TotalIterations trees have been
	// adopted, whether or not Examples has been closed by then; examples
	// already in the store continue to cycle through the
	// sampler/assigner loop after Examples closes.
	Examples <-chan example.LabeledData
}

// Validate checks that cfg is complete and internally consistent,
// returning an errors.Invalid error describing the first problem found.
func (c Config) Validate() error {
	switch {
	case c.Size <= 0:
		return errors.E(errors.Invalid, "sparrow: Size must be positive")
	case c.BatchSize <= 0:
		return errors.E(errors.Invalid, "sparrow: BatchSize must be positive")
	case c.BatchSize > c.Size:
		return errors.E(errors.Invalid, "sparrow: BatchSize must not exceed Size")
	case c.NumExamplesPerSlot <= 0:
		return errors.E(errors.Invalid, "sparrow: NumExamplesPerSlot must be positive")
	case c.NumSlots <= 0:
		return errors.E(errors.Invalid, "sparrow: NumSlots must be positive")
	case c.SlotPath == "":
		return errors.E(errors.Invalid, "sparrow: SlotPath is required")
	case c.TotalIterations <= 0:
		return errors.E(errors.Invalid, "sparrow: TotalIterations must be positive")
	case c.Delta <= 0 || c.Delta >= 1:
		return errors.E(errors.Invalid, "sparrow: Delta must be in (0, 1)")
	case c.WeightFunc == nil:
		return errors.E(errors.Invalid, "sparrow: WeightFunc is required")
	case len(c.Candidates) == 0:
		return errors.E(errors.Invalid, "sparrow: at least one candidate weak rule is required")
	case c.Examples == nil:
		return errors.E(errors.Invalid, "sparrow: Examples is required")
	case c.EssThreshold < 0 || c.EssThreshold > 1:
		return errors.E(errors.Invalid, "sparrow: EssThreshold must be in [0, 1]")
	}
	return nil
}

func (c Config) queueDepth() int {
	if c.QueueDepth > 0 {
		return c.QueueDepth
	}
	return defaultQueueDepth
}

func (c Config) clampStreakLimit() int {
	if c.ClampStreakLimit > 0 {
		return c.ClampStreakLimit
	}
	return defaultClampStreakLimit
}

func (c Config) slotBytes() int {
	bytesPerExample := c.BytesPerExample
	if bytesPerExample <= 0 {
		bytesPerExample = defaultBytesPerExample
	}
	return c.NumExamplesPerSlot * bytesPerExample
}
