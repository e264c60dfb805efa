// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sparrow is a disk-backed, streaming boosting trainer for
// binary classification over datasets that exceed RAM. It maintains a
// weight-stratified population of labeled examples on disk, draws a
// small in-memory importance-weighted sample from it with a monitored
// effective sample size, and grows an additive ensemble of decision
// trees against that sample under an adaptive, statistically-bounded
// stopping criterion.
//
// RunTraining assembles the disk slot pool, the stratified store, the
// buffer loader and the boosting driver into the training job; it is
// the only package that wires all of them together. RunValidate is an
// independent consumer that evaluates published models against a held-
// out set as they arrive.
//
// Parsing input files, wiring a CLI or config system, distributed
// multi-node coordination and computing predictive metrics are outside
// this package's scope; callers supply already-materialized examples, a
// weight function and a candidate weak-rule pool, and select their own
// evaluation functions from package metrics or their own code.
package sparrow
