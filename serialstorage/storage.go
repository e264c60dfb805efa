// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package serialstorage defines the SerialStorage abstraction consumed
// by the validation driver (spec.md §6). It is explicitly not part of
// the core: the stratified store, buffer loader and booster never
// import this package. Parsing an input file into this shape is a
// Non-goal; Storage only defines the contract a validation driver needs.
package serialstorage

import (
	"context"

	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/model"
)

// Storage provides bulk, ordered access to a held-out example set for
// validation, plus incremental rescoring against an evolving model
// exactly mirroring the core's ScoredExample rescoring contract.
type Storage interface {
	// GetSize returns the total number of examples in the set.
	GetSize(ctx context.Context) (int, error)
	// Read returns the next n examples. Implementations may return
	// fewer than n examples near the end of the set.
	Read(ctx context.Context, n int) ([]example.LabeledData, error)
	// UpdateScores folds trees [LastTreeIndex, m.Len()) of m into every
	// example's running score, the same incremental contract
	// model.Model.ScoreRange exposes to the core's ScoredExample.
	UpdateScores(ctx context.Context, m model.Model) error
	// GetScores returns the current score for every example in the
	// set, in the same order Read would have produced them.
	GetScores(ctx context.Context) ([]float32, error)
}
