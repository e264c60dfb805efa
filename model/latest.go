// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package model

import "sync/atomic"

// Latest is a single-slot "most recent value" channel for Model
// snapshots. It implements the handoff spec.md calls for: readers
// (the sampler, and the booster, which passes each snapshot it
// publishes on to the buffer loader) must never observe a model mid
// extension, and it is fine for them to miss intermediate publications
// as long as they eventually see the latest one.
//
// The zero value is ready to use and reads as an empty Model.
type Latest struct {
	p atomic.Pointer[Model]
}

// Publish makes m the latest snapshot visible to Load. Publish never
// blocks and never blocks a concurrent Load.
func (l *Latest) Publish(m Model) {
	l.p.Store(&m)
}

// Load returns the most recently Published Model, or the zero Model
// if Publish has never been called.
func (l *Latest) Load() Model {
	p := l.p.Load()
	if p == nil {
		return Model{}
	}
	return *p
}
