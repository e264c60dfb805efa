// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sparrow

import "github.com/arapat/sparrow/slotpool"

func newSlotPool(cfg Config) (*slotpool.Pool, error) {
	return slotpool.Create(cfg.SlotPath, cfg.NumSlots, cfg.slotBytes())
}
