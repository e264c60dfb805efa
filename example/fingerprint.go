// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package example

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// Fingerprint returns a stable 32-bit hash of a LabeledData's contents.
// It is used by the codec and slot-pool round-trip tests to compare each
// example read back with the example that was written.
func (d LabeledData) Fingerprint() uint32 {
	buf := make([]byte, 4*len(d.Features)+1)
	for i, f := range d.Features {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	buf[len(buf)-1] = byte(d.Label)
	return murmur3.Sum32(buf)
}
