// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package example

import (
	"bytes"
	"testing"

	fuzz "github.com/google/gofuzz"
)

func fuzzBatch(seed int64, n int) Batch {
	fz := fuzz.NewWithSeed(seed).NilChance(0).NumElements(4, 4)
	b := make(Batch, n)
	for i := range b {
		fz.Fuzz(&b[i].Features)
		var lbl bool
		fz.Fuzz(&lbl)
		if lbl {
			b[i].Label = 1
		} else {
			b[i].Label = -1
		}
	}
	return b
}

func TestCodecRoundTrip(t *testing.T) {
	b := fuzzBatch(1, 16)
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(b); err != nil {
		t.Fatal(err)
	}
	got, err := NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(b) {
		t.Fatalf("got %d examples, want %d", len(got), len(b))
	}
	for i := range b {
		if got[i].Fingerprint() != b[i].Fingerprint() {
			t.Errorf("example %d: fingerprint mismatch after round trip", i)
		}
	}
}

func TestCodecChecksumMismatch(t *testing.T) {
	b := fuzzBatch(2, 4)
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(b); err != nil {
		t.Fatal(err)
	}
	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xFF
	if _, err := NewDecoder(bytes.NewReader(corrupt)).Decode(); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}

func TestEncodedSize(t *testing.T) {
	b := fuzzBatch(3, 8)
	n, err := EncodedSize(b)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(b); err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("got %d, want %d", n, buf.Len())
	}
}
