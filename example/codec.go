// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package example

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"hash/crc32"
	"io"

	"github.com/grailbio/base/errors"
)

// A Batch is a fixed-size group of examples encoded together as the
// payload of a single disk slot. Batch encoding is opaque to the core
// per spec: callers that need a different wire format can provide their
// own Encoder/Decoder pair and the store never inspects the bytes.
type Batch []ScoredExample

// Encoder writes batches to an underlying stream in a
// length-prefixed, checksummed form, modeled on the gob+crc32 framing
// bigslice's sliceio.Encoder uses for columnar frames: an 8-byte header
// holding the body's length and CRC32, followed by the gob-encoded body,
// so a corrupt slot is detected on read rather than silently
// misinterpreted.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Encode writes b to the underlying stream.
func (e *Encoder) Encode(b Batch) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(b); err != nil {
		return errors.E(errors.Fatal, err)
	}
	sum := crc32.ChecksumIEEE(body.Bytes())
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(body.Len()))
	binary.LittleEndian.PutUint32(hdr[4:8], sum)
	if _, err := e.w.Write(hdr[:]); err != nil {
		return errors.E(errors.Fatal, err)
	}
	if _, err := e.w.Write(body.Bytes()); err != nil {
		return errors.E(errors.Fatal, err)
	}
	return nil
}

// Decoder reads batches written by an Encoder.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// Decode reads the next batch from the underlying stream. A checksum
// mismatch is an invariant violation: the slot's bytes do not match what
// was written, which should never happen absent disk corruption or a
// slot-accounting bug, so it is surfaced as errors.Integrity rather than
// a plain IO error.
func (d *Decoder) Decode() (Batch, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return nil, errors.E(errors.Fatal, err)
	}
	size := binary.LittleEndian.Uint32(hdr[0:4])
	wantSum := binary.LittleEndian.Uint32(hdr[4:8])
	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, errors.E(errors.Fatal, err)
	}
	if sum := crc32.ChecksumIEEE(body); sum != wantSum {
		return nil, errors.E(errors.Integrity, errors.Fatal, "slot checksum mismatch")
	}
	var b Batch
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&b); err != nil {
		return nil, errors.E(errors.Fatal, err)
	}
	return b, nil
}

// EncodedSize returns the number of bytes Encode would write for b,
// header included.
func EncodedSize(b Batch) (int, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(b); err != nil {
		return 0, errors.E(errors.Fatal, err)
	}
	return body.Len() + 8, nil
}
