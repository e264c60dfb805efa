// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package slotpool implements the disk slot pool: a fixed-size file
// partitioned into equal-size slots, each either FREE or OCCUPIED, with
// atomic reserve/write and read/free operations (spec.md §4.1).
package slotpool

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/arapat/sparrow/ctxsync"
	"github.com/arapat/sparrow/example"
	"github.com/arapat/sparrow/stats"
	"github.com/grailbio/base/errors"
)

// SlotID identifies one slot in a Pool.
type SlotID int

// state tracks exactly the four slot states spec.md §4.1 names: a slot
// is free, reserved for an in-flight write, occupied, or reserved for an
// in-flight read. No slot is ever read before its write completes
// because a slot only becomes occupied after Write finishes, and reads
// only start from occupied.
type state int8

const (
	stateFree state = iota
	stateReservedWriting
	stateOccupied
	stateReservedReading
)

// maxSlotIORetries bounds the single-slot-operation retries spec.md §7
// allows for transient I/O errors; beyond this the error escalates to
// errors.Fatal.
const maxSlotIORetries = 3

// Pool is a disk-backed slot pool. Every slot holds exactly one
// example.Batch of encoded bytes.
type Pool struct {
	f         *os.File
	slotBytes int
	numSlots  int

	mu       sync.Mutex
	cond     *ctxsync.Cond
	state    []state
	freeList []SlotID
	counts   *stats.Map
}

// countKey names the stats.Map counter tracking how many slots are
// currently in state s.
func countKey(s state) string {
	switch s {
	case stateFree:
		return "free"
	case stateOccupied:
		return "occupied"
	default:
		return "reserved"
	}
}

// Create creates (or truncates) the file at path and returns a Pool of
// numSlots slots, each slotBytes bytes. Direct *os.File random access
// is used rather than a remote-capable file abstraction because slots
// are read and written in place at computed byte offsets — see
// DESIGN.md for why this is the one place Sparrow reaches for os
// directly instead of a pack library.
func Create(path string, numSlots, slotBytes int) (*Pool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.E(errors.Fatal, err)
	}
	if err := f.Truncate(int64(numSlots) * int64(slotBytes)); err != nil {
		f.Close()
		return nil, errors.E(errors.Fatal, err)
	}
	p := &Pool{
		f:         f,
		slotBytes: slotBytes,
		numSlots:  numSlots,
		state:     make([]state, numSlots),
		freeList:  make([]SlotID, numSlots),
		counts:    stats.NewMap(),
	}
	for i := range p.freeList {
		p.freeList[i] = SlotID(i)
	}
	p.counts.Int("free").Set(int64(numSlots))
	p.cond = ctxsync.NewCond(&p.mu)
	return p, nil
}

// setStateLocked transitions slot id from its current state to next,
// keeping counts in step. Callers must hold p.mu.
func (p *Pool) setStateLocked(id SlotID, next state) {
	p.counts.Int(countKey(p.state[id])).Add(-1)
	p.state[id] = next
	p.counts.Int(countKey(next)).Add(1)
}

// Close closes the pool's underlying file.
func (p *Pool) Close() error {
	return p.f.Close()
}

// NumSlots returns the total number of slots in the pool.
func (p *Pool) NumSlots() int { return p.numSlots }

// Stats returns the number of free, reserved (writing or reading) and
// occupied slots, for invariant 2 of spec.md §8 (slot accounting) and
// for observability. It reads the running stats.Int counters maintained
// by every state transition rather than rescanning every slot.
func (p *Pool) Stats() (free, reserved, occupied int) {
	vals := stats.Values{}
	p.counts.AddAll(vals)
	return int(vals["free"]), int(vals["reserved"]), int(vals["occupied"])
}

// ReserveFree atomically moves one FREE slot to the caller, blocking
// until one is available or ctx is done.
func (p *Pool) ReserveFree(ctx context.Context) (SlotID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.freeList) == 0 {
		if err := p.cond.Wait(ctx); err != nil {
			return 0, err
		}
	}
	n := len(p.freeList) - 1
	id := p.freeList[n]
	p.freeList = p.freeList[:n]
	if p.state[id] != stateFree {
		return 0, errors.E(errors.Integrity, "slot pool: reserved a non-free slot")
	}
	p.setStateLocked(id, stateReservedWriting)
	return id, nil
}

// Write encodes and writes batch to the slot previously returned by
// ReserveFree, then marks it OCCUPIED.
func (p *Pool) Write(ctx context.Context, id SlotID, batch example.Batch) error {
	buf := make([]byte, p.slotBytes)
	n, err := encodeInto(buf, batch)
	if err != nil {
		return err
	}
	if err := p.writeAtRetry(buf[:n], int64(id)*int64(p.slotBytes)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state[id] != stateReservedWriting {
		return errors.E(errors.Integrity, "slot pool: write to a slot not reserved for writing")
	}
	p.setStateLocked(id, stateOccupied)
	return nil
}

// ReadAndFree reads the batch stored at id, then atomically frees the
// slot for reuse.
func (p *Pool) ReadAndFree(ctx context.Context, id SlotID) (example.Batch, error) {
	p.mu.Lock()
	if p.state[id] != stateOccupied {
		p.mu.Unlock()
		return nil, errors.E(errors.Integrity, "slot pool: read of a slot that is not occupied")
	}
	p.setStateLocked(id, stateReservedReading)
	p.mu.Unlock()

	buf := make([]byte, p.slotBytes)
	if err := p.readAtRetry(buf, int64(id)*int64(p.slotBytes)); err != nil {
		return nil, err
	}
	batch, err := example.NewDecoder(bytes.NewReader(buf)).Decode()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.setStateLocked(id, stateFree)
	p.freeList = append(p.freeList, id)
	p.cond.Broadcast()
	p.mu.Unlock()
	return batch, nil
}

func encodeInto(buf []byte, batch example.Batch) (int, error) {
	var w bytes.Buffer
	if err := example.NewEncoder(&w).Encode(batch); err != nil {
		return 0, err
	}
	if w.Len() > len(buf) {
		return 0, errors.E(errors.Invalid, "slot pool: encoded batch exceeds slot size")
	}
	copy(buf, w.Bytes())
	return w.Len(), nil
}

func (p *Pool) writeAtRetry(b []byte, off int64) error {
	var err error
	for attempt := 0; attempt < maxSlotIORetries; attempt++ {
		if _, err = p.f.WriteAt(b, off); err == nil {
			return nil
		}
		time.Sleep(time.Millisecond * time.Duration(1<<attempt))
	}
	return errors.E(errors.Fatal, err)
}

func (p *Pool) readAtRetry(b []byte, off int64) error {
	var err error
	for attempt := 0; attempt < maxSlotIORetries; attempt++ {
		if _, err = p.f.ReadAt(b, off); err == nil {
			return nil
		}
		time.Sleep(time.Millisecond * time.Duration(1<<attempt))
	}
	return errors.E(errors.Fatal, err)
}
