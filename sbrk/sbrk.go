// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sbrk implements a monotonically growable heap region backed by a
// single, up-front reservation of OS virtual memory.
//
// It plays the role of the classical Unix sbrk(2) primitive: a caller asks
// for more bytes at the end of the region and gets back the old high-water
// mark, but the region can never shrink and never moves once reserved.
package sbrk

import "fmt"

// DefaultMax is a reservation size for callers that have no size of their
// own to pass to New (New itself rejects a zero size). It is generous enough for the allocation traces this package's caller
// (segalloc) is expected to run without ever hitting the reservation limit
// in normal use, while still being cheap to reserve on any platform.
const DefaultMax = 64 << 20 // 64 MiB

// Primitive is the heap-growth contract an allocator built on top of this
// package consumes. Region satisfies it; tests substitute their own limits
// by constructing a Region with a small max via New.
type Primitive interface {
	// Extend advances the high-water mark by bytes and returns the old
	// mark (the base address of the newly available region) and whether
	// the extension succeeded. ok is false, and base is meaningless, if
	// the extension would exceed the reservation.
	Extend(bytes int) (base uint32, ok bool)

	// Lo returns the offset of the first usable byte. It is always 0;
	// callers address the region with offsets relative to it rather than
	// native pointers, see Region.Base.
	Lo() uint32

	// Hi returns the current high-water mark (one past the last usable byte).
	Hi() uint32

	// Size returns Hi - Lo.
	Size() int
}

// Region is a reserved block of address space with a movable high-water
// mark. Its zero value is not usable; construct one with New.
type Region struct {
	mem []byte // len(mem) == max, fully backed; brk bytes of it are "live"
	brk int
	max int
}

// New reserves max bytes of address space for the region. max must be a
// positive multiple of 8 large enough to hold at least one allocator
// bootstrap chunk; callers that don't care pass DefaultMax. max must also
// be below 4 GiB, so that every offset into the region fits in a uint32.
func New(max int) (*Region, error) {
	if max <= 0 || uint64(max) > 1<<32-1 {
		return nil, fmt.Errorf("sbrk: invalid reservation size %d", max)
	}

	mem, err := reserve(max)
	if err != nil {
		return nil, err
	}

	return &Region{mem: mem, max: max}, nil
}

// Extend implements Primitive.
func (r *Region) Extend(bytes int) (base uint32, ok bool) {
	if bytes < 0 || r.brk+bytes > r.max {
		return 0, false
	}

	base = uint32(r.brk)
	r.brk += bytes
	return base, true
}

// Lo implements Primitive.
func (r *Region) Lo() uint32 { return 0 }

// Hi implements Primitive.
func (r *Region) Hi() uint32 { return uint32(r.brk) }

// Size implements Primitive.
func (r *Region) Size() int { return r.brk }

// Base returns a pointer to the region's first byte. Offsets returned by
// Extend, and any offset derived from them, are valid additions to this
// pointer for as long as the Region is not closed.
func (r *Region) Base() *byte { return &r.mem[0] }

// Close releases the OS resources backing the region. The Region must not
// be used afterwards.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}

	err := release(r.mem)
	r.mem = nil
	r.brk = 0
	return err
}
