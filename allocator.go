// Package segalloc implements a segregated-fit, boundary-tag dynamic memory
// allocator over a single, monotonically growable heap region. It is a
// drop-in replacement for a process heap under a trace-driven harness: the
// classical three-operation interface (Allocate, Free, Reallocate) is
// backed by eight size-class free lists threaded through the payload area
// of free blocks, eager neighbor coalescing, and a first-fit placement
// policy (see SPEC_FULL.md).
//
// Allocator is not safe for concurrent use: every public method must run
// to completion before the next one begins, exactly like the C heap
// contract it mirrors.
package segalloc

import (
	"math"
	"unsafe"

	"github.com/zrsmith92/segalloc/sbrk"
)

// Allocator manages one heap region. The zero value is not usable;
// construct one with New.
type Allocator struct {
	region *sbrk.Region
	base   *byte
	chunk  int

	maxFree int // largest free block ever seen; may overstate, never understates

	allocs    int
	liveBytes int
	heapBytes int
}

// New reserves a heap region and initializes its bin table, prologue and
// epilogue. cfg may be nil to take all defaults.
func New(cfg *Config) (*Allocator, error) {
	c := cfg.withDefaults()

	region, err := sbrk.New(c.MaxHeap)
	if err != nil {
		return nil, err
	}

	a := &Allocator{region: region, base: region.Base(), chunk: c.ChunkSize}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Allocator) init() error {
	if _, ok := a.region.Extend(initOverhead); !ok {
		return ErrOutOfMemory
	}

	for i := 0; i < numBins; i++ {
		a.setBinHead(i, 0)
	}
	a.setBlock(prologueBp, prologueSize, true)
	a.writeWord(epilogueHeaderOff, pack(0, true))
	a.heapBytes = initOverhead
	return nil
}

// Close releases the OS resources backing the heap. The Allocator must not
// be used afterwards.
func (a *Allocator) Close() error { return a.region.Close() }

// adjustedSize converts a requested payload size into the total block size
// that must be found or carved: header+footer overhead, rounded up to a
// multiple of 8, floored at the 16-byte minimum block. ok is false if n is
// so large that adding the header/footer overhead and rounding up would
// overflow an int; callers must treat that the same as out-of-memory
// rather than trust the returned size.
func adjustedSize(n int) (size int, ok bool) {
	if n > math.MaxInt-2*wordSize-7 {
		return 0, false
	}
	s := roundUp8(n + 2*wordSize)
	if s < minBlockSize {
		s = minBlockSize
	}
	return s, true
}

// Allocate reserves n contiguous payload bytes and returns a pointer to
// them. It returns (nil, nil) for a zero-or-negative request and (nil,
// ErrOutOfMemory) when the heap primitive refuses to grow or when n is so
// large that the adjusted block size would overflow.
func (a *Allocator) Allocate(n int) (unsafe.Pointer, error) {
	if n <= 0 {
		return nil, nil
	}

	want, ok := adjustedSize(n)
	if !ok {
		return nil, ErrOutOfMemory
	}

	// maxFree never understates the largest free block actually on a bin
	// list, so want > a.maxFree proves no bin walk can succeed and goes
	// straight to extending the heap.
	var bp ref
	if want <= a.maxFree {
		bp = a.findFit(want)
	}
	if bp == 0 {
		extendBy := want
		if extendBy < a.chunk {
			extendBy = a.chunk
		}
		if !a.extendHeap(extendBy) {
			return nil, ErrOutOfMemory
		}
		bp = a.findFit(want)
	}

	bp = a.place(bp, want)
	a.allocs++
	a.liveBytes += a.size(bp)
	tracef("Allocate(%#x) -> %#x\n", n, bp)
	return a.ptr(bp), nil
}

// extendHeap grows the heap region by at least n bytes (rounded up to a
// multiple of 8), turns the extension into one free block at the old
// epilogue's position, writes a fresh epilogue, and coalesces the new
// block with its predecessor if that is free, guaranteeing the extension
// is immediately usable by a subsequent findFit.
func (a *Allocator) extendHeap(n int) bool {
	n = roundUp8(n)

	base, ok := a.region.Extend(n)
	if !ok {
		return false
	}

	bp := ref(base)
	a.heapBytes += n
	a.setBlock(bp, n, false)
	a.writeWord(ref(a.heapBytes)-wordSize, pack(0, true))
	a.coalesce(bp)
	return true
}

// Free releases the block at p back to the heap. Freeing an already-free
// block is a silent no-op, and so is a nil p.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	bp := a.offsetOf(p)
	if !a.allocated(bp) {
		return
	}

	size := a.size(bp)
	a.setBlock(bp, size, false)
	a.allocs--
	a.liveBytes -= size
	a.coalesce(bp)
	tracef("Free(%#x)\n", bp)
}

// Reallocate resizes the block at p to hold n bytes, preserving its
// contents up to the smaller of the old and new sizes. It tries an
// in-place expansion before falling back to allocate-copy-free.
func (a *Allocator) Reallocate(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	if p == nil {
		return a.Allocate(n)
	}
	if n <= 0 {
		a.Free(p)
		return nil, nil
	}

	bp := a.offsetOf(p)
	oldSize := a.size(bp)
	want, ok := adjustedSize(n)
	if !ok {
		return nil, ErrOutOfMemory
	}

	if want <= oldSize {
		return p, nil
	}

	if nbp, ok := a.expandInPlace(bp, want); ok {
		a.liveBytes += a.size(nbp) - oldSize
		tracef("Reallocate(%#x, %#x) -> %#x (in place)\n", bp, n, nbp)
		return a.ptr(nbp), nil
	}

	newPtr, err := a.Allocate(n)
	if err != nil {
		return nil, err
	}

	copyBytes(p, newPtr, oldSize-2*wordSize)
	a.Free(p)
	tracef("Reallocate(%#x, %#x) -> %p (relocated)\n", bp, n, newPtr)
	return newPtr, nil
}

// expandInPlace attempts to grow the allocated block bp to want bytes
// without copying, by absorbing free neighbors. It tries the next
// neighbor alone, then the previous neighbor alone, then both together;
// the first combination whose combined size suffices wins.
func (a *Allocator) expandInPlace(bp ref, want int) (ref, bool) {
	size := a.size(bp)
	nextBp := a.nextBlock(bp)
	prevBp := a.prevBlock(bp)
	nextFree := !a.allocated(nextBp)
	prevFree := !a.allocated(prevBp)

	switch {
	case nextFree && size+a.size(nextBp) >= want:
		nextSize := a.size(nextBp)
		a.remove(nextBp, nextSize)
		total := size + nextSize
		a.setBlock(bp, total, true)
		return a.splitTail(bp, want, total), true

	case prevFree && size+a.size(prevBp) >= want:
		prevSize := a.size(prevBp)
		a.remove(prevBp, prevSize)
		total := size + prevSize
		a.setBlock(prevBp, total, true)
		a.movePayload(bp, prevBp, size-2*wordSize)
		return a.splitTail(prevBp, want, total), true

	case prevFree && nextFree && size+a.size(prevBp)+a.size(nextBp) >= want:
		prevSize := a.size(prevBp)
		nextSize := a.size(nextBp)
		a.remove(prevBp, prevSize)
		a.remove(nextBp, nextSize)
		total := size + prevSize + nextSize
		a.setBlock(prevBp, total, true)
		a.movePayload(bp, prevBp, size-2*wordSize)
		return a.splitTail(prevBp, want, total), true
	}

	return 0, false
}

// movePayload copies n bytes of live payload from one block to another,
// used by expandInPlace when the surviving block starts at a lower address
// than the one being replaced.
func (a *Allocator) movePayload(from, to ref, n int) {
	if n <= 0 || from == to {
		return
	}
	copyBytes(a.ptr(from), a.ptr(to), n)
}

// copyBytes copies n bytes from src to dst. Go's builtin copy is specified
// to behave correctly even when src and dst overlap in the same backing
// array, which movePayload relies on.
func copyBytes(src, dst unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

// AllocateBytes is a convenience wrapper around Allocate for callers who
// would rather work with a Go byte slice than an unsafe.Pointer.
func (a *Allocator) AllocateBytes(n int) ([]byte, error) {
	p, err := a.Allocate(n)
	if err != nil || p == nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), n), nil
}

// FreeBytes frees a slice obtained from AllocateBytes or ReallocateBytes.
func (a *Allocator) FreeBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	a.Free(unsafe.Pointer(&b[0]))
}

// ReallocateBytes is a convenience wrapper around Reallocate for callers
// working with byte slices.
func (a *Allocator) ReallocateBytes(b []byte, n int) ([]byte, error) {
	var p unsafe.Pointer
	if len(b) != 0 {
		p = unsafe.Pointer(&b[0])
	}

	np, err := a.Reallocate(p, n)
	if err != nil || np == nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(np), n), nil
}
