package segalloc

import "testing"

// TestCoalesceNeighbors frees three adjacent blocks out of order and
// checks that the last free leaves exactly one merged free block behind.
func TestCoalesceNeighbors(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	pa, err := a.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate a: %v", err)
	}
	pb, err := a.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate b: %v", err)
	}
	pc, err := a.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate c: %v", err)
	}

	sizeEach := mustAdjustedSize(t, 100)

	a.Free(pa)
	checkInvariants(t, a)
	a.Free(pc)
	checkInvariants(t, a)
	a.Free(pb)
	checkInvariants(t, a)

	total := 0
	free := 0
	for bp := ref(firstBlockBp); bp != ref(a.heapBytes); bp = a.nextBlock(bp) {
		if !a.allocated(bp) {
			free++
			total += a.size(bp)
		}
	}
	if free != 1 {
		t.Fatalf("expected exactly one free block after merging a,b,c; found %d", free)
	}
	if total < 3*sizeEach {
		t.Fatalf("merged free block size %d smaller than sum of parts %d", total, 3*sizeEach)
	}
}

// TestCoalesceAcrossExtension exercises extendHeap's own coalesce: freeing
// the last block in the heap, then forcing a new extension, must merge the
// extension with that trailing free block rather than leaving two free
// blocks side by side (I4).
func TestCoalesceAcrossExtension(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	p, err := a.Allocate(4000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	a.Free(p)
	checkInvariants(t, a)

	// Ask for something bigger than the chunk so allocate must extend.
	if _, err := a.Allocate(8192); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	checkInvariants(t, a)
}

func TestDoubleFreeIsNoOp(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	p, err := a.Allocate(32)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	a.Free(p)
	checkInvariants(t, a)
	allocsAfterFirstFree := a.allocs

	a.Free(p) // double free on an already-free block is a no-op
	if a.allocs != allocsAfterFirstFree {
		t.Fatalf("second Free changed allocs: %d -> %d", allocsAfterFirstFree, a.allocs)
	}
	checkInvariants(t, a)
}
