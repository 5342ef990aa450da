package segalloc

import "testing"

// newTestAllocator builds an Allocator over a region capped at maxHeap
// bytes, used to exercise the OutOfMemory path deterministically.
func newTestAllocator(t testing.TB, maxHeap int) *Allocator {
	t.Helper()
	a, err := New(&Config{MaxHeap: maxHeap})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// checkInvariants walks the whole heap and every bin, verifying that
// headers match footers, every block is correctly sized and aligned, no
// two free blocks sit adjacent, and the free lists agree with a direct
// heap walk. It is the workhorse of every test below: called after each
// operation in small traces, and every Nth operation in large randomized
// ones (full per-op verification on a heap with thousands of blocks would
// itself dominate test runtime).
func checkInvariants(t testing.TB, a *Allocator) {
	t.Helper()

	free := map[ref]int{}
	sum := 0
	prevWasFree := false
	epilogue := ref(a.heapBytes)

	for bp := ref(firstBlockBp); bp != epilogue; {
		hw := a.headerWord(bp)
		size := tagSize(hw)
		if size < minBlockSize {
			t.Fatalf("P2: block %#x has size %d below minimum", bp, size)
		}
		if size%8 != 0 {
			t.Fatalf("P2: block %#x size %d not a multiple of 8", bp, size)
		}
		if uintptr(bp)%8 != 0 {
			t.Fatalf("P2: block %#x payload not 8-byte aligned", bp)
		}

		fw := a.readWord(bp + ref(size) - 2*wordSize)
		if hw != fw {
			t.Fatalf("P1: block %#x header %#08x != footer %#08x", bp, hw, fw)
		}

		isFree := !tagAllocated(hw)
		if isFree && prevWasFree {
			t.Fatalf("P4: block %#x is free and follows a free block", bp)
		}
		prevWasFree = isFree
		if isFree {
			free[bp] = size
		}

		sum += size
		bp = a.nextBlock(bp)
	}

	if want := a.heapBytes - initOverhead; sum != want {
		t.Fatalf("P3: block sizes sum to %d, want %d (heap %d - overhead %d)", sum, want, a.heapBytes, initOverhead)
	}

	seen := map[ref]bool{}
	for i := 0; i < numBins; i++ {
		head := a.binHead(i)
		var prev ref
		steps := 0
		for bp := head; bp != 0; bp = a.freeNext(bp) {
			steps++
			if steps > len(free)+1 {
				t.Fatalf("P5: bin %d list appears to cycle", i)
			}
			if seen[bp] {
				t.Fatalf("P5: block %#x appears in more than one bin", bp)
			}
			seen[bp] = true

			size, ok := free[bp]
			if !ok {
				t.Fatalf("P5: bin %d contains %#x, which is not a free block", i, bp)
			}
			if binForSize(size) != i {
				t.Fatalf("P5: block %#x of size %d is in bin %d, wants bin %d", bp, size, i, binForSize(size))
			}

			gotPrev := a.freePrev(bp)
			if gotPrev != prev {
				t.Fatalf("P6: block %#x prev=%#x, want %#x", bp, gotPrev, prev)
			}
			prev = bp
		}
	}

	if len(seen) != len(free) {
		t.Fatalf("P6: bins contain %d free blocks, heap walk found %d", len(seen), len(free))
	}
}
