package segalloc

import "github.com/cznic/mathutil"

// binForSize returns the index of the bin a free block of total size s
// belongs in: bin k covers (2^(k+4), 2^(k+5)] bytes, with bin 0 also taking
// everything up to 32 and bin numBins-1 everything above 2048.
// mathutil.BitLen(s-1) computes ceil(log2(s)) for s >= 1; subtracting 5
// and clamping gives the 8-bin table.
func binForSize(s int) int {
	idx := mathutil.BitLen(s-1) - 5
	switch {
	case idx < 0:
		return 0
	case idx > numBins-1:
		return numBins - 1
	default:
		return idx
	}
}

func (a *Allocator) binHeadOffset(i int) ref { return ref(i * wordSize) }

func (a *Allocator) binHead(i int) ref {
	return ref(a.readWord(a.binHeadOffset(i)))
}

func (a *Allocator) setBinHead(i int, bp ref) {
	a.writeWord(a.binHeadOffset(i), uint32(bp))
}

// prepend inserts bp, a free block of size s, at the head of its bin's
// doubly linked list. LIFO insertion keeps insert and remove O(1) and
// favors temporal locality for blocks that are freed and promptly
// reused.
func (a *Allocator) prepend(bp ref, s int) {
	i := binForSize(s)
	head := a.binHead(i)

	a.setFreePrev(bp, 0)
	a.setFreeNext(bp, head)
	if head != 0 {
		a.setFreePrev(head, bp)
	}
	a.setBinHead(i, bp)

	if s > a.maxFree {
		a.maxFree = s
	}
}

// remove unlinks bp, a free block of size s, from its bin. The four cases
// are the four (prev==0, next==0) combinations.
func (a *Allocator) remove(bp ref, s int) {
	i := binForSize(s)
	prev := a.freePrev(bp)
	next := a.freeNext(bp)

	switch {
	case prev == 0 && next == 0:
		a.setBinHead(i, 0)
	case prev == 0:
		a.setBinHead(i, next)
		a.setFreePrev(next, 0)
	case next == 0:
		a.setFreeNext(prev, 0)
	default:
		a.setFreeNext(prev, next)
		a.setFreePrev(next, prev)
	}
}
