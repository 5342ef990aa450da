package segalloc

// coalesce merges bp, a block whose header/footer already read "free" but
// which is not yet linked into any bin, with any free neighbors, then
// prepends the (possibly larger, possibly relocated) result. It returns the
// payload pointer of the merged block. Prologue and epilogue are always
// allocated, so the neighbor lookups below need no special-casing at the
// ends of the heap.
func (a *Allocator) coalesce(bp ref) ref {
	size := a.size(bp)
	prevBp := a.prevBlock(bp)
	nextBp := a.nextBlock(bp)
	prevAlloc := a.allocated(prevBp)
	nextAlloc := a.allocated(nextBp)

	switch {
	case prevAlloc && nextAlloc:
		// no free neighbor; bp merges with nothing

	case prevAlloc && !nextAlloc:
		nextSize := a.size(nextBp)
		a.remove(nextBp, nextSize)
		size += nextSize
		a.setBlock(bp, size, false)

	case !prevAlloc && nextAlloc:
		prevSize := a.size(prevBp)
		a.remove(prevBp, prevSize)
		size += prevSize
		a.setBlock(prevBp, size, false)
		bp = prevBp

	default: // both free
		prevSize := a.size(prevBp)
		nextSize := a.size(nextBp)
		a.remove(prevBp, prevSize)
		a.remove(nextBp, nextSize)
		size += prevSize + nextSize
		a.setBlock(prevBp, size, false)
		bp = prevBp
	}

	a.prepend(bp, size)
	return bp
}

// splitTail is used by place and by reallocate's in-place expansion paths:
// given an allocated block at bp whose true capacity is total bytes while
// only want are needed, it carves the trailing remainder into its own free
// block when the remainder is large enough to be a block at all.
// The tail fragment is coalesced rather than just prepended because an
// in-place Reallocate expansion can leave it adjacent to free space created
// earlier in the same call.
func (a *Allocator) splitTail(bp ref, want, total int) ref {
	remainder := total - want
	if remainder < minBlockSize {
		a.setBlock(bp, total, true)
		return bp
	}

	a.setBlock(bp, want, true)
	tail := a.nextBlock(bp)
	a.setBlock(tail, remainder, false)
	a.coalesce(tail)
	return bp
}
