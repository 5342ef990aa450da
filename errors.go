package segalloc

import "errors"

// ErrOutOfMemory is returned by Allocate and Reallocate when the heap
// primitive refuses to grow the region further. It is the only error
// Allocate and Reallocate return. The heap is left valid and usable; the caller may
// retry after freeing something or simply give up.
var ErrOutOfMemory = errors.New("segalloc: out of memory")
