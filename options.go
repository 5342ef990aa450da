package segalloc

import "github.com/zrsmith92/segalloc/sbrk"

const defaultChunkSize = 4096

// Config amends the behavior of New. Its zero value is meaningful: every
// field left unset takes the documented default, following the same
// compatibility promise cznic's dbm.Options makes for its own Options type:
// new fields may be added without breaking existing callers who construct
// a Config as a struct literal naming fields.
type Config struct {
	// ChunkSize is the minimum number of bytes requested from the heap
	// primitive on a findFit miss. Defaults to 4096.
	ChunkSize int

	// MaxHeap bounds how large the underlying region may grow. Tests use
	// a small MaxHeap to exercise the OutOfMemory path; production
	// callers normally leave this at the default, which is large enough
	// that no realistic trace exhausts it.
	MaxHeap int
}

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = defaultChunkSize
	}
	if out.MaxHeap <= 0 {
		out.MaxHeap = sbrk.DefaultMax
	}
	return out
}
