package segalloc

import (
	"fmt"
	"os"
)

// trace gates verbose logging of every Allocate/Free/Reallocate call and
// its result; flip it to watch a harness trace play out on stderr.
const trace = false

func tracef(format string, args ...interface{}) {
	if !trace {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
