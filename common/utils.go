package common

import "fmt"

// Assert checks a condition and panics if it is false.
//
// Error values are for conditions that might reasonably happen at runtime
// ("page not resident", "disk full"). Assert is for invariants: truths about
// internal state that must always hold. If the buffer pool's bookkeeping is
// broken (a frame missing from the page table, a negative pin count),
// continuing execution risks persisting corrupted data, so we crash with a
// stack trace pointing at the logic error instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
