package fetch_test

import (
	"unsafe"

	"github.com/kolkov/doublefetch/fetch"
)

// Example demonstrates manual instrumentation of a validate-then-use pattern.
// The runtime allows one Init per process, so this example is illustrative
// rather than runnable alongside the package tests.
func Example() {
	fetch.Init()
	defer fetch.Fini()

	// Stand-in for an attached shared-memory mapping.
	shared := make([]byte, 64)
	base := uintptr(unsafe.Pointer(&shared[0]))
	fetch.WatchRegion(base, uintptr(len(shared)))

	// Validating read: the length header is checked against a bound.
	fetch.CheckRead(base, 1)
	n := int(shared[0])

	// Trusting read of the SAME byte: a double fetch. The detector logs it
	// and may have corrupted shared[0] in between, so code that trusted
	// the validated n now sees the inconsistency.
	fetch.CheckRead(base, 1)
	_ = shared[:min(n, len(shared))]
}
