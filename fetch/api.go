// Package fetch provides the public API for the double-fetch detector.
//
// See doc.go for detailed documentation and examples.
package fetch

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/kolkov/doublefetch/internal/fetch/detector"
	"github.com/kolkov/doublefetch/internal/fetch/shm"
)

// state bundles the process-wide detector instance with the bridge's pending
// segment records. There is genuinely one shared-memory view per process, so
// there is exactly one of these; the contract is enforced by Init, not by
// scattering package-level globals through the core packages.
type state struct {
	det     *detector.Detector
	pending *shm.PendingSet
}

var global atomic.Pointer[state]

// Init initializes the double-fetch runtime.
//
// It must be called exactly once, before any other operation in this
// package. A second call is a contract violation and panics: double
// initialization signals broken process bootstrap, not a recoverable
// condition. Every other function in this package panics if called before
// Init.
func Init() {
	s := &state{
		det:     detector.New(detector.Options{}),
		pending: shm.NewPendingSet(),
	}
	if !global.CompareAndSwap(nil, s) {
		panic("doublefetch: Init called twice")
	}
	fmt.Fprintln(os.Stderr, "(doublefetch) runtime initialized")
}

// Fini prints a summary of detection results to stderr.
//
// Call it at program exit, typically with defer right after Init. Detection
// stays active afterwards; Fini only reports.
func Fini() {
	stats := get().det.Stats()

	fmt.Fprintf(os.Stderr, "\n==================\n")
	fmt.Fprintf(os.Stderr, "Double-Fetch Detector Report\n")
	fmt.Fprintf(os.Stderr, "==================\n")
	if stats.DoubleFetches == 0 {
		fmt.Fprintf(os.Stderr, "✓ No double fetches detected.\n")
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %d double fetch(es) detected, %d corrupted!\n",
			stats.DoubleFetches, stats.Corruptions)
		fmt.Fprintf(os.Stderr, "\nSee above for details.\n")
	}
	fmt.Fprintf(os.Stderr, "==================\n\n")
}

// WatchRegion begins tracking reads in [addr, addr+size).
//
// The bridge layer calls this for each shared-memory mapping it discovers.
// Regions are assumed pairwise non-overlapping; each gets its own
// independently locked access tracker, so operations on different regions
// never contend.
func WatchRegion(addr uintptr, size uintptr) {
	get().det.WatchRegion(addr, size)
}

// UnwatchRegion stops tracking the region containing addr and drops all of
// its tracker state. No-op if no watched region contains addr.
func UnwatchRegion(addr uintptr) {
	get().det.UnwatchRegion(addr)
}

// CheckAccess records one access to [addr, addr+size) and runs double-fetch
// detection for reads.
//
// The return value is informational and never blocks the access: detection
// surfaces through the diagnostic stream and through probabilistic in-place
// corruption of the re-fetched bytes, forcing code that trusted the earlier
// read into an observable inconsistency. Accesses to unwatched memory are
// ignored. Safe to call from any goroutine.
func CheckAccess(addr uintptr, size uintptr, isWrite bool) bool {
	return get().det.CheckAccess(addr, size, isWrite)
}

// CheckRead is CheckAccess for a read.
func CheckRead(addr uintptr, size uintptr) bool {
	return get().det.CheckAccess(addr, size, false)
}

// CheckWrite is CheckAccess for a write.
func CheckWrite(addr uintptr, size uintptr) bool {
	return get().det.CheckAccess(addr, size, true)
}

// RememberSegment records a shared-memory segment created with shmget that
// has not been attached yet. The matching RegisterAttach consumes the record
// and starts watching the mapping.
func RememberSegment(id int, size uintptr) {
	fmt.Fprintf(os.Stderr, "(doublefetch) got shm segment id %#x len %#x\n", id, size)
	get().pending.Remember(id, size)
}

// RegisterAttach notifies the runtime that segment id was attached at addr.
// If a pending record matches, it is consumed and [addr, addr+size) becomes a
// watched region; otherwise the notification is ignored.
func RegisterAttach(id int, addr uintptr) {
	s := get()
	size, ok := s.pending.TakeMatch(id)
	if !ok {
		return
	}
	fmt.Fprintf(os.Stderr, "(doublefetch) matched attach of segment id %#x at %#x\n", id, addr)
	s.det.WatchRegion(addr, size)
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	// Checks counts accesses that resolved to a watched region.
	Checks uint64
	// Reads and Writes split Checks by access kind.
	Reads  uint64
	Writes uint64
	// DoubleFetches counts reads flagged as double fetches.
	DoubleFetches uint64
	// Corruptions counts double fetches where random bytes were injected.
	Corruptions uint64
}

// GetStats returns a snapshot of the runtime counters.
func GetStats() Stats {
	s := get().det.Stats()
	return Stats{
		Checks:        s.Checks,
		Reads:         s.Reads,
		Writes:        s.Writes,
		DoubleFetches: s.DoubleFetches,
		Corruptions:   s.Corruptions,
	}
}

// get returns the process-wide state, panicking on use before Init.
func get() *state {
	s := global.Load()
	if s == nil {
		panic("doublefetch: used before Init")
	}
	return s
}
