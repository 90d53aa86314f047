// Package detector implements the double-fetch check-then-track protocol on
// top of the region registry.
//
// A double fetch is the same byte range read twice without an intervening
// write: the classic TOCTOU pattern where an attacker mutates shared memory
// between a validating read and a trusting read. The detector never blocks or
// fails the offending access. Detection surfaces two ways only: a report on
// the diagnostic stream, and (with a fixed probability) corruption of the
// live bytes with random data, so downstream logic that trusted the earlier
// read is forced into an observable inconsistency. Probabilistic corruption
// raises the odds a flaky double-fetch bug manifests across repeated runs
// without destroying every run's reproducibility.
//
// Known accepted race: the overlap check and the subsequent track for a read
// are not atomic as a pair. Two concurrent reads over overlapping ranges may
// both observe "first read" and both mark the range tracked. The system's
// goal is exposing bugs via fault injection, not preventing races, so this
// window is tolerated.
package detector

import (
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kolkov/doublefetch/internal/fetch/registry"
	"github.com/kolkov/doublefetch/internal/fetch/span"
)

// defaultCorruptProb is the production fault-injection probability.
const defaultCorruptProb = 0.5

// Options configures a Detector. The zero value selects production defaults.
type Options struct {
	// CorruptProb is the probability that a detected double fetch corrupts
	// the live bytes. 0 selects the default of 0.5; negative disables
	// corruption entirely; 1 forces it on every detection (useful in tests).
	CorruptProb float64

	// Rand supplies the corruption coin flips and replacement bytes.
	// Nil selects a PCG source seeded from the process-global generator.
	// Tests inject a fixed-seed source for determinism.
	Rand *rand.Rand

	// Memory provides the view of the bytes behind checked addresses.
	// Nil selects the live process address space.
	Memory Memory

	// Output receives diagnostic text. Nil selects os.Stderr.
	Output io.Writer
}

// Stats is a snapshot of detector counters.
type Stats struct {
	// Checks counts CheckAccess calls that resolved to a watched region.
	Checks uint64
	// Reads and Writes split Checks by access kind.
	Reads  uint64
	Writes uint64
	// DoubleFetches counts reads that overlapped an already-read range.
	DoubleFetches uint64
	// Corruptions counts double fetches where the coin flip injected
	// random bytes into the live range.
	Corruptions uint64
}

// Detector binds memory accesses to per-region access trackers.
//
// All methods are synchronous calls on the caller's goroutine with no
// internal suspension points, no I/O beyond the diagnostic writer, and cost
// bounded by the number of spans touched. Safe for concurrent use.
type Detector struct {
	regions *registry.Registry

	prob float64
	mem  Memory
	out  io.Writer

	// rng guarded by rngMu; only touched off the hot path, after a double
	// fetch is already detected.
	rngMu sync.Mutex
	rng   *rand.Rand

	checks        atomic.Uint64
	reads         atomic.Uint64
	writes        atomic.Uint64
	doubleFetches atomic.Uint64
	corruptions   atomic.Uint64
}

// New creates a detector with the given options.
func New(opts Options) *Detector {
	prob := opts.CorruptProb
	switch {
	case prob == 0:
		prob = defaultCorruptProb
	case prob < 0:
		prob = 0
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	mem := opts.Memory
	if mem == nil {
		mem = LiveMemory{}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	return &Detector{
		regions: registry.New(),
		prob:    prob,
		mem:     mem,
		out:     out,
		rng:     rng,
	}
}

// WatchRegion begins tracking reads in [addr, addr+size).
func (d *Detector) WatchRegion(addr span.Address, size uintptr) {
	logf(d.out, "watching memory region at %#x, len=%#x", addr, size)
	d.regions.Watch(addr, size)
}

// UnwatchRegion stops tracking the region containing addr, dropping all of
// its tracker state. No-op if no region matches.
func (d *Detector) UnwatchRegion(addr span.Address) {
	if d.regions.Unwatch(addr) {
		logf(d.out, "unwatched memory region containing %#x", addr)
	}
}

// CheckAccess runs the double-fetch protocol for one memory access.
//
// The return value is informational only and never blocks the access:
//
//  1. Unwatched memory is never checked; return false immediately.
//  2. A write unconditionally refreshes the "seen" state for its range and
//     returns false. (Writes extend the tracked range rather than clearing
//     it; see the tracker's RemoveAccess for the alternative.)
//  3. A read that overlaps nothing is a first read: track it, return false.
//  4. A read overlapping an already-read range is a double fetch: report it,
//     corrupt the live bytes with probability CorruptProb, and still return
//     false — the accessing code is never aborted or retried from here.
//
// The registry lock is released before the region tracker's lock is taken,
// so checks on one region never block watch/unwatch traffic for another.
func (d *Detector) CheckAccess(addr span.Address, size uintptr, isWrite bool) bool {
	h := d.regions.Lookup(addr, size)
	if h == nil {
		return false
	}

	d.checks.Add(1)

	if isWrite {
		d.writes.Add(1)
		h.Track(addr, size)
		return false
	}

	d.reads.Add(1)

	if fault, overlap := h.Check(addr, size); overlap {
		d.doubleFetches.Add(1)
		d.reportDoubleFetch(addr, size, fault)
		return false
	}

	h.Track(addr, size)
	return false
}

// Regions exposes the registry for the bridge layer.
func (d *Detector) Regions() *registry.Registry {
	return d.regions
}

// Stats returns a snapshot of the detector counters.
func (d *Detector) Stats() Stats {
	return Stats{
		Checks:        d.checks.Load(),
		Reads:         d.reads.Load(),
		Writes:        d.writes.Load(),
		DoubleFetches: d.doubleFetches.Load(),
		Corruptions:   d.corruptions.Load(),
	}
}

// reportDoubleFetch emits the detection report and runs fault injection.
// Off the hot path: only reached once a double fetch is already detected.
func (d *Detector) reportDoubleFetch(addr span.Address, size uintptr, fault span.Address) {
	data := d.mem.Slice(addr, size)

	d.rngMu.Lock()
	corrupt := d.rng.Float64() < d.prob
	if corrupt {
		d.corruptions.Add(1)
	}
	writeReport(d.out, addr, size, fault, data, corrupt)
	if corrupt {
		for i := range data {
			data[i] = byte(d.rng.UintN(256))
		}
		writeCorruption(d.out, data)
	}
	d.rngMu.Unlock()
}
