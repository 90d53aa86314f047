// Package registry maps watched shared-memory regions to their access
// trackers.
//
// The registry is an explicit object, not package state: exactly one instance
// exists per process, owned by the public API layer, which also enforces the
// one-time-init contract. Region spans are assumed pairwise non-overlapping;
// the bridge layer registers each OS mapping once.
//
// Locking protocol: the registry's own lock covers only the entry list. A
// lookup scans the list under a read lock, clones the tracker handle, and
// releases the registry lock BEFORE the caller takes the tracker's lock.
// Handles are shared pointers, so an in-flight check on one region never
// blocks watch/unwatch traffic for another, and there is no registry-then-
// tracker lock ordering to deadlock on.
package registry

import (
	"sync"

	"github.com/kolkov/doublefetch/internal/fetch/span"
	"github.com/kolkov/doublefetch/internal/fetch/tracker"
)

// LockedTracker is a shared handle to one region's access tracker, guarded by
// its own reader/writer lock.
//
// Mutations (Track, Remove, Clear) exclude all other users of the tracker;
// reads (Check, Ranges) may proceed together. Handles stay valid after the
// region is unwatched; they simply stop being reachable through Lookup.
type LockedTracker struct {
	mu sync.RWMutex
	tr *tracker.Tracker
}

func newLockedTracker() *LockedTracker {
	return &LockedTracker{tr: tracker.New()}
}

// Track marks [addr, addr+size) as read. Write lock.
func (lt *LockedTracker) Track(addr span.Address, size uintptr) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.tr.TrackAccess(addr, size)
}

// Remove clears the read mark on [addr, addr+size). Write lock.
func (lt *LockedTracker) Remove(addr span.Address, size uintptr) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.tr.RemoveAccess(addr, size)
}

// Check queries [addr, addr+size) for overlap with tracked ranges. Read lock.
func (lt *LockedTracker) Check(addr span.Address, size uintptr) (fault span.Address, overlap bool) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.tr.Check(addr, size)
}

// Ranges returns an ordered snapshot of the tracked (start, length) pairs.
// Read lock.
func (lt *LockedTracker) Ranges() []tracker.Range {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.tr.Ranges()
}

// Clear drops all tracked spans. Write lock.
func (lt *LockedTracker) Clear() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.tr.Clear()
}

type entry struct {
	region  span.Span
	tracker *LockedTracker
}

// Registry is the process-wide list of watched regions.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Watch begins tracking reads in [addr, addr+size) with a fresh tracker.
func (r *Registry) Watch(addr span.Address, size uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{
		region:  span.WithLen(addr, size),
		tracker: newLockedTracker(),
	})
}

// Unwatch stops tracking the region containing addr, dropping its tracker
// state. Matching uses a 1-byte probe: the first entry whose region has any
// non-None relation to [addr, addr+1) is removed. No-op when nothing matches.
func (r *Registry) Unwatch(addr span.Address) bool {
	probe := span.WithLen(addr, 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if probe.Relation(e.region) != span.None {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Lookup returns the tracker handle of the first region with any non-None
// relation to [addr, addr+size), or nil if the range is unwatched. Overlap
// suffices; the query need not be fully contained in the region.
//
// The registry lock is released before the handle is returned; callers take
// the tracker's own lock afterwards.
func (r *Registry) Lookup(addr span.Address, size uintptr) *LockedTracker {
	probe := span.WithLen(addr, size)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if probe.Relation(e.region) != span.None {
			return e.tracker
		}
	}
	return nil
}

// Len returns the number of watched regions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
