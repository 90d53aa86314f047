// Package tracker implements the per-region access tracker: a mergeable,
// splittable set of "already read" byte ranges with sub-linear overlap
// queries.
//
// The tracker owns a set of mutually disjoint, non-adjacent spans. Spans that
// would overlap or touch are merged eagerly on insert, so the set invariant
// holds after every mutation. Performance scales with the number of tracked
// spans, not with their size: 64-bit wide spans cost the same as 1-byte ones.
//
// Overlap queries use an ordered B-tree instead of a dedicated interval tree.
// To find every stored span intersecting [addr, addr+size), descend the tree
// from the first span starting below addr+size and walk toward lower starts,
// stopping at the first candidate whose end <= addr: because the set is
// ordered by start and disjoint, no earlier candidate can reach back over the
// query window. This gives O(log n + k) lookups, where k is the handful of
// spans actually touching the window. Deliberate choice: region counts stay
// small relative to region sizes, so a true interval tree buys nothing here.
package tracker

import (
	"fmt"
	"strings"

	"github.com/google/btree"

	"github.com/kolkov/doublefetch/internal/fetch/span"
)

// btreeDegree sizes the B-tree nodes. Tracked span counts stay small, so a
// modest degree keeps nodes cache-friendly without deep trees.
const btreeDegree = 8

// Tracker is a set of disjoint, non-adjacent spans marking the byte ranges
// already read in one region.
//
// Invariant: no two stored spans overlap or touch. TrackAccess merges
// eagerly, RemoveAccess splits exactly, and both fail fast (panic) if they
// ever observe a stored span whose relation to the request is impossible
// under that invariant.
//
// Thread Safety: NOT safe for concurrent use. Callers serialize access
// through the per-region lock owned by the registry.
type Tracker struct {
	spans *btree.BTreeG[span.Span]
}

// Range is one tracked (start, length) pair, as reported by Ranges.
type Range struct {
	Start span.Address
	Size  uintptr
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		spans: btree.NewG(btreeDegree, span.Span.Before),
	}
}

// TrackAccess marks [addr, addr+size) as read, merging with any stored spans
// it overlaps or touches so the disjoint/non-adjacent invariant holds.
//
// The probe window is widened by one byte on each side so that spans exactly
// adjacent to the new one are found and folded in. Matched spans contribute
// their far edge to the merged result:
//
//   - Engulf: the stored span covers the new one, take both its edges
//   - AdjacentStart/OverlapStart: stored span extends left, take its start
//   - AdjacentEnd/OverlapEnd: stored span extends right, take its end
//   - Break: stored span lies inside the new one, absorbed as-is
//
// Any other relation among probed matches means the stored set violated its
// own invariant; that is unrecoverable and panics.
func (t *Tracker) TrackAccess(addr span.Address, size uintptr) {
	next := span.WithLen(addr, size)

	// Widen by one byte on each side so adjacent spans match too,
	// saturating at both ends of the address space.
	lo := addr
	if lo > 0 {
		lo--
	}
	hi := satAdd(next.End(), 1)

	start, end := next.Start(), next.End()

	for _, stored := range t.overlapping(lo, hi) {
		t.spans.Delete(stored)

		// Operand order matters: Relation is asymmetric and the case
		// analysis below is written for next.Relation(stored).
		switch next.Relation(stored) {
		case span.Break:
			// Stored span lies strictly inside the new one; removing
			// it was all that was needed.
		case span.Engulf:
			start, end = stored.Start(), stored.End()
		case span.AdjacentStart, span.OverlapStart:
			start = stored.Start()
		case span.AdjacentEnd, span.OverlapEnd:
			end = stored.End()
		default:
			panic(fmt.Sprintf(
				"doublefetch: merge of %v probed unrelated stored span %v",
				next, stored))
		}
	}

	t.spans.ReplaceOrInsert(span.New(start, end))
}

// RemoveAccess clears the "read" mark on [addr, addr+size) from every
// overlapping stored span. Spans fully inside the window are dropped, spans
// crossing one edge are trimmed, and a span covering the whole window is
// split in two (empty halves are discarded). Clearing a range that is not
// tracked is a no-op.
//
// Any adjacency or disjoint relation among the strict-overlap matches is an
// invariant violation and panics.
func (t *Tracker) RemoveAccess(addr span.Address, size uintptr) {
	window := span.WithLen(addr, size)

	for _, stored := range t.overlapping(addr, window.End()) {
		t.spans.Delete(stored)

		// Same operand order as the merge path: window.Relation(stored).
		switch window.Relation(stored) {
		case span.Break:
			// Stored span lies strictly inside the cleared window; drop it.
		case span.OverlapEnd:
			// Stored span extends past the window's end; keep the tail.
			t.spans.ReplaceOrInsert(span.New(window.End(), stored.End()))
		case span.OverlapStart:
			// Stored span extends before the window's start; keep the head.
			t.spans.ReplaceOrInsert(span.New(stored.Start(), window.Start()))
		case span.Engulf:
			// Stored span covers the window; split around it.
			if left := span.New(stored.Start(), window.Start()); left.Len() > 0 {
				t.spans.ReplaceOrInsert(left)
			}
			if right := span.New(window.End(), stored.End()); right.Len() > 0 {
				t.spans.ReplaceOrInsert(right)
			}
		default:
			panic(fmt.Sprintf(
				"doublefetch: clear of %v probed unrelated stored span %v",
				window, stored))
		}
	}
}

// Check reports whether any part of [addr, addr+size) overlaps a stored span.
//
// On overlap it returns the start address of the highest-start offending span
// and true; otherwise it returns 0 and false.
func (t *Tracker) Check(addr span.Address, size uintptr) (fault span.Address, overlap bool) {
	hi := satAdd(addr, size)

	t.spans.DescendLessOrEqual(span.New(hi, hi), func(s span.Span) bool {
		if s.Start() >= hi {
			return true // pivot-equal entry, not in the window
		}
		if s.End() <= addr {
			return false // ordered and disjoint: nothing lower can overlap
		}
		fault, overlap = s.Start(), true
		return false
	})

	return fault, overlap
}

// Len returns the number of stored spans. Merging and splitting mean this can
// be greater or less than the number of TrackAccess calls made.
func (t *Tracker) Len() int {
	return t.spans.Len()
}

// IsEmpty reports whether no spans are tracked.
func (t *Tracker) IsEmpty() bool {
	return t.spans.Len() == 0
}

// Clear drops all tracked spans.
func (t *Tracker) Clear() {
	t.spans.Clear(false)
}

// Ranges returns the tracked (start, length) pairs ordered by start address.
//
// The slice is a fresh snapshot on every call; it does not observe later
// mutations and the enumeration is re-callable but not resumable.
func (t *Tracker) Ranges() []Range {
	out := make([]Range, 0, t.spans.Len())
	t.spans.Ascend(func(s span.Span) bool {
		out = append(out, Range{Start: s.Start(), Size: s.Len()})
		return true
	})
	return out
}

// String formats the tracked spans for diagnostics.
func (t *Tracker) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	t.spans.Ascend(func(s span.Span) bool {
		fmt.Fprintf(&b, "\t%v\n", s)
		return true
	})
	b.WriteString("}\n")
	return b.String()
}

// overlapping collects the stored spans intersecting the half-open window
// [lo, hi), highest start first: every span with start < hi and end > lo.
//
// This is the shared descend-and-early-stop primitive behind TrackAccess,
// RemoveAccess and Check. The scan walks stored spans descending by start
// and stops at the first candidate whose end <= lo; the set being ordered
// and disjoint guarantees no earlier candidate can overlap.
func (t *Tracker) overlapping(lo, hi span.Address) []span.Span {
	var out []span.Span
	t.spans.DescendLessOrEqual(span.New(hi, hi), func(s span.Span) bool {
		if s.Start() >= hi {
			return true
		}
		if s.End() <= lo {
			return false
		}
		out = append(out, s)
		return true
	})
	return out
}

// satAdd adds size to addr, clamping at the top of the address space.
func satAdd(addr span.Address, size uintptr) span.Address {
	sum := addr + size
	if sum < addr {
		return ^span.Address(0)
	}
	return sum
}
