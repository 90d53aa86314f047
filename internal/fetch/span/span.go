// Package span implements half-open address intervals and their relation
// algebra for the double-fetch detector.
//
// A Span is the value type [start, end) over virtual addresses. The Relation
// classifier is the foundation of interval merging and splitting in the
// access tracker: every merge/split decision reduces to one of seven cases.
//
// Relation is deliberately ASYMMETRIC: a.Relation(b) is not in general the
// inverse of b.Relation(a). Call sites depend on exact operand order, so this
// package never tries to normalize it.
package span

import "fmt"

// Address is a virtual memory address.
type Address = uintptr

// maxAddress is the saturation point for length arithmetic.
const maxAddress = ^Address(0)

// Span is a half-open address interval [start, end).
//
// Invariant: start <= end. Spans are immutable values; equality is by
// (start, end), ordering for set placement is by start only.
type Span struct {
	start Address
	end   Address
}

// Relation classifies one span against a reference span.
//
// The classification is evaluated against a reference span r as
// r.Relation(other); see the method for the exact precedence.
// Relations are derived on demand and never stored.
type Relation int

const (
	// None means the spans neither overlap nor touch.
	None Relation = iota
	// AdjacentStart means the other span ends exactly where the reference starts.
	AdjacentStart
	// AdjacentEnd means the other span starts exactly where the reference ends.
	AdjacentEnd
	// OverlapStart means the other span crosses the reference's start edge.
	OverlapStart
	// OverlapEnd means the other span crosses the reference's end edge.
	OverlapEnd
	// Engulf means the other span covers the reference completely.
	Engulf
	// Break means the other span lies strictly inside the reference.
	Break
)

// String returns the relation name for diagnostics.
func (r Relation) String() string {
	switch r {
	case None:
		return "None"
	case AdjacentStart:
		return "AdjacentStart"
	case AdjacentEnd:
		return "AdjacentEnd"
	case OverlapStart:
		return "OverlapStart"
	case OverlapEnd:
		return "OverlapEnd"
	case Engulf:
		return "Engulf"
	case Break:
		return "Break"
	default:
		return "Unknown"
	}
}

// New creates the span [start, end).
func New(start, end Address) Span {
	return Span{start: start, end: end}
}

// WithLen creates the span [start, start+size) with saturating arithmetic:
// if start+size would wrap past the top of the address space, the end clamps
// to the maximum address instead of wrapping or panicking.
func WithLen(start Address, size uintptr) Span {
	end := start + size
	if end < start {
		end = maxAddress
	}
	return Span{start: start, end: end}
}

// Start returns the inclusive lower bound.
func (s Span) Start() Address { return s.start }

// End returns the exclusive upper bound.
func (s Span) End() Address { return s.end }

// Len returns the span's length in bytes (end - start).
func (s Span) Len() uintptr { return s.end - s.start }

// Before reports whether s sorts before other.
//
// Ordering is by start address only; spans sharing a start compare equal for
// set-placement purposes. This is the Less function handed to the B-tree.
func (s Span) Before(other Span) bool {
	return s.start < other.start
}

// Relation classifies other against s, first match wins:
//
//  1. Engulf        — other.start <= s.start && other.end >= s.end
//  2. AdjacentStart — other.end == s.start
//  3. AdjacentEnd   — other.start == s.end
//  4. OverlapStart  — other.start < s.start && other.end > s.start
//  5. OverlapEnd    — other.end > s.end && other.start < s.end
//  6. Break         — other strictly inside s
//  7. None          — disjoint
//
// The precedence matters: a span that both engulfs and overlaps classifies as
// Engulf, and zero-length spans sitting on an edge classify as adjacency
// before overlap.
func (s Span) Relation(other Span) Relation {
	switch {
	case other.start <= s.start && other.end >= s.end:
		return Engulf
	case other.end == s.start:
		return AdjacentStart
	case other.start == s.end:
		return AdjacentEnd
	case other.start < s.start && other.end > s.start:
		return OverlapStart
	case other.end > s.end && other.start < s.end:
		return OverlapEnd
	case other.start > s.start && other.end < s.end:
		return Break
	default:
		return None
	}
}

// String formats the span as 0x%016x..0x%016x for diagnostics.
// Not used on the hot path.
func (s Span) String() string {
	return fmt.Sprintf("0x%016x..0x%016x", s.start, s.end)
}
