// Package fetch provides a pure-Go double-fetch (TOCTOU) detector for shared
// memory regions.
//
// A double fetch is the same byte range read twice without an intervening
// write: code validates shared data with one read, then trusts it with a
// second, and an attacker mutates the data in between. This runtime flags
// that pattern as it happens and, with a fixed probability, corrupts the
// re-fetched bytes with random data so the latent bug becomes an observable
// inconsistency instead of a silent exploit path.
//
// # Quick Start
//
//	package main
//
//	import (
//		"unsafe"
//
//		"github.com/kolkov/doublefetch/fetch"
//	)
//
//	func main() {
//		fetch.Init()
//		defer fetch.Fini()
//
//		shared := make([]byte, 64)
//		base := uintptr(unsafe.Pointer(&shared[0]))
//		fetch.WatchRegion(base, uintptr(len(shared)))
//
//		fetch.CheckRead(base, 8) // validating read: tracked
//		_ = shared[:8]
//
//		fetch.CheckRead(base, 8) // trusting read: DOUBLE FETCH
//		_ = shared[:8]
//	}
//
// # API Overview
//
//   - Initialization and summary: [Init], [Fini]
//   - Region lifecycle: [WatchRegion], [UnwatchRegion]
//   - Access checking: [CheckAccess], [CheckRead], [CheckWrite]
//   - Shared-memory bridge: [RememberSegment], [RegisterAttach]
//   - Introspection: [GetStats], [GetInfo], [Version]
//
// # How It Works
//
// Each watched region owns an access tracker: a set of disjoint,
// non-adjacent spans marking the byte ranges already read. A write refreshes
// the tracked state for its range. A read is checked against the tracked
// set; overlap means those bytes were read before with no intervening write,
// which is the double-fetch signature. The tracker merges and splits spans
// eagerly and answers overlap queries in O(log n + k) through an ordered
// B-tree, so cost scales with the number of tracked spans, never with their
// size.
//
// Detection is deliberately non-blocking. CheckAccess always tells its
// caller to proceed; the report goes to stderr and the fault injection (50%
// of detections by default) does the rest. Corrupting only probabilistically
// keeps individual runs reproducible while making the bug surface across
// repeated runs.
//
// # Scope
//
// The detector finds double fetches on registered shared-memory regions. It
// is not a general heap out-of-bounds detector, it does not prevent the
// second fetch, and it never aborts the offending access.
//
// # Compatibility
//
//   - Go 1.24 or later, no CGO required
//   - SysV shared-memory helpers are Linux-only; the core is portable
//   - Safe for concurrent use from any goroutine after Init
package fetch
