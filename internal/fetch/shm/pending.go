// Package shm is the shared-memory bridge: the glue between OS shared-memory
// segments and the watched-region registry.
//
// Segment discovery is two-phase. A segment created with shmget has an ID and
// a size but no address yet; it is remembered as a pending record. When the
// matching attach notification arrives (shmat), the record is consumed and
// the mapping's [addr, addr+size) range becomes a watched region. Unmatched
// attach notifications are ignored: only segments the bridge was told about
// get watched.
package shm

import "sync"

// Segment is a pending shared-memory record: a segment that exists but has
// not been attached yet.
type Segment struct {
	// ID is the OS identifier returned by shmget.
	ID int
	// Size is the segment size in bytes.
	Size uintptr
}

// PendingSet holds segments awaiting their attach notification.
//
// Thread Safety: all methods are safe for concurrent use.
type PendingSet struct {
	mu       sync.Mutex
	segments []Segment
}

// NewPendingSet creates an empty pending set.
func NewPendingSet() *PendingSet {
	return &PendingSet{}
}

// Remember records a segment awaiting attachment.
func (p *PendingSet) Remember(id int, size uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.segments = append(p.segments, Segment{ID: id, Size: size})
}

// TakeMatch consumes the first pending record with the given ID, returning
// its size. The record is removed; a second attach of the same ID finds no
// match unless it was remembered again.
func (p *PendingSet) TakeMatch(id int) (size uintptr, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, seg := range p.segments {
		if seg.ID == id {
			p.segments = append(p.segments[:i], p.segments[i+1:]...)
			return seg.Size, true
		}
	}
	return 0, false
}

// Len returns the number of records still awaiting attachment.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.segments)
}
