package detector

import (
	"unsafe"

	"github.com/kolkov/doublefetch/internal/fetch/span"
)

// Memory is the detector's view of the bytes behind a checked address.
//
// The production implementation reads and writes the process address space
// directly; tests substitute a buffer-backed fake so corruption can be
// observed without handing the detector real pointers.
type Memory interface {
	// Slice returns the live bytes at [addr, addr+size). The caller
	// guarantees the range is valid, mapped and writable; the bridge layer
	// only registers regions that satisfy this. Writes to the returned
	// slice mutate the underlying memory.
	Slice(addr span.Address, size uintptr) []byte
}

// LiveMemory is the production Memory: a raw window onto the process address
// space. Inherently unsafe; every address that reaches it comes from a
// watched region the bridge vouched for.
type LiveMemory struct{}

// Slice returns the live byte range at addr.
//
//nolint:govet // unsafe uintptr->Pointer conversion is this type's purpose
func (LiveMemory) Slice(addr span.Address, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
