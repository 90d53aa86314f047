//go:build linux

package fetch

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/kolkov/doublefetch/internal/fetch/shm"
)

// Linux SysV shared-memory convenience layer. These helpers perform the
// shmat/shmdt calls themselves and keep the watched-region registry in sync,
// for programs that let the runtime own the segment lifecycle instead of
// feeding it RememberSegment/RegisterAttach notifications.

// CreateSegment creates a private SysV segment of size bytes and remembers it
// as pending, so the AttachSegment (or RegisterAttach) that follows watches
// the mapping with the right size.
func CreateSegment(size int) (int, error) {
	id, err := shm.Create(size)
	if err != nil {
		return 0, fmt.Errorf("create segment: %w", err)
	}
	RememberSegment(id, uintptr(size))
	return id, nil
}

// AttachSegment attaches the SysV segment id into the address space, watches
// the mapping, and returns it. The region size comes from the pending record
// when RememberSegment saw the segment first, otherwise from IPC_STAT.
func AttachSegment(id int) ([]byte, error) {
	s := get()

	data, err := shm.Attach(id)
	if err != nil {
		return nil, fmt.Errorf("attach segment %#x: %w", id, err)
	}

	size, ok := s.pending.TakeMatch(id)
	if !ok {
		size = uintptr(len(data))
		if sz, err := shm.SegmentSize(id); err == nil {
			size = sz
		}
	}

	base := uintptr(unsafe.Pointer(&data[0]))
	fmt.Fprintf(os.Stderr, "(doublefetch) attached segment id %#x at %#x len %#x\n", id, base, size)
	s.det.WatchRegion(base, size)
	return data, nil
}

// DetachSegment unwatches and detaches a mapping returned by AttachSegment.
func DetachSegment(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(&data[0]))
	get().det.UnwatchRegion(base)
	return shm.Detach(data)
}
