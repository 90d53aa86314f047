//go:build linux

package shm

import "golang.org/x/sys/unix"

// SysV shared-memory syscall wrappers. Only the bridge uses these; the core
// never performs I/O or syscalls.

// Create makes a new private SysV shared-memory segment of size bytes.
func Create(size int) (id int, err error) {
	return unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
}

// Attach maps the segment id into the process address space and returns the
// live mapping.
func Attach(id int) ([]byte, error) {
	return unix.SysvShmAttach(id, 0, 0)
}

// Detach unmaps a mapping returned by Attach.
func Detach(data []byte) error {
	return unix.SysvShmDetach(data)
}

// SegmentSize asks the kernel for the size of segment id via IPC_STAT, for
// attach notifications that arrive without a pending record.
func SegmentSize(id int) (uintptr, error) {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(id, unix.IPC_STAT, &desc); err != nil {
		return 0, err
	}
	return uintptr(desc.Segsz), nil
}
