// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SegmentHost owns one POSIX shared-memory mapping: it creates (or
// attaches to) the shm object, sizes and maps it, and hands out a
// BumpAllocator over the mapped bytes so a MemoryManager can be built
// on top without any of its own syscalls.
type SegmentHost struct {
	_    noCopy
	fd   int
	name string
	data []byte
}

// CreateSegment creates (failing if it already exists) a POSIX
// shared-memory object named name, sized size bytes, and maps it
// read-write into this process.
func CreateSegment(name string, size uintptr) (*SegmentHost, error) {
	return openSegment(name, size, true)
}

// AttachSegment attaches to an already-created shared-memory object
// named name, mapping the first size bytes of it read-write.
func AttachSegment(name string, size uintptr) (*SegmentHost, error) {
	return openSegment(name, size, false)
}

func shmPath(name string) string {
	return fmt.Sprintf("/dev/shm/%s", name)
}

func openSegment(name string, size uintptr, create bool) (*SegmentHost, error) {
	flags := unix.O_RDWR
	if create {
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(shmPath(name), flags, 0600)
	if err != nil {
		if create {
			return nil, ErrMemoryCreationFailed
		}
		return nil, ErrMemoryNotAvailable
	}
	if create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return nil, ErrMemoryAllocationFailed
		}
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, ErrMemoryMappingFailed
	}
	return &SegmentHost{fd: fd, name: name, data: data}, nil
}

// Base returns the mapped region's start address.
func (s *SegmentHost) Base() unsafe.Pointer { return unsafe.Pointer(unsafe.SliceData(s.data)) }

// Size returns the mapped region's byte length.
func (s *SegmentHost) Size() uintptr { return uintptr(len(s.data)) }

// NewBumpAllocator returns a fresh BumpAllocator over the entire
// mapped region. Every process attaching the same segment and
// carving it up with the same Config sequence ends up with identical
// offsets.
func (s *SegmentHost) NewBumpAllocator() *BumpAllocator { return NewBumpAllocator(s.Base(), s.Size()) }

// Close unmaps the region and closes the file descriptor. The
// underlying shm object itself is left in place; call UnlinkSegment to
// remove it.
func (s *SegmentHost) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return ErrMemoryDestructionFailed
	}
	if err := unix.Close(s.fd); err != nil {
		return ErrMemoryDestructionFailed
	}
	return nil
}

// UnlinkSegment removes the named shared-memory object. Existing
// mappings of it remain valid until every process closes them.
func UnlinkSegment(name string) error {
	if err := unix.Unlink(shmPath(name)); err != nil {
		return ErrMemoryDestructionFailed
	}
	return nil
}
