// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync"
	"unsafe"

	"code.hybscloud.com/shmipc/internal"
)

func init() {
	if !internal.SixtyFourBit {
		panic("shm: 64-bit architecture required for torn-write-proof relative pointers")
	}
}

const (
	// offsetBits is the width of the offset field packed into a RelPtr.
	offsetBits = 48
	offsetMask = 1<<offsetBits - 1

	// RawAddressSegmentID is the reserved id meaning "offset is an
	// absolute address, not relative to any registered segment".
	RawAddressSegmentID = 0

	// NullSegmentID is the reserved id for the null relative pointer.
	NullSegmentID = 1<<16 - 1

	// MaxSegmentID is the highest id that may be registered.
	MaxSegmentID = NullSegmentID - 1
)

// RelPtr is a position-independent pointer: a (segment id, offset) pair
// packed into a single 8-byte, self-aligned word so that a concurrent
// reader never observes a torn value. The upper 48 bits hold the
// offset, the lower 16 bits hold the segment id.
type RelPtr uint64

// NullRelPtr is the logical-null relative pointer.
const NullRelPtr RelPtr = RelPtr(NullSegmentID)

// newRelPtr packs offset into the upper 48 bits, truncating silently.
// For a registered segment, offset never exceeds the mapped region's
// size and the truncation never triggers. For RawAddressSegmentID,
// offset is a full process virtual address (see OffsetOf); this is
// safe on the linux/amd64 targets this package supports, where
// user-space addresses fit in 47 bits, but would corrupt a pointer on
// a platform with a wider address space.
func newRelPtr(id uint16, offset uint64) RelPtr {
	return RelPtr((offset&offsetMask)<<16 | uint64(id))
}

// SegmentID returns the segment id component.
func (p RelPtr) SegmentID() uint16 {
	return uint16(p)
}

// Offset returns the offset component.
func (p RelPtr) Offset() uint64 {
	return uint64(p) >> 16
}

// IsNull reports whether p is the logical-null relative pointer.
func (p RelPtr) IsNull() bool {
	return p.SegmentID() == NullSegmentID
}

// segment records one mapped region's bounds.
type segment struct {
	base unsafe.Pointer
	end  unsafe.Pointer
	used bool
}

// SegmentRegistry is a process-local table mapping segment ids to the
// base/end of their mapped region, used to resolve RelPtr values to
// real addresses regardless of where each process mapped the segment.
// Operations are protected by a plain mutex: the registry is populated
// at attach/detach time, never on a chunk hot path, so this never
// contends with the lock-free queue/mempool code.
type SegmentRegistry struct {
	mu       sync.Mutex
	segments [MaxSegmentID + 1]segment
	maxUsed  uint16
}

var defaultRegistry SegmentRegistry

// DefaultRegistry returns the process-wide registry singleton. Most
// callers should prefer threading an explicit *SegmentRegistry through
// their constructors; the singleton exists only as an ergonomic
// convenience for single-segment programs.
func DefaultRegistry() *SegmentRegistry { return &defaultRegistry }

// RegisterPtr finds the first free segment id in [1, MaxSegmentID],
// records (base, base+size-1) under it, and returns the id. It reports
// false if every id is already in use.
func (r *SegmentRegistry) RegisterPtr(base unsafe.Pointer, size uintptr) (id uint16, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := uint16(1); i <= MaxSegmentID; i++ {
		if !r.segments[i].used {
			r.segments[i] = segment{base: base, end: unsafe.Add(base, size-1), used: true}
			if i > r.maxUsed {
				r.maxUsed = i
			}
			return i, true
		}
	}
	return 0, false
}

// RegisterPtrWithID registers base/size under the requested id. It
// reports false if the id is already in use or out of range.
func (r *SegmentRegistry) RegisterPtrWithID(id uint16, base unsafe.Pointer, size uintptr) bool {
	if id == 0 || id > MaxSegmentID {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.segments[id].used {
		return false
	}
	r.segments[id] = segment{base: base, end: unsafe.Add(base, size-1), used: true}
	if id > r.maxUsed {
		r.maxUsed = id
	}
	return true
}

// UnregisterPtr invalidates id. It reports false if id was not
// registered. Every RelPtr carrying id becomes unresolvable afterwards.
func (r *SegmentRegistry) UnregisterPtr(id uint16) bool {
	if id == 0 || id > MaxSegmentID {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.segments[id].used {
		return false
	}
	r.segments[id] = segment{}
	return true
}

// SearchID returns the id of the segment containing p, scanning over
// every id registered so far. It returns RawAddressSegmentID if p does
// not lie within any registered segment, under the convention that the
// offset should then be interpreted as a raw address.
func (r *SegmentRegistry) SearchID(p unsafe.Pointer) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	pa := uintptr(p)
	for i := uint16(1); i <= r.maxUsed; i++ {
		s := &r.segments[i]
		if !s.used {
			continue
		}
		if pa >= uintptr(s.base) && pa <= uintptr(s.end) {
			return i
		}
	}
	return RawAddressSegmentID
}

// GetBase returns the base address registered for id.
func (r *SegmentRegistry) GetBase(id uint16) unsafe.Pointer {
	if id == RawAddressSegmentID {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.segments[id].base
}

// OffsetOf computes the offset of p within segment id. It returns 0
// for the null pointer and for RawAddressSegmentID returns the raw
// address of p as the "offset".
func (r *SegmentRegistry) OffsetOf(id uint16, p unsafe.Pointer) uint64 {
	if p == nil {
		return 0
	}
	if id == RawAddressSegmentID {
		return uint64(uintptr(p))
	}
	base := r.GetBase(id)
	return uint64(uintptr(p) - uintptr(base))
}

// Resolve converts (id, offset) back to an absolute pointer. It
// returns nil for the null segment id and interprets offset as a raw
// address when id is RawAddressSegmentID.
func (r *SegmentRegistry) Resolve(id uint16, offset uint64) unsafe.Pointer {
	if id == NullSegmentID {
		return nil
	}
	if id == RawAddressSegmentID {
		return unsafe.Pointer(uintptr(offset))
	}
	base := r.GetBase(id)
	if base == nil {
		return nil
	}
	return unsafe.Add(base, uintptr(offset))
}

// ToRelPtr converts an absolute pointer that lies within a segment
// registered in r into a RelPtr. It returns NullRelPtr if p is nil.
func ToRelPtr(r *SegmentRegistry, p unsafe.Pointer) RelPtr {
	if p == nil {
		return NullRelPtr
	}
	id := r.SearchID(p)
	return newRelPtr(id, r.OffsetOf(id, p))
}

// ToAbsolute resolves p back to an absolute pointer using r.
func ToAbsolute(r *SegmentRegistry, p RelPtr) unsafe.Pointer {
	if p.IsNull() {
		return nil
	}
	return r.Resolve(p.SegmentID(), p.Offset())
}
