// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "unsafe"

// BumpAllocator carves fixed-size regions out of a single
// caller-provided byte range in order, bumping an offset forward on
// each call and never reclaiming. It is how a Config's mempool tiers
// and chunk-management pool get their backing memory out of one
// mapped shared-memory segment (§6): every process that maps the
// segment and runs the same allocation sequence against the same
// Config ends up with identical offsets, so no metadata about the
// layout needs to be written to the segment itself.
type BumpAllocator struct {
	_      noCopy
	base   unsafe.Pointer
	size   uintptr
	offset uintptr
}

// NewBumpAllocator constructs a BumpAllocator over the byte range
// [base, base+size).
func NewBumpAllocator(base unsafe.Pointer, size uintptr) *BumpAllocator {
	return &BumpAllocator{base: base, size: size}
}

// Allocate reserves n bytes 8-byte aligned and returns a pointer to
// them. It panics if the allocator's backing range is exhausted,
// since that means the segment was sized from a different Config than
// the one driving this allocation sequence.
func (a *BumpAllocator) Allocate(n uintptr) unsafe.Pointer {
	aligned := (a.offset + 7) &^ 7
	if aligned+n > a.size {
		panic("shm: bump allocator exhausted its backing region")
	}
	p := unsafe.Add(a.base, aligned)
	a.offset = aligned + n
	return p
}

// Remaining returns the number of bytes still available.
func (a *BumpAllocator) Remaining() uintptr {
	aligned := (a.offset + 7) &^ 7
	if aligned >= a.size {
		return 0
	}
	return a.size - aligned
}

// allocateUint32Slice is a small helper for carving out a []uint32
// (used for LoFFLi next-arrays) from the allocator.
func allocateUint32Slice(a *BumpAllocator, n uint32) []uint32 {
	p := a.Allocate(uintptr(n) * 4)
	return unsafe.Slice((*uint32)(p), n)
}
