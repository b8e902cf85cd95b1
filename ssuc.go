// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"
	"unsafe"
)

// ShmSafeUnmanagedChunk (SSUC) is the 8-byte, self-aligned,
// trivially-copyable slot type stored in every queue cell, history
// ring slot, and UsedChunkList entry. It wraps exactly one RelPtr,
// addressing the chunk's ChunkManagement record, so that reading the
// slot concurrently with a writer (e.g. a supervisor walking a
// crashed process's queue) never observes a torn value: the single
// aligned 64-bit load/store is atomic at the hardware level.
//
// Unlike SharedChunk, SSUC does not itself drive the refcount -- it
// is a transit representation. FromSharedChunk, ReleaseToSharedChunk
// and CloneToSharedChunk define the exact refcount semantics of each
// conversion.
type ShmSafeUnmanagedChunk struct {
	ptr RelPtr
}

// LogicalNullSSUC is the zero-value / null SSUC.
var LogicalNullSSUC = ShmSafeUnmanagedChunk{ptr: NullRelPtr}

// IsLogicalNull reports whether the slot currently holds no chunk.
func (s ShmSafeUnmanagedChunk) IsLogicalNull() bool {
	return s.ptr.IsNull()
}

func (s ShmSafeUnmanagedChunk) management(registry *SegmentRegistry) *ChunkManagement {
	if s.ptr.IsNull() {
		return nil
	}
	return (*ChunkManagement)(ToAbsolute(registry, s.ptr))
}

// Header returns the chunk header the slot refers to, or nil if the
// slot is logically null.
func (s ShmSafeUnmanagedChunk) Header(registry *SegmentRegistry) *ChunkHeader {
	m := s.management(registry)
	if m == nil {
		return nil
	}
	return (*ChunkHeader)(ToAbsolute(registry, m.Header))
}

// HasNoOtherOwners reports whether the chunk this slot refers to has
// a refcount of exactly 1, i.e. this slot is the sole owner.
func (s ShmSafeUnmanagedChunk) HasNoOtherOwners(registry *SegmentRegistry) bool {
	m := s.management(registry)
	return m != nil && m.RefCount() == 1
}

// FromSharedChunk moves ownership of sc into a new SSUC without
// touching the refcount: the slot now carries the single reference sc
// used to hold. sc is passed by value, so the caller's SharedChunk is
// not modified; it no longer owns a reference and must not be
// Released afterwards.
func FromSharedChunk(registry *SegmentRegistry, sc SharedChunk) ShmSafeUnmanagedChunk {
	if !sc.IsValid() {
		return LogicalNullSSUC
	}
	ptr := ToRelPtr(registry, unsafe.Pointer(sc.managementPtr()))
	sc.management = nil
	return ShmSafeUnmanagedChunk{ptr: ptr}
}

// ReleaseToSharedChunk moves ownership out of the slot into a returned
// SharedChunk without touching the refcount, and nulls the slot.
func (s *ShmSafeUnmanagedChunk) ReleaseToSharedChunk(registry *SegmentRegistry) SharedChunk {
	m := s.management(registry)
	if m == nil {
		return SharedChunk{}
	}
	s.ptr = NullRelPtr
	return WrapSharedChunk(registry, m)
}

// CloneToSharedChunk increments the refcount and returns a new
// SharedChunk; the slot retains its own ownership unchanged.
func (s ShmSafeUnmanagedChunk) CloneToSharedChunk(registry *SegmentRegistry) SharedChunk {
	m := s.management(registry)
	if m == nil {
		return SharedChunk{}
	}
	atomic.AddUint64(m.refcountPtr(), 1)
	return WrapSharedChunk(registry, m)
}
