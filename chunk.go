// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"
	"unsafe"
)

// ChunkManagement is the control block shared by every SharedChunk
// handle pointing at the same user chunk. It lives in shared memory
// (addressed via relative pointers so it survives being mapped at a
// different address in every process) and is itself allocated from a
// dedicated chunk-management pool, never from the general heap.
//
// Layout is a binary contract: header, refcount, mempool, and
// chunk-management-pool each occupy one 8-byte word, in this order,
// for a total of 32 bytes -- well within the 64-byte budget.
type ChunkManagement struct {
	Header              RelPtr
	refcount            uint64
	Mempool             RelPtr
	ChunkManagementPool RelPtr
}

// NewChunkManagement initializes management at the given chunk
// management record location with a refcount of 1.
func NewChunkManagement(management *ChunkManagement, header, mempool, chunkManagementPool RelPtr) {
	management.Header = header
	management.Mempool = mempool
	management.ChunkManagementPool = chunkManagementPool
	atomic.StoreUint64(&management.refcount, 1)
}

func (m *ChunkManagement) refcountPtr() *uint64 {
	return &m.refcount
}

// RefCount returns the current reference count. Intended for
// diagnostics; the value may change concurrently.
func (m *ChunkManagement) RefCount() uint64 {
	return atomic.LoadUint64(&m.refcount)
}

// SharedChunk is a process-local, refcounted handle to a chunk of
// shared memory. Copying a SharedChunk increments the control block's
// refcount; dropping one (Release) decrements it and, on the 1 -> 0
// transition, returns both the user chunk and the chunk-management
// record to their respective mempools.
//
// SharedChunk is NOT safe for concurrent use by multiple goroutines
// holding the *same* handle: the atomic refcount only protects
// sharing across distinct handles (e.g. one per goroutine, each
// produced by Clone). A single handle value must not be mutated
// concurrently, matching the single-threaded-ownership contract of
// the handle this type is modeled on.
type SharedChunk struct {
	registry   *SegmentRegistry
	management *ChunkManagement
}

// WrapSharedChunk constructs a SharedChunk around an already
// initialized ChunkManagement record (refcount == 1 on first wrap).
func WrapSharedChunk(registry *SegmentRegistry, management *ChunkManagement) SharedChunk {
	return SharedChunk{registry: registry, management: management}
}

// IsValid reports whether sc actually owns a chunk.
func (sc SharedChunk) IsValid() bool { return sc.management != nil }

// Header returns the chunk's header pointer.
func (sc SharedChunk) Header() *ChunkHeader {
	if sc.management == nil {
		return nil
	}
	return (*ChunkHeader)(ToAbsolute(sc.registry, sc.management.Header))
}

// Clone increments the refcount and returns a new handle sharing
// ownership of the same chunk.
func (sc SharedChunk) Clone() SharedChunk {
	if sc.management == nil {
		return SharedChunk{}
	}
	atomic.AddUint64(sc.management.refcountPtr(), 1)
	return sc
}

// Release decrements the refcount. On the 1 -> 0 transition it
// returns the user chunk to its mempool and the management record to
// the chunk-management pool, and sc becomes invalid. Release is a
// no-op on an already-invalid SharedChunk.
func (sc *SharedChunk) Release() {
	if sc.management == nil {
		return
	}
	m := sc.management
	// Acquire ordering on the decrement that observes zero ensures
	// every write the last owner made to the payload happens-before
	// the chunk is handed back to the pool for reuse.
	if atomic.AddUint64(m.refcountPtr(), ^uint64(0)) == 0 {
		headerPtr := ToAbsolute(sc.registry, m.Header)
		mempoolPtr := ToAbsolute(sc.registry, m.Mempool)
		cmPoolPtr := ToAbsolute(sc.registry, m.ChunkManagementPool)
		(*Mempool)(mempoolPtr).FreeChunk(headerPtr)
		(*Mempool)(cmPoolPtr).FreeChunk(unsafe.Pointer(m))
	}
	sc.management = nil
}

// RefCount returns the current refcount of the underlying chunk.
func (sc SharedChunk) RefCount() uint64 {
	if sc.management == nil {
		return 0
	}
	return sc.management.RefCount()
}

// managementPtr exposes the raw control-block pointer to package-internal
// collaborators (SSUC conversions) without making it part of the
// public API surface.
func (sc SharedChunk) managementPtr() *ChunkManagement { return sc.management }
