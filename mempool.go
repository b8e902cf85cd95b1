// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"
	"unsafe"
)

// Mempool is a fixed-size-chunk allocator backed by a LoFFLi free
// list. All chunks it hands out have the same size; a Config groups
// several mempools of increasing chunk_size into tiers.
type Mempool struct {
	_          noCopy
	chunkSize  uint32
	chunkCount uint32
	raw        unsafe.Pointer
	free       *LoFFLi
	usedChunks atomic.Uint32
	minFree    atomic.Uint32
}

// RequiredChunkMemorySize returns the byte size of the payload area
// for chunkCount chunks of chunkSize, 8-byte aligned.
func RequiredChunkMemorySize(chunkSize, chunkCount uint32) uint64 {
	return alignUp8(uint64(chunkSize) * uint64(chunkCount))
}

// RequiredManagementMemorySize returns the byte size of the LoFFLi
// index array needed to back chunkCount chunks, rounded up to 8 bytes
// as BumpAllocator aligns every allocation to 8.
func RequiredManagementMemorySize(chunkCount uint32) uint64 {
	return alignUp8(uint64(RequiredLoFFLiIndexMemory(chunkCount)) * 4)
}

// RequiredFullMemorySize is the sum of payload and management memory.
func RequiredFullMemorySize(chunkSize, chunkCount uint32) uint64 {
	return RequiredChunkMemorySize(chunkSize, chunkCount) + RequiredManagementMemorySize(chunkCount)
}

func alignUp8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// NewMempool constructs a Mempool over caller-provided memory: raw
// must point to at least RequiredChunkMemorySize(chunkSize, chunkCount)
// bytes, and indexMem must have length RequiredLoFFLiIndexMemory(chunkCount).
// chunkSize must be a multiple of 8 and at least 32; violating this is
// a configuration bug, not a runtime condition, so it panics.
func NewMempool(raw unsafe.Pointer, chunkSize, chunkCount uint32, indexMem []uint32) *Mempool {
	if chunkSize%8 != 0 || chunkSize < 32 {
		panic("shm: mempool chunk_size must be a multiple of 8 and >= 32")
	}
	m := &Mempool{
		chunkSize:  chunkSize,
		chunkCount: chunkCount,
		raw:        raw,
		free:       NewLoFFLi(indexMem, chunkCount),
	}
	m.minFree.Store(chunkCount)
	return m
}

// ChunkSize returns the fixed chunk size this pool hands out.
func (m *Mempool) ChunkSize() uint32 { return m.chunkSize }

// ChunkCount returns the total number of chunks this pool owns.
func (m *Mempool) ChunkCount() uint32 { return m.chunkCount }

// UsedChunks returns the number of chunks currently checked out.
func (m *Mempool) UsedChunks() uint32 { return m.usedChunks.Load() }

// MinFree returns the lowest number of free chunks observed over the
// pool's lifetime (a low-water mark; it never increases).
func (m *Mempool) MinFree() uint32 { return m.minFree.Load() }

// GetChunk allocates one chunk, returning nil if the pool is
// exhausted.
func (m *Mempool) GetChunk() unsafe.Pointer {
	idx, ok := m.free.Pop()
	if !ok {
		return nil
	}
	used := m.usedChunks.Add(1)
	for {
		free := m.chunkCount - used
		cur := m.minFree.Load()
		if free >= cur {
			break
		}
		if m.minFree.CompareAndSwap(cur, free) {
			break
		}
	}
	return m.indexToPointer(idx)
}

// FreeChunk returns a chunk previously obtained from GetChunk. It
// panics if p does not lie on a chunk boundary of this pool or if the
// index was already free (double free), since either indicates memory
// corruption visible to every process mapping this pool.
func (m *Mempool) FreeChunk(p unsafe.Pointer) {
	idx := m.pointerToIndex(p)
	m.free.Push(idx)
	m.usedChunks.Add(^uint32(0)) // -1
}

// IndexToPointer converts a free-list index into the base address of
// its chunk. Exported so the chunk-management pool can recompute
// offsets without storing raw pointers.
func (m *Mempool) IndexToPointer(idx uint32) unsafe.Pointer { return m.indexToPointer(idx) }

func (m *Mempool) indexToPointer(idx uint32) unsafe.Pointer {
	return unsafe.Add(m.raw, uintptr(idx)*uintptr(m.chunkSize))
}

// PointerToIndex is the inverse of IndexToPointer. It panics if p is
// not aligned to a chunk boundary of this pool.
func (m *Mempool) PointerToIndex(p unsafe.Pointer) uint32 { return m.pointerToIndex(p) }

func (m *Mempool) pointerToIndex(p unsafe.Pointer) uint32 {
	off := uintptr(p) - uintptr(m.raw)
	if off%uintptr(m.chunkSize) != 0 {
		panic("shm: pointer does not lie on a chunk boundary")
	}
	idx := off / uintptr(m.chunkSize)
	if idx >= uintptr(m.chunkCount) {
		panic("shm: pointer out of mempool range")
	}
	return uint32(idx)
}
