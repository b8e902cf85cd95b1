// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "unsafe"

// MemoryManager owns every mempool tier described by a Config plus the
// shared chunk-management pool, and hands out SharedChunk handles
// sized by best fit: the smallest configured tier whose chunk_size
// can hold the requested header+payload.
type MemoryManager struct {
	_                   noCopy
	registry            *SegmentRegistry
	mempools            []*Mempool
	mempoolSelfPtrs     []RelPtr
	chunkManagementPool *Mempool
	chunkManagementSelf RelPtr
}

// NewMemoryManager carves every tier in cfg (and the chunk-management
// pool) out of managementAllocator/chunkAllocator, in the order §6
// specifies, and registers each resulting Mempool's raw memory under
// registry so chunks it hands out can be converted to/from RelPtr.
func NewMemoryManager(registry *SegmentRegistry, cfg *Config, managementAllocator, chunkAllocator *BumpAllocator) *MemoryManager {
	mm := &MemoryManager{registry: registry}
	for _, tier := range cfg.Mempools {
		raw := chunkAllocator.Allocate(uintptr(RequiredChunkMemorySize(tier.ChunkSize, tier.ChunkCount)))
		indexMem := allocateUint32Slice(managementAllocator, RequiredLoFFLiIndexMemory(tier.ChunkCount))
		pool := NewMempool(raw, tier.ChunkSize, tier.ChunkCount, indexMem)
		mm.mempools = append(mm.mempools, pool)

		// The payload region itself is registered so that header
		// pointers InitChunkHeader hands back (which lie inside raw)
		// resolve to a stable RelPtr; the *Mempool object's own address
		// -- needed by SharedChunk.Release to call FreeChunk back on
		// the right pool -- is an entirely separate pointer and must
		// not share that registration.
		size := uintptr(RequiredChunkMemorySize(tier.ChunkSize, tier.ChunkCount))
		if _, ok := registry.RegisterPtr(raw, size); !ok {
			panic("shm: segment registry exhausted while registering a mempool")
		}
		mm.mempoolSelfPtrs = append(mm.mempoolSelfPtrs, ToRelPtr(registry, unsafe.Pointer(pool)))
	}

	total := cfg.totalChunkCount()
	cmRaw := chunkAllocator.Allocate(uintptr(RequiredChunkMemorySize(chunkManagementSize, total)))
	cmIndexMem := allocateUint32Slice(managementAllocator, RequiredLoFFLiIndexMemory(total))
	mm.chunkManagementPool = NewMempool(cmRaw, chunkManagementSize, total, cmIndexMem)
	cmSize := uintptr(RequiredChunkMemorySize(chunkManagementSize, total))
	if _, ok := registry.RegisterPtr(cmRaw, cmSize); !ok {
		panic("shm: segment registry exhausted while registering the chunk-management pool")
	}
	mm.chunkManagementSelf = ToRelPtr(registry, unsafe.Pointer(mm.chunkManagementPool))
	return mm
}

// NumberOfMempools returns how many payload tiers are configured.
func (mm *MemoryManager) NumberOfMempools() int { return len(mm.mempools) }

// MempoolInfo reports usedChunks/minFree/chunkCount/chunkSize for tier
// index.
func (mm *MemoryManager) MempoolInfo(index int) (usedChunks, minFree, chunkCount, chunkSize uint32) {
	p := mm.mempools[index]
	return p.UsedChunks(), p.MinFree(), p.ChunkCount(), p.ChunkSize()
}

// GetChunk obtains a chunk from the smallest tier able to hold a
// header+payload as described, initializes its ChunkHeader, and
// returns a SharedChunk owning it with refcount 1. It returns
// ErrNoMempoolsAvailable if no tier is large enough and
// ErrRunningOutOfChunks if the fitting tier is exhausted.
func (mm *MemoryManager) GetChunk(originPortID PortID, userPayloadSize, userPayloadAlignment, userHeaderSize, userHeaderAlignment uint32) (SharedChunk, error) {
	required := RequiredChunkSize(userHeaderSize, userPayloadSize, userPayloadAlignment, userHeaderAlignment)
	tierIndex := -1
	for i, p := range mm.mempools {
		if p.ChunkSize() >= required {
			tierIndex = i
			break
		}
	}
	if tierIndex < 0 {
		return SharedChunk{}, ErrNoMempoolsAvailable
	}
	pool := mm.mempools[tierIndex]
	raw := pool.GetChunk()
	if raw == nil {
		return SharedChunk{}, ErrRunningOutOfChunks
	}

	cmRaw := mm.chunkManagementPool.GetChunk()
	if cmRaw == nil {
		pool.FreeChunk(raw)
		return SharedChunk{}, ErrRunningOutOfChunks
	}

	hdr, _ := InitChunkHeader(raw, pool.ChunkSize(), 0, userHeaderSize, userPayloadSize, userPayloadAlignment, userHeaderAlignment, uint64(originPortID), 0)

	headerRel := ToRelPtr(mm.registry, unsafe.Pointer(hdr))
	mgmt := (*ChunkManagement)(cmRaw)
	NewChunkManagement(mgmt, headerRel, mm.mempoolSelfPtrs[tierIndex], mm.chunkManagementSelf)

	return WrapSharedChunk(mm.registry, mgmt), nil
}

// RequiredMemoryManagerChunkMemorySize returns cfg's total mempool-tier payload
// byte size; see Config.RequiredChunkMemorySize.
func RequiredMemoryManagerChunkMemorySize(cfg *Config) uint64 { return cfg.RequiredChunkMemorySize() }

// RequiredMemoryManagerManagementMemorySize returns cfg's total
// management-memory byte size across every tier plus the
// chunk-management pool.
func RequiredMemoryManagerManagementMemorySize(cfg *Config) uint64 {
	return cfg.RequiredManagementMemorySize()
}

// RequiredMemoryManagerFullMemorySize returns the grand total byte
// size a segment host must reserve to back a MemoryManager built from
// cfg.
func RequiredMemoryManagerFullMemorySize(cfg *Config) uint64 { return cfg.RequiredFullMemorySize() }
