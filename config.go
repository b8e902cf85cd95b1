// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

// MempoolConfig describes one tier of a MemoryManager: chunk_size
// chunks, chunk_count of them, backed by their own LoFFLi free list.
// Config groups several tiers of increasing chunk_size so a requested
// payload size is served by the smallest tier that fits it.
type MempoolConfig struct {
	ChunkSize  uint32
	ChunkCount uint32
}

// Config is a plain value type describing the mempool tiers, the
// chunk-management pool sizing, and the default queue/history
// capacities an embedding application wires a MemoryManager and its
// ports up with. It is constructed directly by the embedder; the core
// takes no CLI flags or environment variables (§1, §6).
type Config struct {
	// Mempools must be sorted by ascending ChunkSize; AddMempool
	// maintains this invariant for callers that build the slice
	// incrementally instead of as a literal.
	Mempools []MempoolConfig

	// MaxChunksAllocatedSimultaneously bounds a ChunkSender's
	// UsedChunkList, and by extension each port's ChunkManagementPool
	// demand.
	MaxChunksAllocatedSimultaneously uint32

	// MaxQueues bounds a ChunkDistributor's subscriber vector.
	MaxQueues int

	// HistoryCapacity bounds a ChunkDistributor's history ring.
	HistoryCapacity uint64
}

// AddMempool appends a tier, keeping Mempools sorted by ChunkSize.
// It panics if chunkSize is not a multiple of 8, is below 32, or is
// smaller than the last (largest) already-configured tier's chunk
// size, since an
// out-of-order tier list would make FindMempool's best-fit scan wrong.
func (c *Config) AddMempool(chunkSize, chunkCount uint32) {
	if chunkSize%8 != 0 || chunkSize < 32 {
		panic("shm: mempool chunk_size must be a multiple of 8 and >= 32")
	}
	if n := len(c.Mempools); n > 0 && chunkSize < c.Mempools[n-1].ChunkSize {
		panic("shm: Config.AddMempool requires non-decreasing chunk sizes")
	}
	c.Mempools = append(c.Mempools, MempoolConfig{ChunkSize: chunkSize, ChunkCount: chunkCount})
}

// FindMempool returns the index of the smallest configured tier whose
// ChunkSize is >= requiredSize, or ok=false if no tier is large enough.
func (c *Config) FindMempool(requiredSize uint32) (index int, ok bool) {
	for i, mp := range c.Mempools {
		if mp.ChunkSize >= requiredSize {
			return i, true
		}
	}
	return 0, false
}

// RequiredChunkMemorySize returns the total payload-area byte size
// across every configured tier (see §6 "bump allocator carves out").
func (c *Config) RequiredChunkMemorySize() uint64 {
	var total uint64
	for _, mp := range c.Mempools {
		total += RequiredChunkMemorySize(mp.ChunkSize, mp.ChunkCount)
	}
	return total
}

// RequiredManagementMemorySize returns the total LoFFLi index-array
// byte size across every configured tier, plus the chunk-management
// pool's own index array.
func (c *Config) RequiredManagementMemorySize() uint64 {
	var total uint64
	for _, mp := range c.Mempools {
		total += RequiredManagementMemorySize(mp.ChunkCount)
	}
	total += RequiredManagementMemorySize(c.totalChunkCount())
	return total
}

// RequiredChunkManagementPoolMemorySize returns the payload-area byte
// size of the chunk-management pool, whose chunk_size is
// sizeof(ChunkManagement) and whose chunk_count equals the sum of
// every tier's chunk_count (the worst case where every chunk in the
// system is simultaneously allocated).
func (c *Config) RequiredChunkManagementPoolMemorySize() uint64 {
	return RequiredChunkMemorySize(chunkManagementSize, c.totalChunkCount())
}

// RequiredFullMemorySize is the grand total a segment host must
// reserve for this Config: every tier's payload and index memory,
// plus the chunk-management pool's payload and index memory.
func (c *Config) RequiredFullMemorySize() uint64 {
	return c.RequiredChunkMemorySize() + c.RequiredManagementMemorySize() + c.RequiredChunkManagementPoolMemorySize()
}

func (c *Config) totalChunkCount() uint32 {
	var total uint32
	for _, mp := range c.Mempools {
		total += mp.ChunkCount
	}
	return total
}

// chunkManagementSize is ChunkManagement's size rounded up to its
// pool's 8-byte chunk-size requirement; ChunkManagement is already
// exactly 32 bytes, itself a multiple of 8.
const chunkManagementSize = 32
