// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "sync/atomic"

// ChunkSenderData extends ChunkDistributorData with the port-level
// producer state: the MemoryManager chunks are allocated from,
// crash-safe in-use bookkeeping sized N+1 (N requested allocations
// held simultaneously, plus one more in flight for the
// allocate-before-release pattern), a monotonic per-port sequence
// number, and the last sent chunk kept around for TryGetPreviousChunk.
type ChunkSenderData struct {
	distributor        *ChunkDistributorData
	memoryManager      *MemoryManager
	chunksInUse        *UsedChunkList
	sequenceNumber     atomic.Uint64
	lastChunkUnmanaged ShmSafeUnmanagedChunk
}

// NewChunkSenderData constructs an empty ChunkSenderData.
func NewChunkSenderData(registry *SegmentRegistry, mm *MemoryManager, lock LockingPolicy, consumerTooSlowPolicy ConsumerTooSlowPolicy, maxQueues int, historyCapacity uint64, maxChunksAllocatedSimultaneously uint32) *ChunkSenderData {
	return &ChunkSenderData{
		distributor:   NewChunkDistributorData(registry, lock, maxQueues, historyCapacity, consumerTooSlowPolicy),
		memoryManager: mm,
		chunksInUse:   NewUsedChunkList(registry, maxChunksAllocatedSimultaneously+1),
	}
}

// ChunkSender is a port-level producer: it allocates chunks from a
// MemoryManager, tracks them crash-safely until sent or released, and
// fans sent chunks out through the embedded ChunkDistributor.
type ChunkSender struct {
	*ChunkDistributor
	data *ChunkSenderData
}

// NewChunkSender constructs a ChunkSender over data.
func NewChunkSender(data *ChunkSenderData) *ChunkSender {
	return &ChunkSender{ChunkDistributor: NewChunkDistributor(data.distributor), data: data}
}

// TryAllocate obtains a chunk sized for the given payload/header
// parameters, stamps originID into it, and tracks it in the sender's
// used-chunk list until Release, Send, or SendToQueue. It reports
// ErrTooManyChunksAllocatedInParallel if the used-chunk list (not the
// mempool) is the bottleneck.
func (s *ChunkSender) TryAllocate(originID PortID, userPayloadSize, userPayloadAlignment, userHeaderSize, userHeaderAlignment uint32) (*ChunkHeader, error) {
	chunk, err := s.data.memoryManager.GetChunk(originID, userPayloadSize, userPayloadAlignment, userHeaderSize, userHeaderAlignment)
	if err != nil {
		return nil, err
	}
	if !s.data.chunksInUse.Insert(chunk) {
		chunk.Release()
		return nil, ErrTooManyChunksAllocatedInParallel
	}
	return chunk.Header(), nil
}

// Release returns a chunk obtained from TryAllocate without sending
// it, e.g. because constructing the sample failed partway through.
func (s *ChunkSender) Release(header *ChunkHeader) {
	if chunk, ok := s.data.chunksInUse.Remove(header); ok {
		chunk.Release()
	}
}

func (s *ChunkSender) registry() *SegmentRegistry { return s.data.distributor.registry }

func (s *ChunkSender) getChunkReadyForSend(header *ChunkHeader) (SharedChunk, bool) {
	return s.data.chunksInUse.Remove(header)
}

func (s *ChunkSender) updateLastChunk(chunk SharedChunk) {
	bookkeeping := FromSharedChunk(s.registry(), chunk)
	old := s.data.lastChunkUnmanaged
	s.data.lastChunkUnmanaged = bookkeeping
	if !old.IsLogicalNull() {
		sc := old.ReleaseToSharedChunk(s.registry())
		sc.Release()
	}
}

// Send stamps the next sequence number into header, delivers the
// chunk to every subscriber and the history ring, and returns the
// number of subscribers it was delivered to. It is a no-op (returning
// 0) if header was not obtained from TryAllocate on this sender.
func (s *ChunkSender) Send(header *ChunkHeader) uint64 {
	chunk, ok := s.getChunkReadyForSend(header)
	if !ok {
		return 0
	}
	header.SequenceNumber = s.data.sequenceNumber.Add(1) - 1
	s.updateLastChunk(chunk.Clone())
	return s.DeliverToAllStoredQueues(chunk)
}

// SendToQueue behaves like Send but targets a single subscriber
// queue, addressed by uniqueID with hint as a last-known-index fast
// path. It reports whether the chunk reached that subscriber.
func (s *ChunkSender) SendToQueue(header *ChunkHeader, uniqueID UniqueID, hint int) bool {
	chunk, ok := s.getChunkReadyForSend(header)
	if !ok {
		return false
	}
	header.SequenceNumber = s.data.sequenceNumber.Add(1) - 1
	s.updateLastChunk(chunk.Clone())
	return s.DeliverToQueue(uniqueID, hint, chunk) == nil
}

// PushToHistory appends header's chunk directly to the history ring
// without delivering it to any subscriber, e.g. for keep-alive samples
// a late joiner should still see.
func (s *ChunkSender) PushToHistory(header *ChunkHeader) {
	if chunk, ok := s.getChunkReadyForSend(header); ok {
		s.ChunkDistributor.PushToHistory(chunk)
	}
}

// TryGetPreviousChunk returns the header of the last chunk sent by
// this sender, but only while this sender is still its sole owner
// (no subscriber or the history ring also holds a reference); this is
// the "safe to mutate in place for the next send" case.
func (s *ChunkSender) TryGetPreviousChunk() (*ChunkHeader, bool) {
	last := s.data.lastChunkUnmanaged
	if last.IsLogicalNull() || !last.HasNoOtherOwners(s.registry()) {
		return nil, false
	}
	return last.Header(s.registry()), true
}

// ReleaseAll returns every chunk this sender currently holds (i.e.
// allocated but neither sent nor released) to its pools. Intended for
// port teardown.
func (s *ChunkSender) ReleaseAll() {
	s.data.chunksInUse.Cleanup()
}
