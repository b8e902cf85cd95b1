// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

// ChunkReceiverData extends ChunkQueueData with the port-level
// consumer state: crash-safe bookkeeping of chunks the application
// currently holds, sized maxChunksHeldSimultaneously+1 so a consumer
// can always pop one more chunk before it has released the previous
// one ("hold N, request one more").
type ChunkReceiverData struct {
	queue       *ChunkQueueData
	registry    *SegmentRegistry
	chunksInUse *UsedChunkList
}

// NewChunkReceiverData constructs an empty ChunkReceiverData.
func NewChunkReceiverData(registry *SegmentRegistry, kind VariantQueueKind, capacity uint32, queueFullPolicy QueueFullPolicy, maxChunksHeldSimultaneously uint32) *ChunkReceiverData {
	return &ChunkReceiverData{
		queue:       NewChunkQueueData(kind, capacity, queueFullPolicy),
		registry:    registry,
		chunksInUse: NewUsedChunkList(registry, maxChunksHeldSimultaneously+1),
	}
}

// QueueData exposes the underlying ChunkQueueData, e.g. so a
// ChunkDistributor can TryAddQueue it.
func (d *ChunkReceiverData) QueueData() *ChunkQueueData { return d.queue }

// ChunkReceiver is a port-level consumer: it pops chunks from its
// queue, tracks them crash-safely until the application releases them,
// and exposes the queue's has-lost-chunks bookkeeping.
type ChunkReceiver struct {
	data   *ChunkReceiverData
	popper *ChunkQueuePopper
}

// NewChunkReceiver constructs a ChunkReceiver over data.
func NewChunkReceiver(data *ChunkReceiverData) *ChunkReceiver {
	return &ChunkReceiver{data: data, popper: NewChunkQueuePopper(data.registry, data.queue)}
}

// TryGet pops the oldest queued chunk and tracks it as in-use,
// returning its header. header and err are both nil if the queue was
// empty. It
// reports ErrTooManyChunksAllocatedInParallel (leaving the chunk
// popped but released back to its pool) if the used-chunk list is
// already full.
func (r *ChunkReceiver) TryGet() (header *ChunkHeader, err error) {
	chunk, ok := r.popper.Pop()
	if !ok {
		return nil, nil
	}
	if !r.data.chunksInUse.Insert(chunk) {
		chunk.Release()
		return nil, ErrTooManyChunksAllocatedInParallel
	}
	return chunk.Header(), nil
}

// Release returns a chunk previously obtained from TryGet to its
// pools. It is a no-op if header was not currently tracked by this
// receiver.
func (r *ChunkReceiver) Release(header *ChunkHeader) {
	if chunk, ok := r.data.chunksInUse.Remove(header); ok {
		chunk.Release()
	}
}

// ReleaseAll returns every chunk this receiver currently holds to its
// pools. Intended for port teardown.
func (r *ChunkReceiver) ReleaseAll() { r.data.chunksInUse.Cleanup() }

// HasLostChunks reports, and clears, whether this receiver's queue
// ever discarded a chunk instead of delivering it.
func (r *ChunkReceiver) HasLostChunks() bool { return r.popper.ClearLostChunks() }

// Empty reports whether the receiver's queue currently holds no chunk.
func (r *ChunkReceiver) Empty() bool { return r.popper.Empty() }

// Size returns the number of chunks currently queued (not yet popped).
func (r *ChunkReceiver) Size() uint64 { return r.popper.Size() }
