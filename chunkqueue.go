// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ChunkQueueData is the receiver-owned queue of chunk slots a
// ChunkDistributor fans out into. It carries its own unique id (so a
// distributor can address it by id across a hint-based fast path) and
// a sticky has-lost-chunks flag set whenever data was ever silently
// discarded for this queue.
type ChunkQueueData struct {
	_             noCopy
	UniqueID      UniqueID
	Queue         *VariantQueue[ShmSafeUnmanagedChunk]
	FullPolicy    QueueFullPolicy
	hasLostChunks atomic.Bool
}

// NewChunkQueueData constructs an empty ChunkQueueData with a fresh
// unique id.
func NewChunkQueueData(kind VariantQueueKind, capacity uint32, policy QueueFullPolicy) *ChunkQueueData {
	return &ChunkQueueData{
		UniqueID:   NewUniqueID(),
		Queue:      NewVariantQueue[ShmSafeUnmanagedChunk](kind, capacity),
		FullPolicy: policy,
	}
}

// HasLostChunks reports whether this queue ever discarded a chunk
// instead of delivering it.
func (d *ChunkQueueData) HasLostChunks() bool { return d.hasLostChunks.Load() }

// ClearLostChunks resets the has-lost-chunks flag, normally called by
// the subscriber after it has observed and accounted for the loss.
func (d *ChunkQueueData) ClearLostChunks() { d.hasLostChunks.Store(false) }

func (d *ChunkQueueData) setLostChunks() { d.hasLostChunks.Store(true) }

// ChunkQueuePusher is the producer-facing view of a ChunkQueueData:
// it owns exactly one concern, turning a SharedChunk into a queue
// entry according to the queue's full policy.
type ChunkQueuePusher struct {
	registry *SegmentRegistry
	data     *ChunkQueueData
}

// NewChunkQueuePusher constructs a pusher over data.
func NewChunkQueuePusher(registry *SegmentRegistry, data *ChunkQueueData) *ChunkQueuePusher {
	return &ChunkQueuePusher{registry: registry, data: data}
}

// Push takes ownership of chunk and attempts to enqueue it. On
// success (ok=true) chunk's ownership moved entirely into the queue
// and the zero SharedChunk is returned. On failure -- which can only
// happen under QueueFullPolicyBlockProducer -- ownership is handed
// back unchanged so the caller can retry or release it.
func (p *ChunkQueuePusher) Push(chunk SharedChunk) (ok bool, returned SharedChunk) {
	ssuc := FromSharedChunk(p.registry, chunk)
	if p.data.FullPolicy == QueueFullPolicyDiscardOldestData {
		evicted, overflowed := p.data.Queue.Push(ssuc)
		if overflowed {
			old := evicted.ReleaseToSharedChunk(p.registry)
			old.Release()
			p.data.setLostChunks()
			log.Debug().Uint64("queue_id", uint64(p.data.UniqueID)).Msg("shm: chunk queue discarded oldest data on overflow")
		}
		return true, SharedChunk{}
	}
	if err := p.data.Queue.TryPush(ssuc); err == nil {
		return true, SharedChunk{}
	}
	return false, ssuc.ReleaseToSharedChunk(p.registry)
}

// LostAChunk marks this queue as having dropped a chunk, used by a
// distributor that gave up delivering under
// ConsumerTooSlowPolicyDiscardOldestData.
func (p *ChunkQueuePusher) LostAChunk() { p.data.setLostChunks() }

// ChunkQueuePopper is the consumer-facing view of a ChunkQueueData.
type ChunkQueuePopper struct {
	registry *SegmentRegistry
	data     *ChunkQueueData
}

// NewChunkQueuePopper constructs a popper over data.
func NewChunkQueuePopper(registry *SegmentRegistry, data *ChunkQueueData) *ChunkQueuePopper {
	return &ChunkQueuePopper{registry: registry, data: data}
}

// Pop removes and returns the oldest chunk, or ok=false if empty.
func (p *ChunkQueuePopper) Pop() (chunk SharedChunk, ok bool) {
	ssuc, ok := p.data.Queue.Pop()
	if !ok {
		return SharedChunk{}, false
	}
	return ssuc.ReleaseToSharedChunk(p.registry), true
}

// Empty reports whether the queue currently holds no chunk.
func (p *ChunkQueuePopper) Empty() bool { return p.data.Queue.Empty() }

// Size returns the number of chunks currently queued.
func (p *ChunkQueuePopper) Size() uint64 { return p.data.Queue.Size() }

// ClearLostChunks resets the has-lost-chunks flag, returning its
// previous value so the caller can decide whether to surface it.
func (p *ChunkQueuePopper) ClearLostChunks() bool {
	had := p.data.HasLostChunks()
	p.data.ClearLostChunks()
	return had
}
