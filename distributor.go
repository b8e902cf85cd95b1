// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"unsafe"

	"code.hybscloud.com/spin"
	"github.com/rs/zerolog/log"
)

// ChunkDistributorData is the fan-out state a ChunkDistributor
// operates on: a fixed-capacity vector of relative pointers to
// subscriber queues (relative, since subscribers may live in another
// process mapping the same segment at a different address) plus a
// bounded history ring of the most recently published chunks, both
// guarded by a LockingPolicy.
type ChunkDistributorData struct {
	_                     noCopy
	lock                  LockingPolicy
	registry              *SegmentRegistry
	queues                []RelPtr
	maxQueues             int
	history               []ShmSafeUnmanagedChunk
	historyStart          int
	historyCount          int
	consumerTooSlowPolicy ConsumerTooSlowPolicy
}

// NewChunkDistributorData constructs an empty ChunkDistributorData.
func NewChunkDistributorData(registry *SegmentRegistry, lock LockingPolicy, maxQueues int, historyCapacity uint64, policy ConsumerTooSlowPolicy) *ChunkDistributorData {
	return &ChunkDistributorData{
		lock:                  lock,
		registry:              registry,
		queues:                make([]RelPtr, 0, maxQueues),
		maxQueues:             maxQueues,
		history:               make([]ShmSafeUnmanagedChunk, historyCapacity),
		consumerTooSlowPolicy: policy,
	}
}

func (d *ChunkDistributorData) historyCapacity() int { return len(d.history) }

func (d *ChunkDistributorData) historyAt(i int) ShmSafeUnmanagedChunk {
	return d.history[(d.historyStart+i)%len(d.history)]
}

// ChunkDistributor is the producer-side fan-out engine: it pushes a
// published chunk into every currently-subscribed queue and appends
// it to the history ring for late joiners.
type ChunkDistributor struct {
	data *ChunkDistributorData
}

// NewChunkDistributor constructs a ChunkDistributor over data.
func NewChunkDistributor(data *ChunkDistributorData) *ChunkDistributor {
	return &ChunkDistributor{data: data}
}

func (d *ChunkDistributor) resolve(p RelPtr) *ChunkQueueData {
	return (*ChunkQueueData)(ToAbsolute(d.data.registry, p))
}

// TryAddQueue subscribes queue, replaying up to requestedHistory of
// the most recent published chunks into it, and reports
// ErrQueueContainerOverflow if the subscriber vector is full.
// Re-adding an already-subscribed queue is a no-op.
func (d *ChunkDistributor) TryAddQueue(queue *ChunkQueueData, requestedHistory uint64) error {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()

	qp := ToRelPtr(data.registry, unsafe.Pointer(queue))
	for _, existing := range data.queues {
		if existing == qp {
			return nil
		}
	}
	if len(data.queues) >= data.maxQueues {
		return ErrQueueContainerOverflow
	}
	data.queues = append(data.queues, qp)

	n := data.historyCount
	start := 0
	if int(requestedHistory) < n {
		start = n - int(requestedHistory)
	}
	pusher := NewChunkQueuePusher(data.registry, queue)
	for i := start; i < n; i++ {
		ssuc := data.historyAt(i)
		ok, back := pusher.Push(ssuc.CloneToSharedChunk(data.registry))
		if !ok {
			back.Release()
		}
	}
	return nil
}

// TryRemoveQueue unsubscribes queue, reporting ErrQueueNotInContainer
// if it was not currently subscribed.
func (d *ChunkDistributor) TryRemoveQueue(queue *ChunkQueueData) error {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	qp := ToRelPtr(data.registry, unsafe.Pointer(queue))
	for i, existing := range data.queues {
		if existing == qp {
			data.queues = append(data.queues[:i], data.queues[i+1:]...)
			return nil
		}
	}
	return ErrQueueNotInContainer
}

// RemoveAllQueues unsubscribes every queue.
func (d *ChunkDistributor) RemoveAllQueues() {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	data.queues = data.queues[:0]
}

// HasStoredQueues reports whether at least one queue is subscribed.
func (d *ChunkDistributor) HasStoredQueues() bool {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	return len(data.queues) > 0
}

type pendingDelivery struct {
	queue RelPtr
	chunk SharedChunk
}

// DeliverToAllStoredQueues takes ownership of chunk and pushes a copy
// into every currently-subscribed queue, then appends chunk itself to
// the history ring. Queues using QueueFullPolicyBlockProducer under
// ConsumerTooSlowPolicyWaitForConsumer are retried, yielding briefly
// between rounds, until they accept the chunk or unsubscribe; every
// other full queue simply drops the chunk and sets its lost-chunks
// flag. It returns the number of queues the chunk was delivered to.
func (d *ChunkDistributor) DeliverToAllStoredQueues(chunk SharedChunk) uint64 {
	data := d.data
	var delivered uint64
	var awaiting []pendingDelivery
	willWait := data.consumerTooSlowPolicy == ConsumerTooSlowPolicyWaitForConsumer

	data.lock.Lock()
	for _, qp := range data.queues {
		q := d.resolve(qp)
		isBlocking := willWait && q.FullPolicy == QueueFullPolicyBlockProducer
		pusher := NewChunkQueuePusher(data.registry, q)
		ok, back := pusher.Push(chunk.Clone())
		switch {
		case ok:
			delivered++
		case isBlocking:
			awaiting = append(awaiting, pendingDelivery{queue: qp, chunk: back})
		default:
			delivered++
			pusher.LostAChunk()
			back.Release()
			log.Debug().Uint64("queue_id", uint64(q.UniqueID)).Msg("shm: distributor dropped a chunk for a full subscriber queue")
		}
	}
	data.lock.Unlock()

	for len(awaiting) > 0 {
		spin.Yield()
		data.lock.Lock()
		live := make(map[RelPtr]struct{}, len(data.queues))
		for _, qp := range data.queues {
			live[qp] = struct{}{}
		}
		var remaining []pendingDelivery
		for _, p := range awaiting {
			if _, ok := live[p.queue]; !ok {
				p.chunk.Release()
				continue
			}
			q := d.resolve(p.queue)
			pusher := NewChunkQueuePusher(data.registry, q)
			ok, back := pusher.Push(p.chunk)
			if ok {
				delivered++
			} else {
				remaining = append(remaining, pendingDelivery{queue: p.queue, chunk: back})
			}
		}
		awaiting = remaining
		data.lock.Unlock()
	}

	d.addToHistoryWithoutDelivery(chunk)
	return delivered
}

// QueueIndex returns the position of the queue identified by
// uniqueID within the subscriber vector, consulting hint first as a
// fast path before falling back to a linear scan.
func (d *ChunkDistributor) QueueIndex(uniqueID UniqueID, hint int) (int, bool) {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	return d.queueIndexLocked(uniqueID, hint)
}

func (d *ChunkDistributor) queueIndexLocked(uniqueID UniqueID, hint int) (int, bool) {
	data := d.data
	if hint >= 0 && hint < len(data.queues) && d.resolve(data.queues[hint]).UniqueID == uniqueID {
		return hint, true
	}
	for i, qp := range data.queues {
		if d.resolve(qp).UniqueID == uniqueID {
			return i, true
		}
	}
	return 0, false
}

// DeliverToQueue takes ownership of chunk and pushes it to the single
// subscriber identified by uniqueID (hint is a last-known index fast
// path), retrying under the same blocking rules as
// DeliverToAllStoredQueues. It reports ErrQueueNotInContainer,
// releasing chunk, if no such subscriber is currently stored.
func (d *ChunkDistributor) DeliverToQueue(uniqueID UniqueID, hint int, chunk SharedChunk) error {
	data := d.data
	current := chunk
	for {
		data.lock.Lock()
		idx, found := d.queueIndexLocked(uniqueID, hint)
		if !found {
			data.lock.Unlock()
			current.Release()
			return ErrQueueNotInContainer
		}
		q := d.resolve(data.queues[idx])
		willWait := data.consumerTooSlowPolicy == ConsumerTooSlowPolicyWaitForConsumer
		isBlocking := willWait && q.FullPolicy == QueueFullPolicyBlockProducer
		pusher := NewChunkQueuePusher(data.registry, q)
		ok, back := pusher.Push(current)
		data.lock.Unlock()
		if ok {
			return nil
		}
		if isBlocking {
			current = back
			spin.Yield()
			continue
		}
		pusher.LostAChunk()
		back.Release()
		return nil
	}
}

// PushToHistory takes ownership of chunk and appends it to the
// history ring without delivering it to any subscriber queue.
func (d *ChunkDistributor) PushToHistory(chunk SharedChunk) { d.addToHistoryWithoutDelivery(chunk) }

func (d *ChunkDistributor) addToHistoryWithoutDelivery(chunk SharedChunk) {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	if data.historyCapacity() == 0 {
		chunk.Release()
		return
	}
	if data.historyCount == data.historyCapacity() {
		oldest := data.history[data.historyStart]
		sc := oldest.ReleaseToSharedChunk(data.registry)
		sc.Release()
		data.historyStart = (data.historyStart + 1) % data.historyCapacity()
		data.historyCount--
	}
	idx := (data.historyStart + data.historyCount) % data.historyCapacity()
	data.history[idx] = FromSharedChunk(data.registry, chunk)
	data.historyCount++
}

// HistorySize returns the number of chunks currently kept in history.
func (d *ChunkDistributor) HistorySize() int {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	return data.historyCount
}

// HistoryCapacity returns the configured maximum history ring size.
func (d *ChunkDistributor) HistoryCapacity() int {
	return d.data.historyCapacity()
}

// ClearHistory releases every chunk currently kept in history.
func (d *ChunkDistributor) ClearHistory() {
	data := d.data
	data.lock.Lock()
	defer data.lock.Unlock()
	d.clearHistoryLocked()
}

func (d *ChunkDistributor) clearHistoryLocked() {
	data := d.data
	for i := 0; i < data.historyCount; i++ {
		ssuc := data.historyAt(i)
		sc := ssuc.ReleaseToSharedChunk(data.registry)
		sc.Release()
	}
	data.historyStart = 0
	data.historyCount = 0
}

// Cleanup releases the history ring, reporting false without doing so
// if the lock could not be acquired (another goroutine is mid
// delivery); it never blocks waiting for the lock. Per the accepted
// design decision, a failed Cleanup simply abandons the history for
// this call rather than silently retrying forever.
func (d *ChunkDistributor) Cleanup() bool {
	data := d.data
	if !data.lock.TryLock() {
		log.Warn().Msg("shm: chunk distributor cleanup could not acquire lock; history left for a later attempt")
		return false
	}
	defer data.lock.Unlock()
	d.clearHistoryLocked()
	return true
}
