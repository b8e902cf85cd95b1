// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"code.hybscloud.com/iox"
)

// ValueQueue is a lock-free FIFO of trivially-copyable values over a
// fixed-capacity buffer, layered on two IndexQueues (free/used): a
// push claims a free slot index and publishes it into the used ring;
// a pop does the reverse. T should be small and copyable, matching
// the chunk-slot (ShmSafeUnmanagedChunk) use this exists for.
type ValueQueue[T any] struct {
	_      noCopy
	free   *IndexQueue
	used   *IndexQueue
	buffer []T
	size   atomic.Int64
}

// NewValueQueue constructs an empty ValueQueue of the given capacity.
func NewValueQueue[T any](capacity uint32) *ValueQueue[T] {
	return &ValueQueue[T]{
		free:   NewFullIndexQueue(capacity),
		used:   NewIndexQueue(capacity),
		buffer: make([]T, capacity),
	}
}

// Capacity returns the fixed number of slots the queue was built with.
func (q *ValueQueue[T]) Capacity() uint32 { return q.free.Capacity() }

// Size returns the number of values currently queued.
func (q *ValueQueue[T]) Size() uint64 {
	if s := q.size.Load(); s > 0 {
		return uint64(s)
	}
	return 0
}

// Empty reports whether the queue currently holds no value.
func (q *ValueQueue[T]) Empty() bool { return q.Size() == 0 }

// TryPush inserts value, returning iox.ErrWouldBlock if the queue is
// full.
func (q *ValueQueue[T]) TryPush(value T) error {
	idx, ok := q.free.Pop()
	if !ok {
		return iox.ErrWouldBlock
	}
	q.buffer[idx] = value
	q.used.Push(idx)
	q.size.Add(1)
	return nil
}

// Push inserts value, evicting and returning the oldest element if
// the queue was full at the time of the call.
func (q *ValueQueue[T]) Push(value T) (evicted T, overflowed bool) {
	idx, ok := q.free.Pop()
	for !ok {
		if oldIdx, full := q.used.PopIfFull(); full {
			evicted = q.buffer[oldIdx]
			overflowed = true
			idx = oldIdx
			break
		}
		idx, ok = q.free.Pop()
	}
	q.buffer[idx] = value
	q.used.Push(idx)
	if !overflowed {
		q.size.Add(1)
	}
	return evicted, overflowed
}

// Pop removes and returns the oldest value, or ok=false if empty.
func (q *ValueQueue[T]) Pop() (value T, ok bool) {
	idx, ok := q.used.Pop()
	if !ok {
		return value, false
	}
	value = q.buffer[idx]
	q.free.Push(idx)
	q.size.Add(-1)
	return value, true
}
