// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "sync/atomic"

// ResizableQueue wraps a ValueQueue with a runtime-adjustable
// capacity in [0, MaxCapacity]. Indices withdrawn from circulation by
// a capacity decrease are parked in unusedIndices, which is only ever
// touched while the resizing flag is held, so it needs no atomics of
// its own.
type ResizableQueue[T any] struct {
	_             noCopy
	inner         *ValueQueue[T]
	maxCapacity   uint32
	capacity      atomic.Uint64
	resizing      atomic.Bool
	unusedIndices []uint32
}

// NewResizableQueue constructs a ResizableQueue whose buffer is sized
// for maxCapacity and whose initial usable capacity is
// initialCapacity.
func NewResizableQueue[T any](maxCapacity, initialCapacity uint32) *ResizableQueue[T] {
	q := &ResizableQueue[T]{
		inner:       NewValueQueue[T](maxCapacity),
		maxCapacity: maxCapacity,
	}
	q.capacity.Store(uint64(maxCapacity))
	q.SetCapacity(initialCapacity, nil)
	return q
}

// MaxCapacity returns the fixed upper bound capacity can grow to.
func (q *ResizableQueue[T]) MaxCapacity() uint32 { return q.maxCapacity }

// Capacity returns the current usable capacity.
func (q *ResizableQueue[T]) Capacity() uint32 { return uint32(q.capacity.Load()) }

// Size returns the number of values currently queued.
func (q *ResizableQueue[T]) Size() uint64 { return q.inner.Size() }

// Empty reports whether the queue currently holds no value.
func (q *ResizableQueue[T]) Empty() bool { return q.inner.Empty() }

// TryPush inserts value at the current capacity, returning
// iox.ErrWouldBlock if full.
func (q *ResizableQueue[T]) TryPush(value T) error { return q.inner.TryPush(value) }

// Pop removes and returns the oldest value, or ok=false if empty.
func (q *ResizableQueue[T]) Pop() (value T, ok bool) { return q.inner.Pop() }

// Push inserts value, evicting the oldest element if the queue is at
// its current (not maximum) capacity. Unlike ValueQueue.Push this
// must consult the current capacity explicitly, since free indices
// withdrawn by a shrink must never be handed back out to a push.
func (q *ResizableQueue[T]) Push(value T) (evicted T, overflowed bool) {
	idx, ok := q.inner.free.Pop()
	for !ok {
		if oldIdx, full := q.inner.used.PopIfSizeIsAtLeast(q.Capacity()); full {
			evicted = q.inner.buffer[oldIdx]
			overflowed = true
			idx = oldIdx
			break
		}
		idx, ok = q.inner.free.Pop()
	}
	q.inner.buffer[idx] = value
	q.inner.used.Push(idx)
	if !overflowed {
		q.inner.size.Add(1)
	}
	return evicted, overflowed
}

// SetCapacity resizes the queue to newCapacity, which must not exceed
// MaxCapacity. It reports false if another resize is already in
// progress or newCapacity is out of range. When shrinking past
// elements still queued, onRemove (if non-nil) is invoked once per
// evicted element before its index is parked.
//
// TODO: a resize left mid-flight by a crashed writer (resizing stuck
// true forever) has no supervisor recovery path; see the corresponding
// open-question decision for why this is accepted as-is rather than
// given a robust-mutex style unstick.
func (q *ResizableQueue[T]) SetCapacity(newCapacity uint32, onRemove func(T)) bool {
	if newCapacity > q.maxCapacity {
		return false
	}
	if !q.resizing.CompareAndSwap(false, true) {
		return false
	}
	defer q.resizing.Store(false)

	for {
		cur := q.capacity.Load()
		if cur == uint64(newCapacity) {
			return true
		}
		if cur < uint64(newCapacity) {
			q.increaseCapacity(uint32(uint64(newCapacity) - cur))
		} else {
			q.decreaseCapacity(uint32(cur-uint64(newCapacity)), onRemove)
		}
	}
}

func (q *ResizableQueue[T]) increaseCapacity(by uint32) {
	n := by
	if uint32(len(q.unusedIndices)) < n {
		n = uint32(len(q.unusedIndices))
	}
	for i := uint32(0); i < n; i++ {
		idx := q.unusedIndices[len(q.unusedIndices)-1]
		q.unusedIndices = q.unusedIndices[:len(q.unusedIndices)-1]
		q.inner.free.Push(idx)
	}
	q.capacity.Add(uint64(n))
}

func (q *ResizableQueue[T]) decreaseCapacity(by uint32, onRemove func(T)) {
	for i := uint32(0); i < by; i++ {
		cur := uint32(q.capacity.Load())
		if cur == 0 {
			return
		}
		idx, ok := q.inner.free.Pop()
		if ok {
			q.unusedIndices = append(q.unusedIndices, idx)
			q.capacity.Add(^uint64(0))
			continue
		}
		idx, ok = q.inner.used.PopIfSizeIsAtLeast(1)
		if !ok {
			return
		}
		value := q.inner.buffer[idx]
		q.inner.size.Add(-1)
		if onRemove != nil {
			onRemove(value)
		}
		q.unusedIndices = append(q.unusedIndices, idx)
		q.capacity.Add(^uint64(0))
	}
}
