// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// indexQueueEmptyBit/indexQueueTurnMask tag every cell with the "turn"
// (generation) the cell is waiting for, the same Nikolaev FIFO scheme
// the teacher's BoundedPool uses for its entries array, applied here
// directly to index values instead of through an indirect items
// array: for an IndexQueue the "item" already is the index.
const (
	indexQueueEmptyBit = 1 << 62
	indexQueueTurnMask = indexQueueEmptyBit>>32 - 1
)

// IndexQueue is a lock-free FIFO over the bounded integer range
// [0, Capacity). It is the building block both free_indices and
// used_indices rings in ValueQueue are made of: push of an index
// obtained from this same closed set never fails, since the number of
// indices in circulation can never exceed Capacity.
//
// Unlike BoundedPool, capacity is not required to be a power of two:
// cell positions are reduced mod capacity rather than masked, since
// mempool/queue capacities are arbitrary operator-chosen counts, not
// tuned allocator sizes.
type IndexQueue struct {
	_        noCopy
	capacity uint32
	cells    []atomic.Uint64
	head     atomic.Uint32
	tail     atomic.Uint32
}

// NewIndexQueue constructs an empty IndexQueue of the given capacity.
func NewIndexQueue(capacity uint32) *IndexQueue {
	q := &IndexQueue{capacity: capacity, cells: make([]atomic.Uint64, capacity)}
	for i := range q.cells {
		q.cells[i].Store(q.empty(0))
	}
	return q
}

// NewFullIndexQueue constructs an IndexQueue pre-loaded with every
// index in [0, capacity), used to seed a ValueQueue's free list.
func NewFullIndexQueue(capacity uint32) *IndexQueue {
	q := NewIndexQueue(capacity)
	for i := uint32(0); i < capacity; i++ {
		q.cells[i].Store(uint64(i))
	}
	q.tail.Store(capacity)
	return q
}

// Capacity returns the maximum number of indices the queue can hold.
func (q *IndexQueue) Capacity() uint32 { return q.capacity }

// Size returns the number of indices currently queued.
func (q *IndexQueue) Size() uint32 { return q.tail.Load() - q.head.Load() }

// Empty reports whether the queue currently holds no index.
func (q *IndexQueue) Empty() bool { return q.Size() == 0 }

func (q *IndexQueue) empty(turn uint32) uint64 {
	return indexQueueEmptyBit | uint64(turn&indexQueueTurnMask)
}

// Push enqueues index. Per the bounded-index-set precondition this
// never fails in correct use; an index outside [0, Capacity), or a
// full ring observed here, means a caller handed in an index from
// outside the queue's own closed set, which is a usage bug rather
// than a runtime condition, so it panics instead of spinning forever.
func (q *IndexQueue) Push(index uint32) {
	if index >= q.capacity {
		panic("shm: IndexQueue.Push index outside [0, Capacity)")
	}
	sw := spin.Wait{}
	e := uint64(index)
	for {
		t := q.tail.Load()
		if t != q.tail.Load() {
			sw.Once()
			continue
		}
		if t == q.head.Load()+q.capacity {
			panic("shm: IndexQueue.Push exceeded the bounded index set")
		}
		turn, ti := (t/q.capacity)&indexQueueTurnMask, t%q.capacity
		ok := q.cells[ti].CompareAndSwap(q.empty(turn), e)
		q.tail.CompareAndSwap(t, t+1)
		if ok {
			return
		}
		sw.Once()
	}
}

// Pop removes and returns the oldest index, or ok=false if empty.
func (q *IndexQueue) Pop() (index uint32, ok bool) {
	return q.popIfAtLeast(1)
}

// PopIfFull removes and returns the oldest index only if the queue
// was observed completely full (size == capacity) at the moment of
// the attempt.
func (q *IndexQueue) PopIfFull() (index uint32, ok bool) {
	return q.popIfAtLeast(q.capacity)
}

// PopIfSizeIsAtLeast removes and returns the oldest index only if the
// observed size was at least minSize.
func (q *IndexQueue) PopIfSizeIsAtLeast(minSize uint32) (index uint32, ok bool) {
	return q.popIfAtLeast(minSize)
}

func (q *IndexQueue) popIfAtLeast(minSize uint32) (uint32, bool) {
	sw := spin.Wait{}
	for {
		h, t := q.head.Load(), q.tail.Load()
		if h != q.head.Load() {
			sw.Once()
			continue
		}
		if t-h < minSize {
			return 0, false
		}
		hi := h % q.capacity
		e := q.cells[hi].Load()
		nextTurn := (h/q.capacity + 1) & indexQueueTurnMask
		if e == q.empty(nextTurn) {
			q.head.CompareAndSwap(h, h+1)
			sw.Once()
			continue
		}
		if q.cells[hi].CompareAndSwap(e, q.empty(nextTurn)) {
			q.head.CompareAndSwap(h, h+1)
			return uint32(e), true
		}
		q.head.CompareAndSwap(h, h+1)
		sw.Once()
	}
}
