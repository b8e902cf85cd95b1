// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// loffliInvalid marks a next-slot as "not currently free", used to
// detect double-free on Push.
const loffliInvalid = ^uint32(0)

// loffliHead packs the free-list head index and an ABA counter into
// one 64-bit word so CompareAndSwap on the head can't be fooled by a
// pop/push/pop cycle that returns the same index.
type loffliHead struct {
	index uint32
	aba   uint32
}

func (h loffliHead) pack() uint64 {
	return uint64(h.index) | uint64(h.aba)<<32
}

func unpackLoffliHead(v uint64) loffliHead {
	return loffliHead{index: uint32(v), aba: uint32(v >> 32)}
}

// LoFFLi is a lock-free, ABA-safe stack of bounded integer indices. It
// backs the mempool's free list: indices are drawn from [0, Capacity)
// and circulate between Pop and Push callers with no locking.
//
// The `next` array must be supplied by the caller so it can live in
// shared memory alongside the chunks it indexes.
type LoFFLi struct {
	_        noCopy
	next     []uint32
	capacity uint32
	head     atomic.Uint64
}

// NewLoFFLi initializes a LoFFLi over next, which must have length
// capacity+1 (slot `capacity` is never an index, only a sentinel).
// All capacity indices start out free.
func NewLoFFLi(next []uint32, capacity uint32) *LoFFLi {
	if uint32(len(next)) != capacity+1 {
		panic("shm: LoFFLi next slice must have length capacity+1")
	}
	l := &LoFFLi{next: next, capacity: capacity}
	for i := uint32(0); i < capacity; i++ {
		l.next[i] = i + 1
	}
	l.next[capacity] = loffliInvalid
	l.head.Store(loffliHead{index: 0, aba: 0}.pack())
	return l
}

// RequiredLoFFLiIndexMemory returns the number of uint32 slots a LoFFLi
// of the given capacity needs for its `next` array (capacity+1, for
// the sentinel slot).
func RequiredLoFFLiIndexMemory(capacity uint32) uint32 {
	return capacity + 1
}

// Pop removes and returns one free index. ok is false if the free
// list is empty.
func (l *LoFFLi) Pop() (out uint32, ok bool) {
	sw := spin.Wait{}
	for {
		cur := unpackLoffliHead(l.head.Load())
		if cur.index >= l.capacity {
			return 0, false
		}
		next := loffliHead{index: atomic.LoadUint32(&l.next[cur.index]), aba: cur.aba + 1}
		if l.head.CompareAndSwap(cur.pack(), next.pack()) {
			// Release fence: mark this slot not-free so a concurrent
			// Push of the same index before this point is observable
			// as a double free rather than silently succeeding.
			atomic.StoreUint32(&l.next[cur.index], loffliInvalid)
			return cur.index, true
		}
		sw.Once()
	}
}

// Push returns index to the free list. It panics if index was not
// previously obtained from Pop without an intervening Push (double
// free), since continuing would silently corrupt the free list for
// every process sharing it.
func (l *LoFFLi) Push(index uint32) {
	if index >= l.capacity {
		panic("shm: LoFFLi.Push index out of range")
	}
	// Acquire fence: observe whether a matching Pop already
	// invalidated this slot. Checked once, before this slot's `next`
	// entry is touched again below.
	if atomic.LoadUint32(&l.next[index]) != loffliInvalid {
		panic("shm: LoFFLi double free detected")
	}
	sw := spin.Wait{}
	for {
		cur := unpackLoffliHead(l.head.Load())
		atomic.StoreUint32(&l.next[index], cur.index)
		next := loffliHead{index: index, aba: cur.aba + 1}
		if l.head.CompareAndSwap(cur.pack(), next.pack()) {
			return
		}
		sw.Once()
	}
}
