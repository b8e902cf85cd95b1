// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"code.hybscloud.com/iox"
)

// SoFi (safe overflowing FIFO) is a single-producer/single-consumer
// lock-free ring: on push overflow the oldest value is evicted and
// handed back to the caller instead of being silently dropped. The
// ring is sized capacity+1 internally so that read == write
// unambiguously means empty.
type SoFi[T any] struct {
	_     noCopy
	data  []T
	size  uint64 // current logical ring size == capacity+1
	read  atomic.Uint64
	write atomic.Uint64
}

// NewSoFi constructs an empty SoFi able to grow up to capacity via
// SetCapacity; its backing storage is sized for capacity once and
// never reallocated.
func NewSoFi[T any](capacity uint64) *SoFi[T] {
	return &SoFi[T]{data: make([]T, capacity+1), size: capacity + 1}
}

// Capacity returns the current logical capacity.
func (s *SoFi[T]) Capacity() uint64 { return s.size - 1 }

// Size returns a consistent snapshot of the number of queued values.
func (s *SoFi[T]) Size() uint64 {
	for {
		r := s.read.Load()
		w := s.write.Load()
		if s.read.Load() == r {
			return w - r
		}
	}
}

// Empty reports whether the ring currently holds no value.
func (s *SoFi[T]) Empty() bool { return s.Size() == 0 }

// SetCapacity changes the logical capacity. It requires the ring to
// currently be empty and newCapacity not to exceed the capacity given
// to NewSoFi, since the backing array is never reallocated; it
// reports false otherwise.
func (s *SoFi[T]) SetCapacity(newCapacity uint64) bool {
	if !s.Empty() || newCapacity+1 > uint64(len(s.data)) {
		return false
	}
	s.size = newCapacity + 1
	s.read.Store(0)
	s.write.Store(0)
	return true
}

// TryPush inserts valueIn, returning iox.ErrWouldBlock instead of
// evicting when the ring is full. Intended for callers that want
// BLOCK_PRODUCER-style backpressure instead of DISCARD_OLDEST_DATA.
func (s *SoFi[T]) TryPush(valueIn T) error {
	w := s.write.Load()
	r := s.read.Load()
	if w-r >= s.size-1 {
		return iox.ErrWouldBlock
	}
	s.data[w%s.size] = valueIn
	s.write.Store(w + 1)
	return nil
}

// Push inserts valueIn. If the ring is full, the oldest value is
// evicted to make room and returned together with overflowed=true.
func (s *SoFi[T]) Push(valueIn T) (evicted T, overflowed bool) {
	w := s.write.Load()
	nextW := w + 1
	s.data[w%s.size] = valueIn
	s.write.Store(nextW)

	r := s.read.Load()
	if nextW < r+s.size {
		return evicted, false
	}
	if s.read.CompareAndSwap(r, r+1) {
		evicted = s.data[r%s.size]
		return evicted, true
	}
	return evicted, false
}

// Pop removes and returns the oldest value, or ok=false if empty.
func (s *SoFi[T]) Pop() (value T, ok bool) {
	return s.PopIf(func(T) bool { return true })
}

// PopIf removes and returns the oldest value only if verify reports
// true for it, without ever blocking the producer's concurrent Push.
func (s *SoFi[T]) PopIf(verify func(T) bool) (value T, ok bool) {
	cur := s.read.Load()
	for {
		var next uint64
		var candidate T
		success := false
		if cur == s.write.Load() {
			next = cur
		} else {
			candidate = s.data[cur%s.size]
			if s.read.Load() == cur && verify(candidate) {
				next = cur + 1
				success = true
			} else {
				next = cur
			}
		}
		if s.read.CompareAndSwap(cur, next) {
			if success {
				return candidate, true
			}
			return value, false
		}
		cur = s.read.Load()
	}
}
