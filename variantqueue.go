// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

// VariantQueueKind selects which concrete queue a VariantQueue wraps.
// The FIFO and SoFi MPSC kinds use the very same underlying
// implementation as their SPSC counterparts; the kind selects no
// different code path here. The FIFO kinds are backed by the
// lock-free ResizableQueue. Both SoFi kinds, SoFiMultiProducerSingleConsumer
// included, are backed by SoFi, which supports a single producer
// only.
type VariantQueueKind uint8

const (
	FIFOSingleProducerSingleConsumer VariantQueueKind = iota
	SoFiSingleProducerSingleConsumer
	FIFOMultiProducerSingleConsumer
	SoFiMultiProducerSingleConsumer
)

// VariantQueue is a chunk-queue's storage, erasing which of the
// FIFO/SoFi backends is in use behind one small API.
type VariantQueue[T any] struct {
	_    noCopy
	kind VariantQueueKind
	fifo *ResizableQueue[T]
	sofi *SoFi[T]
}

// NewVariantQueue constructs a VariantQueue of the requested kind and
// capacity.
func NewVariantQueue[T any](kind VariantQueueKind, capacity uint32) *VariantQueue[T] {
	vq := &VariantQueue[T]{kind: kind}
	switch kind {
	case SoFiSingleProducerSingleConsumer, SoFiMultiProducerSingleConsumer:
		vq.sofi = NewSoFi[T](uint64(capacity))
	default:
		vq.fifo = NewResizableQueue[T](capacity, capacity)
	}
	return vq
}

// Kind reports which backend this queue wraps.
func (vq *VariantQueue[T]) Kind() VariantQueueKind { return vq.kind }

// TryPush inserts value without evicting, returning iox.ErrWouldBlock
// if full.
func (vq *VariantQueue[T]) TryPush(value T) error {
	if vq.sofi != nil {
		return vq.sofi.TryPush(value)
	}
	return vq.fifo.TryPush(value)
}

// Push inserts value, evicting and returning the oldest element on
// overflow.
func (vq *VariantQueue[T]) Push(value T) (evicted T, overflowed bool) {
	if vq.sofi != nil {
		return vq.sofi.Push(value)
	}
	return vq.fifo.Push(value)
}

// Pop removes and returns the oldest value, or ok=false if empty.
func (vq *VariantQueue[T]) Pop() (value T, ok bool) {
	if vq.sofi != nil {
		return vq.sofi.Pop()
	}
	return vq.fifo.Pop()
}

// Empty reports whether the queue currently holds no value.
func (vq *VariantQueue[T]) Empty() bool {
	if vq.sofi != nil {
		return vq.sofi.Empty()
	}
	return vq.fifo.Empty()
}

// Size returns the number of values currently queued.
func (vq *VariantQueue[T]) Size() uint64 {
	if vq.sofi != nil {
		return vq.sofi.Size()
	}
	return vq.fifo.Size()
}

// Capacity returns the current usable capacity.
func (vq *VariantQueue[T]) Capacity() uint64 {
	if vq.sofi != nil {
		return vq.sofi.Capacity()
	}
	return uint64(vq.fifo.Capacity())
}

// SetCapacity resizes the queue, reporting false if the request could
// not be satisfied (SoFi requires the queue be empty; FIFO requires
// newCapacity <= its configured maximum).
func (vq *VariantQueue[T]) SetCapacity(newCapacity uint32) bool {
	if vq.sofi != nil {
		return vq.sofi.SetCapacity(uint64(newCapacity))
	}
	return vq.fifo.SetCapacity(newCapacity, nil)
}
