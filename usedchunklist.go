// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
	"github.com/rs/zerolog/log"
)

// UsedChunkList is the crash-safe bookkeeping structure a port uses to
// track every chunk it currently holds: an intrusive free/used list
// over a fixed array of SSUC slots. Because each slot is a single
// 8-byte, self-aligned store, a supervisor can always walk the used
// list of a crashed process without ever observing a torn entry, even
// though normal Insert/Remove are serialized only against each other
// (via a single atomic flag), not against a concurrent Cleanup.
type UsedChunkList struct {
	_            noCopy
	registry     *SegmentRegistry
	synchronizer atomic.Bool
	usedHead     uint32
	freeHead     uint32
	next         []uint32
	slots        []ShmSafeUnmanagedChunk
}

// NewUsedChunkList constructs an empty UsedChunkList able to hold up
// to capacity chunks simultaneously.
func NewUsedChunkList(registry *SegmentRegistry, capacity uint32) *UsedChunkList {
	l := &UsedChunkList{
		registry: registry,
		usedHead: capacity,
		next:     make([]uint32, capacity),
		slots:    make([]ShmSafeUnmanagedChunk, capacity),
	}
	for i := uint32(0); i < capacity; i++ {
		l.next[i] = i + 1
	}
	return l
}

func (l *UsedChunkList) capacity() uint32 { return uint32(len(l.slots)) }

func (l *UsedChunkList) lock() {
	sw := spin.Wait{}
	for !l.synchronizer.CompareAndSwap(false, true) {
		sw.Once()
	}
}

func (l *UsedChunkList) unlock() { l.synchronizer.Store(false) }

// Insert stores chunk, taking ownership of it. It returns false,
// leaving chunk's ownership with the caller, if the list is already
// at capacity.
func (l *UsedChunkList) Insert(chunk SharedChunk) bool {
	l.lock()
	defer l.unlock()
	if l.freeHead >= l.capacity() {
		return false
	}
	i := l.freeHead
	l.freeHead = l.next[i]
	l.slots[i] = FromSharedChunk(l.registry, chunk)
	l.next[i] = l.usedHead
	l.usedHead = i
	return true
}

// Remove finds the entry whose header is header, splices it out of
// the used list, and returns it as a SharedChunk with its refcount
// unchanged (ownership moves from the list to the caller).
func (l *UsedChunkList) Remove(header *ChunkHeader) (chunk SharedChunk, ok bool) {
	l.lock()
	defer l.unlock()
	prev := l.capacity()
	i := l.usedHead
	for i < l.capacity() {
		if l.slots[i].Header(l.registry) == header {
			if prev >= l.capacity() {
				l.usedHead = l.next[i]
			} else {
				l.next[prev] = l.next[i]
			}
			chunk = l.slots[i].ReleaseToSharedChunk(l.registry)
			l.next[i] = l.freeHead
			l.freeHead = i
			return chunk, true
		}
		prev = i
		i = l.next[i]
	}
	return SharedChunk{}, false
}

// Cleanup walks the used list and releases every remaining chunk back
// to its pools, returning every slot to the free list. It is meant for a supervisor to call after the owning
// process has died; calling it while the owner is still live races
// with its Insert/Remove and is undefined behavior.
func (l *UsedChunkList) Cleanup() {
	n := 0
	i := l.usedHead
	for i < l.capacity() {
		sc := l.slots[i].ReleaseToSharedChunk(l.registry)
		sc.Release()
		nxt := l.next[i]
		l.next[i] = l.freeHead
		l.freeHead = i
		i = nxt
		n++
	}
	l.usedHead = l.capacity()
	if n > 0 {
		log.Warn().Int("chunks_released", n).Msg("shm: used-chunk list cleanup released chunks from a crashed owner")
	}
}
