// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "sync/atomic"

// UniqueID is a process-local, monotonically increasing identifier
// used to address chunk queues and other per-instance objects without
// a lock. The zero value is never minted by NewUniqueID.
type UniqueID uint64

var uniqueIDCounter atomic.Uint64

// NewUniqueID returns the next id in the process-wide monotonic
// sequence, starting at 1.
func NewUniqueID() UniqueID {
	return UniqueID(uniqueIDCounter.Add(1))
}

const (
	portIDBitLength  = 48
	portIDRouDiShift = portIDBitLength
)

// InvalidPortID is the sentinel PortID meaning "no port".
const InvalidPortID PortID = 0

// PortID combines a 48-bit monotonic per-process counter with a
// 16-bit daemon prefix (set once via SetRouDiID), so ids minted by
// distinct daemons never collide.
type PortID uint64

var (
	portIDCounter atomic.Uint64
	roudiID       atomic.Uint32
	roudiIDSet    atomic.Bool
)

// SetRouDiID sets the 16-bit daemon prefix combined into every PortID
// minted afterwards. It panics if called more than once per process,
// since a changing prefix mid-flight would let two live ports collide.
func SetRouDiID(id uint16) {
	if !roudiIDSet.CompareAndSwap(false, true) {
		panic("shm: SetRouDiID called more than once")
	}
	roudiID.Store(uint32(id))
}

// RouDiID returns the daemon prefix set by SetRouDiID, or 0 if unset.
func RouDiID() uint16 { return uint16(roudiID.Load()) }

// NewPortID mints a PortID combining the current daemon prefix with a
// fresh monotonic counter value. It never returns InvalidPortID.
func NewPortID() PortID {
	n := portIDCounter.Add(1) & (1<<portIDBitLength - 1)
	return PortID(uint64(RouDiID())<<portIDRouDiShift | n)
}

// IsValid reports whether p is not InvalidPortID.
func (p PortID) IsValid() bool { return p != InvalidPortID }
