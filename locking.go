// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "sync"

// LockingPolicy is the mutual-exclusion strategy a ChunkDistributor
// applies to its subscriber list and history ring. It is a plain
// interface rather than a compile-time template parameter, since Go
// has no equivalent of substituting a policy type at compile time; the
// zero-cost SingleThreadedPolicy keeps the no-synchronization case
// genuinely free of atomics.
type LockingPolicy interface {
	Lock()
	Unlock()
	TryLock() bool
}

// ThreadSafePolicy guards with a real mutex, for distributors shared
// by more than one goroutine.
type ThreadSafePolicy struct {
	mu sync.Mutex
}

func (p *ThreadSafePolicy) Lock()         { p.mu.Lock() }
func (p *ThreadSafePolicy) Unlock()       { p.mu.Unlock() }
func (p *ThreadSafePolicy) TryLock() bool { return p.mu.TryLock() }

// SingleThreadedPolicy is a no-op lock for single-goroutine embedders
// that need no synchronization at all.
type SingleThreadedPolicy struct{}

func (SingleThreadedPolicy) Lock()         {}
func (SingleThreadedPolicy) Unlock()       {}
func (SingleThreadedPolicy) TryLock() bool { return true }
