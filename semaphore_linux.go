// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shm

import (
	"time"

	"golang.org/x/sys/unix"
)

// UnnamedSemaphore is an inter-process counting semaphore backed by a
// single-member SysV semaphore set, addressed by its numeric id
// (itself placed in shared memory by the caller) rather than a
// filesystem path -- hence "unnamed". Post/Wait/TimedWait map
// directly onto Semop with a single Sembuf.
type UnnamedSemaphore struct {
	_  noCopy
	id int
}

// CreateUnnamedSemaphore allocates a new SysV semaphore set of one
// member initialized to initialValue.
func CreateUnnamedSemaphore(initialValue uint16) (*UnnamedSemaphore, error) {
	id, err := unix.Semget(unix.IPC_PRIVATE, 1, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, ErrInvalidSemaphoreHandle
	}
	s := &UnnamedSemaphore{id: id}
	if _, err := unix.Semctl(id, 0, unix.SETVAL, int(initialValue)); err != nil {
		return nil, ErrInvalidSemaphoreHandle
	}
	return s, nil
}

// OpenUnnamedSemaphore wraps an already-created semaphore set by id,
// as recovered from shared memory by another process.
func OpenUnnamedSemaphore(id int) *UnnamedSemaphore {
	return &UnnamedSemaphore{id: id}
}

// ID returns the SysV semaphore set id, meant to be stored in shared
// memory so another process can reconstruct this handle.
func (s *UnnamedSemaphore) ID() int { return s.id }

// Post increments the semaphore's value by one, waking at most one
// waiter blocked in Wait/TimedWait.
func (s *UnnamedSemaphore) Post() error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: 1, SemFlg: 0}}
	if err := unix.Semop(s.id, op); err != nil {
		return ErrSemaphoreOverflow
	}
	return nil
}

// Wait blocks until the semaphore's value is greater than zero, then
// decrements it.
func (s *UnnamedSemaphore) Wait() error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: -1, SemFlg: 0}}
	for {
		err := unix.Semop(s.id, op)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return ErrSemaphoreUndefined
	}
}

// TimedWait blocks until the semaphore's value is greater than zero
// or timeout elapses, returning ok=false on timeout.
func (s *UnnamedSemaphore) TimedWait(timeout time.Duration) (ok bool, err error) {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	op := []unix.Sembuf{{SemNum: 0, SemOp: -1, SemFlg: 0}}
	for {
		werr := unix.Semtimedop(s.id, op, &ts)
		if werr == nil {
			return true, nil
		}
		if werr == unix.EINTR {
			return false, ErrInterruptedBySignalHandler
		}
		if werr == unix.EAGAIN {
			return false, nil
		}
		return false, ErrSemaphoreUndefined
	}
}

// Destroy removes the underlying SysV semaphore set. No process may
// use the handle afterwards.
func (s *UnnamedSemaphore) Destroy() error {
	if _, err := unix.Semctl(s.id, 0, unix.IPC_RMID, 0); err != nil {
		return ErrInvalidSemaphoreHandle
	}
	return nil
}
