// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package shm

import "time"

// UnnamedSemaphore is unsupported on this platform: the core's
// cross-process blocking points (§5) rely on SysV semaphores, which
// are a Linux-specific facility in this module's dependency set. Every
// operation reports ErrSemaphoreUndefined rather than silently
// degrading to an in-process-only primitive, since a cross-process
// consumer waiting on it would otherwise hang forever without being
// told why.
type UnnamedSemaphore struct {
	_ noCopy
}

// CreateUnnamedSemaphore always fails on this platform.
func CreateUnnamedSemaphore(initialValue uint16) (*UnnamedSemaphore, error) {
	return nil, ErrSemaphoreUndefined
}

// OpenUnnamedSemaphore returns a handle whose operations all report
// ErrSemaphoreUndefined on this platform.
func OpenUnnamedSemaphore(id int) *UnnamedSemaphore { return &UnnamedSemaphore{} }

func (s *UnnamedSemaphore) ID() int { return -1 }

func (s *UnnamedSemaphore) Post() error { return ErrSemaphoreUndefined }

func (s *UnnamedSemaphore) Wait() error { return ErrSemaphoreUndefined }

func (s *UnnamedSemaphore) TimedWait(timeout time.Duration) (ok bool, err error) {
	return false, ErrSemaphoreUndefined
}

func (s *UnnamedSemaphore) Destroy() error { return ErrSemaphoreUndefined }
