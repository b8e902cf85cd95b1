// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shm

import (
	"testing"
	"time"
)

func TestUnnamedSemaphore_PostWait(t *testing.T) {
	sem, err := CreateUnnamedSemaphore(0)
	if err != nil {
		t.Skipf("SysV semaphores unavailable in this environment: %v", err)
	}
	defer sem.Destroy()

	done := make(chan error, 1)
	go func() { done <- sem.Wait() }()

	time.Sleep(10 * time.Millisecond)
	if err := sem.Post(); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func TestUnnamedSemaphore_TimedWaitTimesOut(t *testing.T) {
	sem, err := CreateUnnamedSemaphore(0)
	if err != nil {
		t.Skipf("SysV semaphores unavailable in this environment: %v", err)
	}
	defer sem.Destroy()

	ok, err := sem.TimedWait(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("TimedWait returned an error instead of timing out: %v", err)
	}
	if ok {
		t.Fatal("TimedWait on a never-posted semaphore should time out")
	}
}

func TestUnnamedSemaphore_OpenByID(t *testing.T) {
	sem, err := CreateUnnamedSemaphore(1)
	if err != nil {
		t.Skipf("SysV semaphores unavailable in this environment: %v", err)
	}
	defer sem.Destroy()

	reopened := OpenUnnamedSemaphore(sem.ID())
	if err := reopened.Wait(); err != nil {
		t.Fatalf("Wait on a reopened handle failed: %v", err)
	}
}
