// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "testing"

func TestThreadSafePolicy_LockUnlock(t *testing.T) {
	var p ThreadSafePolicy
	if !p.TryLock() {
		t.Fatal("TryLock on an unlocked policy should succeed")
	}
	if p.TryLock() {
		t.Fatal("TryLock on an already-locked policy should fail")
	}
	p.Unlock()
	p.Lock()
	p.Unlock()
}

func TestSingleThreadedPolicy_IsNoOp(t *testing.T) {
	var p SingleThreadedPolicy
	p.Lock()
	if !p.TryLock() {
		t.Fatal("SingleThreadedPolicy.TryLock should always report success")
	}
	p.Unlock()
}

func TestLockingPolicy_InterfaceSatisfaction(t *testing.T) {
	var policies = []LockingPolicy{&ThreadSafePolicy{}, &SingleThreadedPolicy{}}
	for _, p := range policies {
		p.Lock()
		p.Unlock()
	}
}
