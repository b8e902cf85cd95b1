// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "testing"

func TestResizableQueue_InitialCapacity(t *testing.T) {
	q := NewResizableQueue[int](8, 2)
	if q.MaxCapacity() != 8 {
		t.Fatalf("MaxCapacity() = %d, want 8", q.MaxCapacity())
	}
	if q.Capacity() != 2 {
		t.Fatalf("Capacity() = %d, want 2", q.Capacity())
	}
	if err := q.TryPush(1); err != nil {
		t.Fatalf("TryPush failed: %v", err)
	}
	if err := q.TryPush(2); err != nil {
		t.Fatalf("TryPush failed: %v", err)
	}
	if err := q.TryPush(3); err == nil {
		t.Fatal("TryPush beyond current capacity should fail")
	}
}

func TestResizableQueue_GrowAndShrink(t *testing.T) {
	q := NewResizableQueue[int](8, 2)
	if !q.SetCapacity(8, nil) {
		t.Fatal("growing to MaxCapacity should succeed")
	}
	for i := 0; i < 8; i++ {
		if err := q.TryPush(i); err != nil {
			t.Fatalf("TryPush(%d) failed after growth: %v", i, err)
		}
	}
	removed := make([]int, 0, 4)
	if !q.SetCapacity(4, func(v int) { removed = append(removed, v) }) {
		t.Fatal("shrinking while full should succeed, discarding oldest")
	}
	if len(removed) != 4 {
		t.Fatalf("onRemove called %d times, want 4", len(removed))
	}
	if q.Capacity() != 4 {
		t.Fatalf("Capacity() = %d, want 4", q.Capacity())
	}
	if q.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", q.Size())
	}
}

func TestResizableQueue_SetCapacityBeyondMaxFails(t *testing.T) {
	q := NewResizableQueue[int](4, 4)
	if q.SetCapacity(5, nil) {
		t.Fatal("SetCapacity beyond MaxCapacity should fail")
	}
}

func TestResizableQueue_PushEvictsAtCurrentCapacityNotMax(t *testing.T) {
	q := NewResizableQueue[int](8, 2)
	q.Push(1)
	q.Push(2)
	evicted, overflowed := q.Push(3)
	if !overflowed || evicted != 1 {
		t.Fatalf("Push at capacity 2 into a max-8 queue: evicted=%d overflowed=%v, want 1,true", evicted, overflowed)
	}
}
