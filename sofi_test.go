// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"errors"
	"testing"

	"code.hybscloud.com/iox"
)

func TestSoFi_TryPushPopFIFO(t *testing.T) {
	s := NewSoFi[int](3)
	for i := 0; i < 3; i++ {
		if err := s.TryPush(i); err != nil {
			t.Fatalf("TryPush(%d) failed: %v", i, err)
		}
	}
	if err := s.TryPush(99); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("TryPush on full ring = %v, want iox.ErrWouldBlock", err)
	}
	for i := 0; i < 3; i++ {
		v, ok := s.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() = %d,%v want %d,true", v, ok, i)
		}
	}
}

func TestSoFi_PushEvictsOldest(t *testing.T) {
	s := NewSoFi[int](2)
	s.Push(1)
	s.Push(2)
	evicted, overflowed := s.Push(3)
	if !overflowed || evicted != 1 {
		t.Fatalf("Push overflow: evicted=%d overflowed=%v, want 1,true", evicted, overflowed)
	}
	v, ok := s.Pop()
	if !ok || v != 2 {
		t.Fatalf("Pop() = %d,%v want 2,true", v, ok)
	}
}

func TestSoFi_SetCapacityRequiresEmpty(t *testing.T) {
	s := NewSoFi[int](4)
	s.Push(1)
	if s.SetCapacity(2) {
		t.Fatal("SetCapacity on a non-empty ring should fail")
	}
	s.Pop()
	if !s.SetCapacity(2) {
		t.Fatal("SetCapacity on an empty ring within bounds should succeed")
	}
	if s.Capacity() != 2 {
		t.Fatalf("Capacity() = %d, want 2", s.Capacity())
	}
}

func TestSoFi_SetCapacityBeyondBackingArrayFails(t *testing.T) {
	s := NewSoFi[int](2)
	if s.SetCapacity(10) {
		t.Fatal("SetCapacity beyond the original capacity should fail")
	}
}

func TestSoFi_PopIfRejectsCandidate(t *testing.T) {
	s := NewSoFi[int](4)
	s.Push(5)
	if _, ok := s.PopIf(func(v int) bool { return v != 5 }); ok {
		t.Fatal("PopIf should not pop when verify rejects the candidate")
	}
	if s.Size() != 1 {
		t.Fatalf("Size() after rejected PopIf = %d, want 1", s.Size())
	}
	v, ok := s.PopIf(func(v int) bool { return v == 5 })
	if !ok || v != 5 {
		t.Fatalf("PopIf accepting candidate = %d,%v want 5,true", v, ok)
	}
}
