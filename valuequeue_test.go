// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"errors"
	"testing"

	"code.hybscloud.com/iox"
)

func TestValueQueue_TryPushPop(t *testing.T) {
	q := NewValueQueue[int](4)
	if !q.Empty() {
		t.Fatal("fresh queue should be empty")
	}
	for i := 0; i < 4; i++ {
		if err := q.TryPush(i * 10); err != nil {
			t.Fatalf("TryPush(%d) failed: %v", i, err)
		}
	}
	if err := q.TryPush(999); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("TryPush on full queue = %v, want iox.ErrWouldBlock", err)
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() failed at iteration %d", i)
		}
		if v != i*10 {
			t.Fatalf("Pop() = %d, want %d (FIFO order)", v, i*10)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on empty queue should fail")
	}
}

func TestValueQueue_PushEvictsOldestOnOverflow(t *testing.T) {
	q := NewValueQueue[int](2)
	if _, overflowed := q.Push(1); overflowed {
		t.Fatal("Push into non-full queue should not overflow")
	}
	q.Push(2)
	evicted, overflowed := q.Push(3)
	if !overflowed {
		t.Fatal("Push into full queue should report overflow")
	}
	if evicted != 1 {
		t.Fatalf("evicted = %d, want 1 (oldest)", evicted)
	}
	v, ok := q.Pop()
	if !ok || v != 2 {
		t.Fatalf("Pop() = %d,%v want 2,true", v, ok)
	}
}

func TestValueQueue_Size(t *testing.T) {
	q := NewValueQueue[int](4)
	q.Push(1)
	q.Push(2)
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}
	q.Pop()
	if q.Size() != 1 {
		t.Fatalf("Size() after Pop = %d, want 1", q.Size())
	}
}
