// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"testing"
	"unsafe"
)

func TestBumpAllocator_AllocateIsSequentialAndAligned(t *testing.T) {
	buf := make([]byte, 256)
	a := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(buf)), uintptr(len(buf)))

	p1 := a.Allocate(3)
	p2 := a.Allocate(5)
	off2 := uintptr(p2) - uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if off2%8 != 0 {
		t.Fatalf("second allocation offset %d is not 8-byte aligned", off2)
	}
	if uintptr(p2) <= uintptr(p1) {
		t.Fatal("allocations must be monotonically increasing")
	}
}

func TestBumpAllocator_ExhaustionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic allocating past the backing region")
		}
	}()
	buf := make([]byte, 8)
	a := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(buf)), uintptr(len(buf)))
	a.Allocate(16)
}

func TestBumpAllocator_Remaining(t *testing.T) {
	buf := make([]byte, 32)
	a := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(buf)), uintptr(len(buf)))
	if a.Remaining() != 32 {
		t.Fatalf("Remaining() = %d, want 32", a.Remaining())
	}
	a.Allocate(8)
	if a.Remaining() != 24 {
		t.Fatalf("Remaining() after 8-byte allocation = %d, want 24", a.Remaining())
	}
}

func TestAllocateUint32Slice(t *testing.T) {
	buf := make([]byte, 64)
	a := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(buf)), uintptr(len(buf)))
	s := allocateUint32Slice(a, 4)
	if len(s) != 4 {
		t.Fatalf("len(s) = %d, want 4", len(s))
	}
	s[0] = 0xdeadbeef
	if s[0] != 0xdeadbeef {
		t.Fatal("slice should be writable and backed by the allocator's memory")
	}
}
