// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"fmt"
	"os"
	"testing"
)

func TestSegmentHost_CreateAttachUnlink(t *testing.T) {
	name := fmt.Sprintf("shmipc-test-%d", os.Getpid())
	const size = 4096

	host, err := CreateSegment(name, size)
	if err != nil {
		t.Skipf("shared memory unavailable in this environment: %v", err)
	}
	defer UnlinkSegment(name)
	defer host.Close()

	if host.Size() != size {
		t.Fatalf("Size() = %d, want %d", host.Size(), size)
	}

	a := host.NewBumpAllocator()
	p := a.Allocate(8)
	*(*uint64)(p) = 0x1122334455667788

	attached, err := AttachSegment(name, size)
	if err != nil {
		t.Fatalf("AttachSegment failed: %v", err)
	}
	defer attached.Close()

	b := attached.NewBumpAllocator()
	q := b.Allocate(8)
	if *(*uint64)(q) != 0x1122334455667788 {
		t.Fatal("attaching the segment from a second allocator did not see the first allocator's write")
	}
}

func TestCreateSegment_AlreadyExistsFails(t *testing.T) {
	name := fmt.Sprintf("shmipc-test-exists-%d", os.Getpid())
	host, err := CreateSegment(name, 4096)
	if err != nil {
		t.Skipf("shared memory unavailable in this environment: %v", err)
	}
	defer UnlinkSegment(name)
	defer host.Close()

	if _, err := CreateSegment(name, 4096); err == nil {
		t.Fatal("CreateSegment should fail when the segment already exists")
	}
}
