// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"testing"
	"unsafe"
)

func newTestMemoryManager(t *testing.T, cfg *Config) *MemoryManager {
	t.Helper()
	registry := &SegmentRegistry{}
	chunkBuf := make([]byte, cfg.RequiredChunkMemorySize()+cfg.RequiredChunkManagementPoolMemorySize())
	mgmtBuf := make([]byte, cfg.RequiredManagementMemorySize())
	chunkAlloc := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(chunkBuf)), uintptr(len(chunkBuf)))
	mgmtAlloc := NewBumpAllocator(unsafe.Pointer(unsafe.SliceData(mgmtBuf)), uintptr(len(mgmtBuf)))
	return NewMemoryManager(registry, cfg, mgmtAlloc, chunkAlloc)
}

func TestMemoryManager_GetChunkBestFitAndRelease(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 4)
	cfg.AddMempool(256, 2)
	mm := newTestMemoryManager(t, &cfg)

	if mm.NumberOfMempools() != 2 {
		t.Fatalf("NumberOfMempools() = %d, want 2", mm.NumberOfMempools())
	}

	chunk, err := mm.GetChunk(NewPortID(), 16, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}
	_, _, _, chunkSize0 := mm.MempoolInfo(0)
	if chunkSize0 != 64 {
		t.Fatalf("tier 0 chunk size = %d, want 64", chunkSize0)
	}
	used0, _, _, _ := mm.MempoolInfo(0)
	if used0 != 1 {
		t.Fatalf("tier 0 used chunks = %d, want 1 (best-fit should pick the smallest tier)", used0)
	}

	chunk.Release()
	used0, _, _, _ = mm.MempoolInfo(0)
	if used0 != 0 {
		t.Fatalf("tier 0 used chunks after Release = %d, want 0", used0)
	}
}

func TestMemoryManager_NoMempoolAvailable(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 4)
	mm := newTestMemoryManager(t, &cfg)

	_, err := mm.GetChunk(NewPortID(), 1000, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if err != ErrNoMempoolsAvailable {
		t.Fatalf("GetChunk with an oversized payload returned %v, want ErrNoMempoolsAvailable", err)
	}
}

func TestMemoryManager_RunningOutOfChunks(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 1)
	mm := newTestMemoryManager(t, &cfg)

	c1, err := mm.GetChunk(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if err != nil {
		t.Fatalf("first GetChunk failed: %v", err)
	}
	if _, err := mm.GetChunk(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment); err != ErrRunningOutOfChunks {
		t.Fatalf("second GetChunk on an exhausted tier returned %v, want ErrRunningOutOfChunks", err)
	}
	c1.Release()
	if _, err := mm.GetChunk(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment); err != nil {
		t.Fatalf("GetChunk after Release failed: %v", err)
	}
}
