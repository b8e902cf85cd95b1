// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"testing"
	"unsafe"
)

// testChunkFixture wraps two mempools (payload + chunk-management)
// over plain Go heap memory, addressed as raw addresses (segment id
// RawAddressSegmentID) since tests never care about cross-process
// resolution, only the refcount/lifecycle machinery above it.
type testChunkFixture struct {
	registry   *SegmentRegistry
	payload    *Mempool
	management *Mempool
}

func newTestChunkFixture(t *testing.T, chunkSize, chunkCount uint32) *testChunkFixture {
	t.Helper()
	registry := &SegmentRegistry{}

	payloadRaw := make([]byte, chunkSize*chunkCount)
	payloadIdx := make([]uint32, RequiredLoFFLiIndexMemory(chunkCount))
	payload := NewMempool(unsafe.Pointer(unsafe.SliceData(payloadRaw)), chunkSize, chunkCount, payloadIdx)

	const cmSize = 32
	cmRaw := make([]byte, cmSize*chunkCount)
	cmIdx := make([]uint32, RequiredLoFFLiIndexMemory(chunkCount))
	management := NewMempool(unsafe.Pointer(unsafe.SliceData(cmRaw)), cmSize, chunkCount, cmIdx)

	return &testChunkFixture{registry: registry, payload: payload, management: management}
}

// newChunk allocates one chunk plus its management record and returns
// an owning SharedChunk with refcount 1. Mempool/ChunkManagementPool
// relative pointers address the *Mempool structs themselves (as
// Release expects), not their backing byte slices.
func (f *testChunkFixture) newChunk(t *testing.T, originPortID uint64) SharedChunk {
	t.Helper()
	raw := f.payload.GetChunk()
	if raw == nil {
		t.Fatal("payload mempool exhausted")
	}
	hdr, _ := InitChunkHeader(raw, f.payload.ChunkSize(), 0, NoUserHeaderSize, 8, 8, NoUserHeaderAlignment, originPortID, 0)

	cmRaw := f.management.GetChunk()
	if cmRaw == nil {
		t.Fatal("chunk-management mempool exhausted")
	}
	cm := (*ChunkManagement)(cmRaw)
	NewChunkManagement(cm,
		ToRelPtr(f.registry, unsafe.Pointer(hdr)),
		ToRelPtr(f.registry, unsafe.Pointer(f.payload)),
		ToRelPtr(f.registry, unsafe.Pointer(f.management)),
	)
	return WrapSharedChunk(f.registry, cm)
}
