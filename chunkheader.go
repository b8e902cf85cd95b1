// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import (
	"encoding/binary"
	"unsafe"
)

// NoUserHeaderSize / NoUserHeaderAlignment mark the absence of a
// user-header in chunk layout calculations.
const (
	NoUserHeaderSize      uint32 = 0
	NoUserHeaderAlignment uint32 = 0
)

const chunkHeaderVersion uint8 = 1

// chunkHeaderSize is the fixed, 8-byte-aligned size of ChunkHeader's
// fields as laid out below.
const chunkHeaderSize = 40

// ChunkHeader sits at the start of every user chunk. Field order is a
// binary contract shared across every process mapping the segment.
type ChunkHeader struct {
	ChunkHeaderVersion   uint8
	_                    [1]byte
	UserHeaderID         uint16
	UserPayloadOffset    uint32
	ChunkSize            uint32
	UserHeaderSize       uint32
	UserPayloadSize      uint32
	UserPayloadAlignment uint32
	OriginPortID         uint64
	SequenceNumber       uint64
}

// RequiredChunkSize computes the chunk_size needed to hold a header,
// an optional user-header, and the user payload, given their
// alignments. The payload is placed at the lowest address satisfying
// its declared alignment that also leaves 4 bytes immediately before
// it for the back-offset FromUserPayload relies on.
func RequiredChunkSize(userHeaderSize, userPayloadSize, userPayloadAlignment, userHeaderAlignment uint32) uint32 {
	offset := payloadOffset(userHeaderSize, userPayloadAlignment, userHeaderAlignment)
	return alignUp32(offset+userPayloadSize, 8)
}

func alignUp32(n, a uint32) uint32 {
	return (n + a - 1) &^ (a - 1)
}

// payloadOffset computes where, relative to the start of the chunk,
// the user payload begins. A 4-byte back-offset always precedes the
// payload, even when there is no user-header and the payload's
// alignment would otherwise let it sit immediately after the header:
// this simplifies FromUserPayload to a single unconditional read, at
// the cost of up to 8 extra bytes per chunk in that common case.
func payloadOffset(userHeaderSize, userPayloadAlignment, userHeaderAlignment uint32) uint32 {
	headerEnd := uint32(chunkHeaderSize)
	if userHeaderSize != NoUserHeaderSize {
		headerEnd = alignUp32(headerEnd, userHeaderAlignment) + userHeaderSize
	}
	withBackOffset := headerEnd + 4
	return alignUp32(withBackOffset, max32(userPayloadAlignment, 1))
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// InitChunkHeader constructs a ChunkHeader at the start of chunk
// (which must be at least RequiredChunkSize(...) bytes), writes the
// back-offset immediately before the payload, and returns the header
// and payload pointers.
func InitChunkHeader(chunk unsafe.Pointer, chunkSize uint32, userHeaderID uint16, userHeaderSize, userPayloadSize, userPayloadAlignment, userHeaderAlignment uint32, originPortID, sequenceNumber uint64) (hdr *ChunkHeader, payload unsafe.Pointer) {
	offset := payloadOffset(userHeaderSize, userPayloadAlignment, userHeaderAlignment)
	if offset+userPayloadSize > chunkSize {
		panic("shm: chunk layout exceeds chunk_size")
	}
	hdr = (*ChunkHeader)(chunk)
	*hdr = ChunkHeader{
		ChunkHeaderVersion:   chunkHeaderVersion,
		UserHeaderID:         userHeaderID,
		UserPayloadOffset:    offset,
		ChunkSize:            chunkSize,
		UserHeaderSize:       userHeaderSize,
		UserPayloadSize:      userPayloadSize,
		UserPayloadAlignment: userPayloadAlignment,
		OriginPortID:         originPortID,
		SequenceNumber:       sequenceNumber,
	}
	payload = unsafe.Add(chunk, offset)
	binary.LittleEndian.PutUint32(unsafe.Slice((*byte)(unsafe.Add(payload, -4)), 4), offset)
	return hdr, payload
}

// UserPayload returns the payload pointer described by hdr, given the
// chunk's base address.
func (h *ChunkHeader) UserPayload(chunkBase unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(chunkBase, h.UserPayloadOffset)
}

// FromUserPayload recovers the ChunkHeader pointer from any pointer
// the user was handed back, by reading the little-endian u32
// back-offset stored immediately before it. This makes recovery
// independent of the alignment padding the layout introduced.
func FromUserPayload(p unsafe.Pointer) *ChunkHeader {
	backOffset := binary.LittleEndian.Uint32(unsafe.Slice((*byte)(unsafe.Add(p, -4)), 4))
	return (*ChunkHeader)(unsafe.Add(p, -int(backOffset)))
}
