// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shm implements the core of a zero-copy, shared-memory IPC
// substrate: relative pointers, lock-free mempools, refcounted chunks,
// lock-free queues, and the chunk distribution layer that wires
// producers (ChunkSender) to consumers (ChunkReceiver) through shared
// memory with no serialization and no copy on the data path.
//
// # Relative Pointers
//
// RelPtr packs a segment id and an offset into that segment's base
// address into a single atomic u64, so a pointer written by one
// process into shared memory resolves correctly when read by another
// process mapping the same segment at a different virtual address.
// SegmentRegistry tracks each process's local (segment id -> mapped
// base) table:
//
//	reg := DefaultRegistry()
//	id, ok := reg.RegisterPtr(base, size)
//	p := ToRelPtr(reg, somePointerIntoTheSegment)
//	abs := ToAbsolute(reg, p)
//
// # Mempool and Chunks
//
// Mempool is a fixed-chunk-size allocator backed by LoFFLi, an
// ABA-safe lock-free free-list. Chunks carry a ChunkHeader (layout
// fixed for cross-process binary compatibility) and are reference
// counted through ChunkManagement so that a chunk outlives every
// process still holding it. SharedChunk is the owning, refcounted
// handle; ShmSafeUnmanagedChunk (SSUC) is its 8-byte, shared-memory
// safe representation for storage inside a queue cell. Converting
// between the two follows a move convention: FromSharedChunk and
// ReleaseToSharedChunk move ownership without touching the refcount,
// CloneToSharedChunk increments it.
//
// # Queues
//
// IndexQueue is a bounded lock-free FIFO over a fixed set of integer
// indices, built on a Nikolaev-style turn-tagged-cell CAS protocol.
// ValueQueue and ResizableQueue layer typed values and runtime
// capacity changes on top of it; SoFi is a single-producer
// single-consumer ring with the same surface. VariantQueue selects
// between a ResizableQueue (the FIFO kinds) and a SoFi (the SoFi
// kinds) at construction time; the MPSC and SPSC kinds of each family
// share the same backend.
// ChunkQueueData/Pusher/Popper specialize a VariantQueue to hold
// ShmSafeUnmanagedChunk values with a configurable QueueFullPolicy.
//
// # Distribution
//
// ChunkDistributor fans a sent chunk out to every subscribed
// ChunkQueueData, honoring each queue's QueueFullPolicy and the
// distributor's ConsumerTooSlowPolicy, and keeps a bounded history
// ring for late-joining subscribers. ChunkSender and ChunkReceiver are
// the port-level producer and consumer: they allocate/pop chunks,
// track in-use chunks crash-safely via UsedChunkList, and delegate
// fan-out to a ChunkDistributor.
//
// # Shared Memory and Synchronization
//
// SegmentHost creates or attaches a POSIX shared-memory segment and
// hands out a BumpAllocator over it; MemoryManager carves that
// allocator into per-tier Mempools plus a chunk-management pool
// according to a Config. UnnamedSemaphore wraps a SysV semaphore set
// for cross-process blocking waits (Linux only; other platforms
// report ErrSemaphoreUndefined).
//
// # Thread Safety
//
// The lock-free types LoFFLi, IndexQueue, ValueQueue and Mempool are
// safe for concurrent use without external locking. SoFi is safe for
// one producer and one consumer running concurrently; it does not
// support several concurrent producers.
// ChunkDistributorData takes a LockingPolicy (ThreadSafePolicy or
// SingleThreadedPolicy) so a single-threaded port can skip locking
// overhead entirely.
//
// # Dependencies
//
// shm depends on:
//   - iox: semantic error types (ErrWouldBlock)
//   - spin: spin-wait primitives for CAS retry and backpressure
//   - golang.org/x/sys/unix: POSIX shared memory and SysV semaphores
//   - zerolog: structured logging on already-exceptional paths
package shm
