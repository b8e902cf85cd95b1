// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

// AllocationError is returned by ChunkSender.TryAllocate when a chunk
// could not be produced.
type AllocationError uint8

const (
	ErrUndefined AllocationError = iota
	ErrNoMempoolsAvailable
	ErrRunningOutOfChunks
	ErrTooManyChunksAllocatedInParallel
	ErrInvalidParameterForUserPayloadOrUserHeader
	ErrInvalidParameterForRequestHeader
)

func (e AllocationError) Error() string {
	switch e {
	case ErrNoMempoolsAvailable:
		return "shm: no mempool configured for the requested chunk size"
	case ErrRunningOutOfChunks:
		return "shm: mempool has no free chunks"
	case ErrTooManyChunksAllocatedInParallel:
		return "shm: too many chunks allocated in parallel by this port"
	case ErrInvalidParameterForUserPayloadOrUserHeader:
		return "shm: invalid user-payload or user-header parameter"
	case ErrInvalidParameterForRequestHeader:
		return "shm: invalid request-header parameter"
	default:
		return "shm: undefined allocation error"
	}
}

// ChunkDistributorError is returned by ChunkDistributor.TryAddQueue and
// TryRemoveQueue.
type ChunkDistributorError uint8

const (
	ErrQueueContainerOverflow ChunkDistributorError = iota
	ErrQueueNotInContainer
)

func (e ChunkDistributorError) Error() string {
	switch e {
	case ErrQueueContainerOverflow:
		return "shm: chunk distributor queue container is full"
	case ErrQueueNotInContainer:
		return "shm: queue not found in chunk distributor"
	default:
		return "shm: undefined chunk distributor error"
	}
}

// MemoryProviderError is returned by the shared-memory segment host.
type MemoryProviderError uint8

const (
	ErrNoMemoryBlocksPresent MemoryProviderError = iota
	ErrMemoryAlreadyCreated
	ErrMemoryAllocationFailed
	ErrMemoryNotAvailable
	ErrMemoryCreationFailed
	ErrMemoryMappingFailed
	ErrMemoryDestructionFailed
)

func (e MemoryProviderError) Error() string {
	switch e {
	case ErrNoMemoryBlocksPresent:
		return "shm: no memory blocks configured"
	case ErrMemoryAlreadyCreated:
		return "shm: memory segment already created"
	case ErrMemoryAllocationFailed:
		return "shm: memory allocation failed"
	case ErrMemoryNotAvailable:
		return "shm: memory segment not available"
	case ErrMemoryCreationFailed:
		return "shm: memory segment creation failed"
	case ErrMemoryMappingFailed:
		return "shm: memory mapping failed"
	case ErrMemoryDestructionFailed:
		return "shm: memory segment destruction failed"
	default:
		return "shm: undefined memory provider error"
	}
}

// SemaphoreError is returned by UnnamedSemaphore operations.
type SemaphoreError uint8

const (
	ErrInvalidSemaphoreHandle SemaphoreError = iota
	ErrSemaphoreOverflow
	ErrInterruptedBySignalHandler
	ErrSemaphoreUndefined
)

func (e SemaphoreError) Error() string {
	switch e {
	case ErrInvalidSemaphoreHandle:
		return "shm: invalid semaphore handle"
	case ErrSemaphoreOverflow:
		return "shm: semaphore value overflow"
	case ErrInterruptedBySignalHandler:
		return "shm: semaphore wait interrupted by signal"
	default:
		return "shm: undefined semaphore error"
	}
}
