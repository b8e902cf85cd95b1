// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

// QueueFullPolicy selects what a chunk queue does when a push would
// overflow it.
type QueueFullPolicy uint8

const (
	// QueueFullPolicyBlockProducer makes the queue reject the push;
	// the distributor is responsible for retrying until the consumer
	// catches up (or until it gives up, per ConsumerTooSlowPolicy).
	QueueFullPolicyBlockProducer QueueFullPolicy = iota
	// QueueFullPolicyDiscardOldestData evicts the oldest queued chunk
	// to make room, setting the queue's lost-chunks flag.
	QueueFullPolicyDiscardOldestData
)

// ConsumerTooSlowPolicy selects how a ChunkDistributor behaves toward
// a BLOCK_PRODUCER subscriber whose queue is currently full.
type ConsumerTooSlowPolicy uint8

const (
	// ConsumerTooSlowPolicyWaitForConsumer retries the blocked
	// subscriber's push until it succeeds or the subscriber
	// unsubscribes.
	ConsumerTooSlowPolicyWaitForConsumer ConsumerTooSlowPolicy = iota
	// ConsumerTooSlowPolicyDiscardOldestData treats a full
	// BLOCK_PRODUCER subscriber the same as DISCARD_OLDEST_DATA would:
	// the chunk is dropped rather than waited for.
	ConsumerTooSlowPolicyDiscardOldestData
)
