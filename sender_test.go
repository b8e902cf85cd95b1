// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm

import "testing"

func newTestSenderReceiverPair(t *testing.T) (*MemoryManager, *ChunkSender, *ChunkReceiver) {
	t.Helper()
	var cfg Config
	cfg.AddMempool(64, 8)
	mm := newTestMemoryManager(t, &cfg)

	senderData := NewChunkSenderData(mm.registry, mm, &SingleThreadedPolicy{}, ConsumerTooSlowPolicyDiscardOldestData, 4, 4, 4)
	sender := NewChunkSender(senderData)

	receiverData := NewChunkReceiverData(mm.registry, FIFOSingleProducerSingleConsumer, 4, QueueFullPolicyBlockProducer, 4)
	receiver := NewChunkReceiver(receiverData)

	if err := sender.TryAddQueue(receiverData.QueueData(), 0); err != nil {
		t.Fatalf("TryAddQueue failed: %v", err)
	}
	return mm, sender, receiver
}

func TestChunkSender_AllocateSendReceive(t *testing.T) {
	_, sender, receiver := newTestSenderReceiverPair(t)

	hdr, err := sender.TryAllocate(NewPortID(), 16, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if err != nil {
		t.Fatalf("TryAllocate failed: %v", err)
	}
	if n := sender.Send(hdr); n != 1 {
		t.Fatalf("Send delivered to %d subscribers, want 1", n)
	}

	got, err := receiver.TryGet()
	if err != nil {
		t.Fatalf("TryGet failed: %v", err)
	}
	if got.SequenceNumber != 0 {
		t.Fatalf("first sent chunk's SequenceNumber = %d, want 0", got.SequenceNumber)
	}
	receiver.Release(got)
}

func TestChunkSender_ReleaseWithoutSend(t *testing.T) {
	_, sender, _ := newTestSenderReceiverPair(t)
	hdr, err := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if err != nil {
		t.Fatalf("TryAllocate failed: %v", err)
	}
	sender.Release(hdr)
	// Releasing twice should be a safe no-op: the header is no longer
	// tracked by the sender's used-chunk list.
	sender.Release(hdr)
}

func TestChunkSender_SequenceNumbersIncreaseAndPreviousChunk(t *testing.T) {
	_, sender, receiver := newTestSenderReceiverPair(t)

	h1, _ := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	sender.Send(h1)
	h2, _ := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	sender.Send(h2)

	if h2.SequenceNumber != h1.SequenceNumber+1 {
		t.Fatalf("sequence numbers not monotonic: %d then %d", h1.SequenceNumber, h2.SequenceNumber)
	}

	for i := 0; i < 2; i++ {
		got, err := receiver.TryGet()
		if err != nil {
			t.Fatalf("TryGet failed at %d: %v", i, err)
		}
		receiver.Release(got)
	}
}

func TestChunkSender_SendToQueueTargetsOneSubscriber(t *testing.T) {
	_, sender, receiver := newTestSenderReceiverPair(t)
	receiverData2 := NewChunkReceiverData(sender.registry(), FIFOSingleProducerSingleConsumer, 4, QueueFullPolicyBlockProducer, 4)
	receiver2 := NewChunkReceiver(receiverData2)
	sender.TryAddQueue(receiverData2.QueueData(), 0)

	hdr, _ := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	if ok := sender.SendToQueue(hdr, receiverData2.QueueData().UniqueID, -1); !ok {
		t.Fatal("SendToQueue should reach the targeted receiver")
	}
	if !receiver.Empty() {
		t.Fatal("the untargeted receiver should not have received anything")
	}
	got, err := receiver2.TryGet()
	if err != nil {
		t.Fatalf("targeted receiver TryGet failed: %v", err)
	}
	receiver2.Release(got)
}

func TestChunkReceiver_HasLostChunksAfterOverflow(t *testing.T) {
	var cfg Config
	cfg.AddMempool(64, 8)
	mm := newTestMemoryManager(t, &cfg)
	senderData := NewChunkSenderData(mm.registry, mm, &SingleThreadedPolicy{}, ConsumerTooSlowPolicyDiscardOldestData, 4, 0, 4)
	sender := NewChunkSender(senderData)
	receiverData := NewChunkReceiverData(mm.registry, FIFOSingleProducerSingleConsumer, 1, QueueFullPolicyDiscardOldestData, 4)
	receiver := NewChunkReceiver(receiverData)
	sender.TryAddQueue(receiverData.QueueData(), 0)

	h1, _ := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	sender.Send(h1)
	h2, _ := sender.TryAllocate(NewPortID(), 8, 8, NoUserHeaderSize, NoUserHeaderAlignment)
	sender.Send(h2)

	if !receiver.HasLostChunks() {
		t.Fatal("receiver should report lost chunks after a discard-oldest overflow")
	}
	got, err := receiver.TryGet()
	if err != nil {
		t.Fatalf("TryGet failed: %v", err)
	}
	receiver.Release(got)
}
