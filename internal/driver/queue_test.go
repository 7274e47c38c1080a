package driver

import (
	"context"
	"testing"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

func TestQueueDrainsHighestPriorityFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)

	lowID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Low)
	if err != nil {
		t.Fatalf("Send Low: %v", err)
	}
	standardID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
	if err != nil {
		t.Fatalf("Send Standard: %v", err)
	}
	immediateID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Immediate)
	if err != nil {
		t.Fatalf("Send Immediate: %v", err)
	}
	highID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, High)
	if err != nil {
		t.Fatalf("Send High: %v", err)
	}

	wantOrder := []uint32{immediateID, highID, standardID, lowID}
	for i, want := range wantOrder {
		got, _, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue: queue closed unexpectedly")
		}
		if got != want {
			t.Fatalf("dequeue %d: expected id %d, got %d", i, want, got)
		}
	}
}

func TestQueueFIFOWithinLevel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)

	first, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
	if err != nil {
		t.Fatalf("Send first: %v", err)
	}
	second, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
	if err != nil {
		t.Fatalf("Send second: %v", err)
	}

	gotFirst, _, ok := q.Dequeue()
	if !ok || gotFirst != first {
		t.Fatalf("expected first id %d, got %d (ok=%v)", first, gotFirst, ok)
	}
	gotSecond, _, ok := q.Dequeue()
	if !ok || gotSecond != second {
		t.Fatalf("expected second id %d, got %d (ok=%v)", second, gotSecond, ok)
	}
}

func TestQueueAssignsMonotonicRequestIDs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)

	var last uint32
	for i := 0; i < 5; i++ {
		id, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if id <= last {
			t.Fatalf("expected monotonically increasing id, got %d after %d", id, last)
		}
		last = id
	}
}

func TestQueueFullReturnsErrQueueFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 2, nil)

	if _, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Low); err != nil {
		t.Fatalf("Send 1: %v", err)
	}
	if _, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Low); err != nil {
		t.Fatalf("Send 2: %v", err)
	}
	if _, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Low); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueueDefaultsCapacityWhenNonPositive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)
	if q.capacity != DefaultQueueCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultQueueCapacity, q.capacity)
	}
}

func TestQueuePauseBlocksNonImmediate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)
	q.Pause()

	if _, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard); err != nil {
		t.Fatalf("Send Standard: %v", err)
	}
	immediateID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Immediate)
	if err != nil {
		t.Fatalf("Send Immediate: %v", err)
	}

	gotID, _, ok := q.Dequeue()
	if !ok {
		t.Fatalf("Dequeue: unexpected close")
	}
	if gotID != immediateID {
		t.Fatalf("expected paused queue to still drain Immediate (id %d), got %d", immediateID, gotID)
	}
}

func TestQueueUnpauseResumesDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)
	q.Pause()

	standardID, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	done := make(chan uint32, 1)
	go func() {
		id, _, ok := q.Dequeue()
		if !ok {
			done <- 0
			return
		}
		done <- id
	}()

	q.Unpause()
	if got := <-done; got != standardID {
		t.Fatalf("expected unpause to release id %d, got %d", standardID, got)
	}
}

func TestQueueCancelRemovesPendingEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 0, nil)

	id, err := q.Send(wire.CommandPacket{Command: wire.Abort{}}, Standard)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !q.Cancel(id) {
		t.Fatalf("expected Cancel to report removal of pending entry")
	}
	if q.Cancel(id) {
		t.Fatalf("expected second Cancel of same id to report false")
	}
}

func TestQueueDequeueUnblocksOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, 0, nil)

	done := make(chan bool, 1)
	go func() {
		_, _, ok := q.Dequeue()
		done <- ok
	}()

	cancel()
	if ok := <-done; ok {
		t.Fatalf("expected Dequeue to return ok=false after context cancellation")
	}
}
