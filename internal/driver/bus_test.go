package driver

import (
	"testing"
	"time"
)

func TestBusFanOutToMultipleSubscribers(t *testing.T) {
	b := NewBus[int]("test", nil)
	_, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()

	b.Publish(42)

	select {
	case v := <-ch1:
		if v != 42 {
			t.Fatalf("ch1: expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("ch1: timed out waiting for publish")
	}

	select {
	case v := <-ch2:
		if v != 42 {
			t.Fatalf("ch2: expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("ch2: timed out waiting for publish")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus[int]("test", nil)
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, ok := <-ch
	if ok {
		t.Fatalf("expected channel to be closed after Unsubscribe")
	}
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBus[int]("test", nil)
	id, _ := b.Subscribe()
	b.Unsubscribe(id)
	b.Unsubscribe(id)
}

func TestBusDropsOnLaggedSubscriber(t *testing.T) {
	b := NewBus[int]("test", nil)
	_, ch := b.Subscribe()

	for i := 0; i < 100; i++ {
		b.Publish(i)
	}

	drained := 0
	for {
		select {
		case <-ch:
			drained++
		default:
			if drained == 0 {
				t.Fatalf("expected at least some messages to be received")
			}
			if drained >= 100 {
				t.Fatalf("expected lag-drop to keep buffered count below total published")
			}
			return
		}
	}
}

func TestBusPublishToNoSubscribersDoesNotBlock(t *testing.T) {
	b := NewBus[int]("test", nil)
	done := make(chan struct{})
	go func() {
		b.Publish(1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked with no subscribers attached")
	}
}
