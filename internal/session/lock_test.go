package session

import (
	"testing"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

func TestControlLockFreeGrantsImmediately(t *testing.T) {
	var l ControlLock
	if err := l.Request("client-a"); err != nil {
		t.Fatalf("Request on free lock: %v", err)
	}
	holder, ok := l.Holder()
	if !ok || holder != "client-a" {
		t.Fatalf("expected holder client-a, got %q (ok=%v)", holder, ok)
	}
}

func TestControlLockDeniesOtherClient(t *testing.T) {
	var l ControlLock
	if err := l.Request("client-a"); err != nil {
		t.Fatalf("Request: %v", err)
	}
	err := l.Request("client-b")
	if err == nil {
		t.Fatalf("expected client-b to be denied while client-a holds the lock")
	}
	wireErr, ok := err.(*wire.Error)
	if !ok {
		t.Fatalf("expected *wire.Error, got %T", err)
	}
	if wireErr.Kind != wire.ErrControlDenied {
		t.Fatalf("expected ErrControlDenied, got %v", wireErr.Kind)
	}
	if wireErr.HolderID != "client-a" {
		t.Fatalf("expected HolderID client-a, got %q", wireErr.HolderID)
	}
}

func TestControlLockReentrantRequestByHolderSucceeds(t *testing.T) {
	var l ControlLock
	if err := l.Request("client-a"); err != nil {
		t.Fatalf("first Request: %v", err)
	}
	if err := l.Request("client-a"); err != nil {
		t.Fatalf("expected holder to re-request its own lock without error, got %v", err)
	}
}

func TestControlLockReleaseFreesToken(t *testing.T) {
	var l ControlLock
	l.Request("client-a")
	l.Release("client-a")

	if _, ok := l.Holder(); ok {
		t.Fatalf("expected no holder after Release")
	}
	if err := l.Request("client-b"); err != nil {
		t.Fatalf("expected client-b to acquire after release, got %v", err)
	}
}

func TestControlLockReleaseByNonHolderIsNoOp(t *testing.T) {
	var l ControlLock
	l.Request("client-a")
	l.Release("client-b")

	holder, ok := l.Holder()
	if !ok || holder != "client-a" {
		t.Fatalf("expected client-a to still hold the lock, got %q (ok=%v)", holder, ok)
	}
}

func TestControlLockCheckPassesForHolderAndFreeLock(t *testing.T) {
	var l ControlLock
	if err := l.Check("anyone"); err != nil {
		t.Fatalf("expected Check to pass on a free lock, got %v", err)
	}
	l.Request("client-a")
	if err := l.Check("client-a"); err != nil {
		t.Fatalf("expected Check to pass for the holder, got %v", err)
	}
}

func TestControlLockCheckDeniesNonHolder(t *testing.T) {
	var l ControlLock
	l.Request("client-a")
	err := l.Check("client-b")
	if err == nil {
		t.Fatalf("expected Check to deny a non-holder")
	}
	wireErr, ok := err.(*wire.Error)
	if !ok || wireErr.Kind != wire.ErrControlDenied {
		t.Fatalf("expected *wire.Error with ErrControlDenied, got %#v", err)
	}
}

func TestControlLockReleaseIfHeldByMatchesRelease(t *testing.T) {
	var l ControlLock
	l.Request("client-a")
	l.ReleaseIfHeldBy("client-a")
	if _, ok := l.Holder(); ok {
		t.Fatalf("expected ReleaseIfHeldBy to free the token")
	}
}
