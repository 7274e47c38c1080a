package executor

import "testing"

func TestFSMStartsIdle(t *testing.T) {
	f := newFSM()
	if f.current != StateIdle {
		t.Fatalf("expected initial state IDLE, got %v", f.current)
	}
}

func TestFSMValidTransitionSequence(t *testing.T) {
	f := newFSM()
	steps := []State{StateLoaded, StateRunning, StatePaused, StateRunning, StateStopping, StateIdle}
	for _, target := range steps {
		if !f.transitionTo(target) {
			t.Fatalf("expected transition to %v to succeed from %v", target, f.current)
		}
	}
}

func TestFSMRejectsInvalidTransition(t *testing.T) {
	f := newFSM()
	if f.transitionTo(StateRunning) {
		t.Fatalf("expected IDLE->RUNNING to be rejected")
	}
	if f.current != StateIdle {
		t.Fatalf("expected rejected transition to leave state unchanged, got %v", f.current)
	}
}

func TestFSMCannotReenterLoadedFromRunning(t *testing.T) {
	f := newFSM()
	f.transitionTo(StateLoaded)
	f.transitionTo(StateRunning)
	if f.transitionTo(StateLoaded) {
		t.Fatalf("expected RUNNING->LOADED to be rejected")
	}
}

func TestFSMForceStateEntersErrorFromAnyState(t *testing.T) {
	for _, start := range []State{StateIdle, StateLoaded, StateRunning, StatePaused, StateStopping, StateCompleted} {
		f := newFSM()
		f.current = start
		f.forceState(StateError)
		if f.current != StateError {
			t.Fatalf("expected forceState to enter ERROR from %v", start)
		}
	}
}

func TestFSMErrorRecoversToIdle(t *testing.T) {
	f := newFSM()
	f.forceState(StateError)
	if !f.transitionTo(StateIdle) {
		t.Fatalf("expected ERROR->IDLE to be allowed")
	}
}

func TestFSMCompletedRecoversToIdle(t *testing.T) {
	f := newFSM()
	f.transitionTo(StateLoaded)
	f.transitionTo(StateRunning)
	f.transitionTo(StateCompleted)
	if !f.transitionTo(StateIdle) {
		t.Fatalf("expected COMPLETED->IDLE to be allowed")
	}
}
