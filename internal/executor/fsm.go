// Package executor implements the bounded-window program runner described
// in spec.md §4.6: it streams a loaded program's instructions to the
// driver a handful at a time, tracks in-flight completions by both
// request_id and sequence_id, and exposes pause/resume/stop controls.
package executor

// State is the executor's lifecycle stage.
type State string

const (
	StateIdle       State = "IDLE"
	StateLoaded     State = "LOADED"
	StateRunning    State = "RUNNING"
	StatePaused     State = "PAUSED"
	StateStopping   State = "STOPPING"
	StateCompleted  State = "COMPLETED"
	StateError      State = "ERROR"
)

// fsm is a transitions-table state machine, adapted from the teacher's
// internal/robot/fsm.go to the executor's seven-state lifecycle.
type fsm struct {
	current     State
	transitions map[State][]State
}

func newFSM() *fsm {
	return &fsm{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:      {StateLoaded},
			StateLoaded:    {StateRunning, StateIdle},
			StateRunning:   {StatePaused, StateStopping, StateCompleted, StateError},
			StatePaused:    {StateRunning, StateStopping, StateError},
			StateStopping:  {StateIdle, StateError},
			StateCompleted: {StateIdle},
			StateError:     {StateIdle},
		},
	}
}

func (f *fsm) canTransitionTo(target State) bool {
	for _, s := range f.transitions[f.current] {
		if s == target {
			return true
		}
	}
	return false
}

func (f *fsm) transitionTo(target State) bool {
	if !f.canTransitionTo(target) {
		return false
	}
	f.current = target
	return true
}

// forceState jumps directly to target, bypassing the transitions table.
// Used only for the Error state, which can be entered from any point in
// the lifecycle on an unrecoverable fault.
func (f *fsm) forceState(target State) {
	f.current = target
}
