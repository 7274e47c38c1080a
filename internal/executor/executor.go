package executor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/driver"
	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// MaxBuffer bounds the in-flight window, matching the controller's own
// ring-buffer depth per spec.md §4.6.
const MaxBuffer = 5

// Event is anything the executor broadcasts to interested subscribers
// (typically the dispatch layer, which re-shapes these into client-facing
// messages).
type Event interface{ eventName() string }

// StateChanged reports a lifecycle transition.
type StateChanged struct{ State State }

func (StateChanged) eventName() string { return "ExecutionStateChanged" }

// InstructionProgress reports a single completed waypoint.
type InstructionProgress struct {
	LineNumber int
	SequenceID uint32
}

func (InstructionProgress) eventName() string { return "InstructionProgress" }

// InstructionSent reports a waypoint hitting the wire.
type InstructionSent struct {
	LineNumber int
	RequestID  uint32
}

func (InstructionSent) eventName() string { return "InstructionSent" }

// ProgramComplete reports the terminal outcome of a run.
type ProgramComplete struct {
	Success bool
	Message string
}

func (ProgramComplete) eventName() string { return "ProgramComplete" }

// Executor streams a loaded Program to the driver through a bounded
// in-flight window, tracking completions by both request_id and
// sequence_id, grounded on spec.md §4.6.
type Executor struct {
	mu     sync.Mutex
	fsm    *fsm
	facade *driver.Facade
	logger *zap.Logger
	events *driver.Bus[Event]

	sequenceCounter uint32

	pending             []QueueEntry
	inFlightByRequest   map[uint32]int
	inFlightBySequence  map[uint32]int
	completedLine       int

	cancelRun context.CancelFunc
}

// NewExecutor builds an idle Executor bound to facade.
func NewExecutor(facade *driver.Facade, logger *zap.Logger) *Executor {
	return &Executor{
		fsm:                newFSM(),
		facade:             facade,
		logger:             logger,
		events:             driver.NewBus[Event]("executor", logger),
		inFlightByRequest:  make(map[uint32]int),
		inFlightBySequence: make(map[uint32]int),
	}
}

func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fsm.current
}

// Subscribe attaches a new receiver to the executor's event bus.
func (e *Executor) Subscribe() (id int, ch <-chan Event) { return e.events.Subscribe() }

func (e *Executor) Unsubscribe(id int) { e.events.Unsubscribe(id) }

func (e *Executor) nextSequenceID() uint32 {
	e.sequenceCounter++
	return e.sequenceCounter
}

// Load expands prog against active and transitions Idle → Loaded. Reentry
// while Running or Paused is rejected per spec.md §4.6's tie-break rules.
func (e *Executor) Load(prog Program, active wire.Configuration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.fsm.canTransitionTo(StateLoaded) {
		return &wire.Error{Kind: wire.ErrValidation, Message: "executor busy, stop the running program first"}
	}

	e.pending = Expand(prog, active, e.nextSequenceID)
	e.inFlightByRequest = make(map[uint32]int)
	e.inFlightBySequence = make(map[uint32]int)
	e.completedLine = 0
	e.fsm.transitionTo(StateLoaded)
	e.events.Publish(StateChanged{State: StateLoaded})
	return nil
}

// Start transitions Loaded → Running and begins streaming. The returned
// error only reflects the transition itself; completion is reported
// asynchronously via ProgramComplete.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	if !e.fsm.transitionTo(StateRunning) {
		e.mu.Unlock()
		return &wire.Error{Kind: wire.ErrValidation, Message: "no program loaded"}
	}
	e.mu.Unlock()
	e.events.Publish(StateChanged{State: StateRunning})

	runCtx, cancel := context.WithCancel(ctx)
	e.cancelRun = cancel
	go e.run(runCtx)
	return nil
}

// Pause freezes the wire queue and the controller's in-progress motion
// without touching the in-flight window. FRC_Pause must reach the
// controller before the local queue freezes, or it would never drain at
// its own High priority; the queue is frozen once the FRC_Pause round trip
// has finished, whether or not the controller accepted it (a failure or
// timeout is only logged).
func (e *Executor) Pause(ctx context.Context) error {
	e.mu.Lock()
	if !e.fsm.transitionTo(StatePaused) {
		e.mu.Unlock()
		return &wire.Error{Kind: wire.ErrValidation, Message: "program not running"}
	}
	e.mu.Unlock()

	if err := e.facade.PauseProgram(ctx); err != nil {
		e.logger.Warn("FRC_Pause failed", zap.Error(err))
	}
	e.facade.Pause()
	e.events.Publish(StateChanged{State: StatePaused})
	return nil
}

// Resume releases a paused run and continues feeding from pending on
// subsequent completions.
func (e *Executor) Resume(ctx context.Context) error {
	e.mu.Lock()
	if !e.fsm.transitionTo(StateRunning) {
		e.mu.Unlock()
		return &wire.Error{Kind: wire.ErrValidation, Message: "program not paused"}
	}
	e.mu.Unlock()

	if err := e.facade.ContinueProgram(ctx); err != nil {
		e.logger.Warn("FRC_Continue failed", zap.Error(err))
	}
	e.facade.Continue()
	e.events.Publish(StateChanged{State: StateRunning})

	e.mu.Lock()
	e.feedBatchLocked()
	e.mu.Unlock()
	return nil
}

// Stop clears pending work, aborts the controller queue, and returns the
// executor to Idle once the abort round-trips.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.fsm.transitionTo(StateStopping) {
		e.mu.Unlock()
		return &wire.Error{Kind: wire.ErrValidation, Message: "nothing to stop"}
	}
	e.pending = nil
	e.mu.Unlock()
	e.events.Publish(StateChanged{State: StateStopping})

	if e.cancelRun != nil {
		e.cancelRun()
	}

	err := e.facade.Abort(ctx)

	e.mu.Lock()
	e.inFlightByRequest = make(map[uint32]int)
	e.inFlightBySequence = make(map[uint32]int)
	if err != nil {
		e.fsm.forceState(StateError)
	} else {
		e.fsm.transitionTo(StateIdle)
	}
	final := e.fsm.current
	e.mu.Unlock()
	e.events.Publish(StateChanged{State: final})
	return err
}

// run is the executor's event loop: it subscribes to the driver's
// sent/response buses, keeps the in-flight window fed, and drives the
// Completed/Error transitions.
func (e *Executor) run(ctx context.Context) {
	sentID, sentCh := e.facade.SentSubscribe()
	defer e.facade.SentUnsubscribe(sentID)
	respID, respCh := e.facade.ResponseSubscribe()
	defer e.facade.ResponseUnsubscribe(respID)

	e.mu.Lock()
	e.feedBatchLocked()
	e.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case info, ok := <-sentCh:
			if !ok {
				return
			}
			e.handleSent(info)
		case resp, ok := <-respCh:
			if !ok {
				return
			}
			if resp.Kind != wire.InstructionKind {
				continue
			}
			if done := e.handleCompletion(resp); done {
				return
			}
		}
	}
}

func (e *Executor) handleSent(info driver.SentInstructionInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	line, ok := e.inFlightByRequest[info.RequestID]
	if !ok {
		return
	}
	delete(e.inFlightByRequest, info.RequestID)
	e.inFlightBySequence[info.SequenceID] = line
	e.events.Publish(InstructionSent{LineNumber: line, RequestID: info.RequestID})
}

// handleCompletion processes one InstructionResponse. It returns true when
// the run loop should exit (the program reached Completed or Error).
func (e *Executor) handleCompletion(resp wire.ResponsePacket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	line, ok := e.inFlightBySequence[resp.SequenceID]
	if !ok {
		e.logger.Info("completion for unknown sequence id, ignoring", zap.Uint32("sequence_id", resp.SequenceID))
		return false
	}
	delete(e.inFlightBySequence, resp.SequenceID)
	if line > e.completedLine {
		e.completedLine = line
	}

	if resp.ErrorID != 0 {
		code, _ := wire.FromErrorID(resp.ErrorID)
		e.pending = nil
		e.fsm.forceState(StateError)
		e.events.Publish(ProgramComplete{Success: false, Message: code.Message()})
		return true
	}

	e.events.Publish(InstructionProgress{LineNumber: line, SequenceID: resp.SequenceID})

	if len(e.pending) == 0 && len(e.inFlightByRequest) == 0 && len(e.inFlightBySequence) == 0 {
		e.fsm.transitionTo(StateCompleted)
		e.events.Publish(ProgramComplete{Success: true})
		return true
	}

	e.feedBatchLocked()
	return false
}

// feedBatchLocked sends up to MaxBuffer-|in_flight_by_request|-
// |in_flight_by_sequence| pending packets. Callers must hold e.mu. It never
// sends while paused — the state check happens under the same lock that
// StatePaused is set under, satisfying spec.md §4.6's tie-break
// requirement. The window must count both maps: a packet sent but not yet
// confirmed by SentInstructionInfo lives in inFlightByRequest, not
// inFlightBySequence, and handleSent can't run to move it over while this
// method holds e.mu for the whole loop.
func (e *Executor) feedBatchLocked() {
	if e.fsm.current != StateRunning {
		return
	}
	for len(e.pending) > 0 && len(e.inFlightByRequest)+len(e.inFlightBySequence) < MaxBuffer {
		entry := e.pending[0]
		e.pending = e.pending[1:]

		requestID, err := e.facade.SendPacket(entry.Packet, driver.Standard)
		if err != nil {
			e.logger.Warn("failed to send program instruction", zap.Error(err), zap.Int("line", entry.LineNumber))
			e.pending = nil
			e.fsm.forceState(StateError)
			e.events.Publish(ProgramComplete{Success: false, Message: err.Error()})
			return
		}
		e.inFlightByRequest[requestID] = entry.LineNumber
	}
}
