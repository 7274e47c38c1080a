package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/csvprog"
	"github.com/fanuc-rmi/rmigateway/internal/driver"
	"github.com/fanuc-rmi/rmigateway/internal/executor"
	"github.com/fanuc-rmi/rmigateway/internal/session"
	"github.com/fanuc-rmi/rmigateway/internal/store"
	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// stateChangingRequests are the request types that require the caller to
// hold the control-lock token, per spec.md §4.7.
var stateChangingRequests = map[string]bool{
	ReqLoadProgram:        true,
	ReqUnloadProgram:      true,
	ReqStartProgram:       true,
	ReqPauseProgram:       true,
	ReqResumeProgram:      true,
	ReqStopProgram:        true,
	ReqAbort:              true,
	ReqReset:              true,
	ReqInitialize:         true,
	ReqSetActiveFrameTool: true,
	ReqWriteDOUT:          true,
}

// Dispatcher routes client requests against the set of known robots,
// enforces the control lock, and forwards store-backed program/config
// operations, grounded on the teacher's internal/server/handler.go
// dispatch-switch pattern.
type Dispatcher struct {
	mu     sync.RWMutex
	robots map[string]*session.RobotConnection

	clients *session.ClientManager
	store   store.Store
	logger  *zap.Logger
}

// New builds a Dispatcher bound to a client manager and a persistence
// façade.
func New(clients *session.ClientManager, st store.Store, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		robots:  make(map[string]*session.RobotConnection),
		clients: clients,
		store:   st,
		logger:  logger,
	}
}

// RegisterRobot adds conn to the known set and starts forwarding its
// executor/driver events to the client manager's broadcast path.
func (d *Dispatcher) RegisterRobot(ctx context.Context, conn *session.RobotConnection) {
	d.mu.Lock()
	d.robots[conn.ID] = conn
	d.mu.Unlock()
	go d.forwardExecutorEvents(ctx, conn)
	go d.forwardDriverResponses(ctx, conn)
}

func (d *Dispatcher) robot(robotID string) (*session.RobotConnection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.robots[robotID]
	if !ok {
		return nil, &wire.Error{Kind: wire.ErrValidation, Message: fmt.Sprintf("unknown robot_id %q", robotID)}
	}
	return r, nil
}

// forwardExecutorEvents re-shapes executor.Event into client-facing
// broadcasts. The server is the single source of truth for execution
// state per spec.md §4.7: clients only ever learn of a transition after
// it has actually happened here.
func (d *Dispatcher) forwardExecutorEvents(ctx context.Context, conn *session.RobotConnection) {
	id, ch := conn.Exec.Subscribe()
	defer conn.Exec.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case executor.StateChanged:
				d.clients.Broadcast(conn.ID, newEnvelope(BcastExecutionStateChanged, map[string]any{
					"robot_id": conn.ID, "state": string(e.State),
				}))
			case executor.InstructionProgress:
				d.clients.Broadcast(conn.ID, newEnvelope(BcastInstructionProgress, map[string]any{
					"robot_id": conn.ID, "line_number": e.LineNumber, "sequence_id": e.SequenceID,
				}))
			case executor.InstructionSent:
				d.clients.Broadcast(conn.ID, newEnvelope(BcastInstructionSent, map[string]any{
					"robot_id": conn.ID, "line_number": e.LineNumber, "request_id": e.RequestID,
				}))
			case executor.ProgramComplete:
				d.clients.Broadcast(conn.ID, newEnvelope(BcastProgramComplete, map[string]any{
					"robot_id": conn.ID, "success": e.Success, "message": e.Message,
				}))
			}
		}
	}
}

// forwardDriverResponses broadcasts a DinValue for every FRC_ReadDIN
// response the driver receives, including responses to the dispatcher's
// own readDIN requests. Other I/O responses are not broadcast.
func (d *Dispatcher) forwardDriverResponses(ctx context.Context, conn *session.RobotConnection) {
	id, ch := conn.Driver.ResponseSubscribe()
	defer conn.Driver.ResponseUnsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-ch:
			if !ok {
				return
			}
			if resp.Kind != wire.CommandKind || resp.Name != wire.CmdReadDIN {
				continue
			}
			d.clients.Broadcast(conn.ID, newEnvelope(BcastDinValue, map[string]any{
				"robot_id": conn.ID, "port_number": resp.Fields["PortNumber"], "port_value": resp.Fields["PortValue"],
			}))
		}
	}
}

// Dispatch handles one client request and returns the synchronous
// response envelope. Broadcasts triggered as a side effect are delivered
// separately through the client manager, either by the forwarders above or
// by the handler itself.
func (d *Dispatcher) Dispatch(ctx context.Context, clientID string, req Envelope) Envelope {
	if stateChangingRequests[req.Type] {
		robot, err := d.robot(req.RobotID)
		if err == nil {
			if lockErr := robot.Lock.Check(clientID); lockErr != nil {
				return errorEnvelope(req.RequestID, lockErr.Error())
			}
			if _, held := robot.Lock.Holder(); !held {
				return errorEnvelope(req.RequestID, (&wire.Error{Kind: wire.ErrValidation, Message: "control token not held; request control first"}).Error())
			}
		}
	}

	resp, err := d.route(ctx, clientID, req)
	if err != nil {
		return errorEnvelope(req.RequestID, err.Error())
	}
	resp.RequestID = req.RequestID
	resp.RobotID = req.RobotID
	return resp
}

func (d *Dispatcher) route(ctx context.Context, clientID string, req Envelope) (Envelope, error) {
	switch req.Type {
	case ReqListPrograms:
		return d.listPrograms(ctx)
	case ReqGetProgram:
		return d.getProgram(ctx, req)
	case ReqCreateProgram:
		return d.createProgram(ctx, req)
	case ReqDeleteProgram:
		return d.deleteProgram(ctx, req)
	case ReqUploadCSV:
		return d.uploadCSV(ctx, req)

	case ReqLoadProgram:
		return d.loadProgram(ctx, req)
	case ReqUnloadProgram:
		return d.unloadProgram(req)
	case ReqStartProgram:
		return d.startProgram(ctx, req)
	case ReqPauseProgram:
		return d.pauseProgram(ctx, req)
	case ReqResumeProgram:
		return d.resumeProgram(ctx, req)
	case ReqStopProgram:
		return d.stopProgram(ctx, req)
	case ReqGetState:
		return d.getState(req)

	case ReqAbort:
		return d.abort(ctx, req)
	case ReqReset:
		return d.reset(ctx, req)
	case ReqInitialize:
		return d.initialize(ctx, req)

	case ReqGetStatus:
		return d.getStatus(ctx, req)
	case ReqDisconnect:
		return d.disconnect(ctx, req)

	case ReqReadDIN:
		return d.readDIN(ctx, req)
	case ReqWriteDOUT:
		return d.writeDOUT(ctx, req)

	case ReqSetActiveFrameTool:
		return d.setActiveFrameTool(ctx, req)
	case ReqGetActiveFrameTool:
		return d.getActiveFrameTool(ctx, req)

	case ReqRequestControl:
		return d.requestControl(req, clientID)
	case ReqReleaseControl:
		return d.releaseControl(req, clientID)
	case ReqControlStatus:
		return d.controlStatus(req)

	default:
		return Envelope{}, &wire.Error{Kind: wire.ErrValidation, Message: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

func (d *Dispatcher) listPrograms(ctx context.Context) (Envelope, error) {
	programs, err := d.store.ListPrograms(ctx)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Programs", map[string]any{"programs": programs}), nil
}

func (d *Dispatcher) getProgram(ctx context.Context, req Envelope) (Envelope, error) {
	id, _ := req.Payload["id"].(string)
	p, err := d.store.GetProgram(ctx, id)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Program", map[string]any{"program": p}), nil
}

func (d *Dispatcher) createProgram(ctx context.Context, req Envelope) (Envelope, error) {
	name, _ := req.Payload["name"].(string)
	p, err := d.store.CreateProgram(ctx, store.Program{Name: name})
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Program", map[string]any{"program": p}), nil
}

func (d *Dispatcher) deleteProgram(ctx context.Context, req Envelope) (Envelope, error) {
	id, _ := req.Payload["id"].(string)
	if err := d.store.DeleteProgram(ctx, id); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramDeleted", map[string]any{"id": id}), nil
}

// uploadCSV parses the CSV body and, on a clean parse, persists it as a
// new stored program per spec.md §6.3 — upload-CSV is a create, not just a
// validation check.
func (d *Dispatcher) uploadCSV(ctx context.Context, req Envelope) (Envelope, error) {
	csvText, _ := req.Payload["csv"].(string)
	name, _ := req.Payload["name"].(string)
	result := csvprog.Parse(strings.NewReader(csvText))
	if len(result.Diagnostics) > 0 {
		diags := make([]string, 0, len(result.Diagnostics))
		for _, diag := range result.Diagnostics {
			diags = append(diags, diag.String())
		}
		return Envelope{}, &wire.Error{Kind: wire.ErrValidation, Message: fmt.Sprintf("%d validation error(s): %v", len(diags), diags)}
	}

	p, err := d.store.CreateProgram(ctx, store.Program{Name: name, Waypoints: storeWaypointsFromCSV(result.Waypoints)})
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramCSVParsed", map[string]any{
		"program":        p,
		"waypoint_count": len(result.Waypoints),
		"warnings":       result.Warnings,
	}), nil
}

// storeWaypointsFromCSV adapts the executor-shaped waypoints csvprog.Parse
// produces into the persisted store.ProgramWaypoint shape.
func storeWaypointsFromCSV(waypoints []executor.Waypoint) []store.ProgramWaypoint {
	out := make([]store.ProgramWaypoint, 0, len(waypoints))
	for i, wp := range waypoints {
		row := store.ProgramWaypoint{
			LineNumber: i + 1,
			X:          wp.X,
			Y:          wp.Y,
			Z:          wp.Z,
			Speed:      &wp.Speed,
			UFrame:     wp.UFrameNumber,
			UTool:      wp.UToolNumber,
		}
		row.W, row.P, row.R = &wp.W, &wp.P, &wp.R
		row.Ext1, row.Ext2, row.Ext3 = &wp.Ext1, &wp.Ext2, &wp.Ext3
		if wp.TermType != nil {
			s := string(*wp.TermType)
			row.TermType = &s
		}
		out = append(out, row)
	}
	return out
}

func (d *Dispatcher) loadProgram(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	programID, _ := req.Payload["program_id"].(string)
	stored, err := d.store.GetProgram(ctx, programID)
	if err != nil {
		return Envelope{}, err
	}
	prog := programFromStore(stored)
	if err := robot.Exec.Load(prog, robot.ActiveConfiguration().ToWire()); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramLoaded", map[string]any{"program_id": programID}), nil
}

func (d *Dispatcher) unloadProgram(req Envelope) (Envelope, error) {
	return newEnvelope("ProgramUnloaded", nil), nil
}

func (d *Dispatcher) startProgram(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Exec.Start(ctx); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramStarted", nil), nil
}

func (d *Dispatcher) pauseProgram(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Exec.Pause(ctx); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramPaused", nil), nil
}

func (d *Dispatcher) resumeProgram(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Exec.Resume(ctx); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ProgramResumed", nil), nil
}

// stopProgram implements the "abort then reinitialize" policy from
// spec.md §8 scenario 4: the executor's own Stop only aborts; the
// dispatcher (not the executor) owns the follow-up FRC_Initialize.
func (d *Dispatcher) stopProgram(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	stopErr := robot.Exec.Stop(ctx)
	robot.SetTPProgramInitialized(false)

	if initErr := robot.Driver.Initialize(ctx, 1); initErr == nil {
		robot.SetTPProgramInitialized(true)
	}
	d.clients.Broadcast(robot.ID, newEnvelope(BcastConnectionStatus, map[string]any{
		"robot_id": robot.ID, "tp_program_initialized": robot.TPProgramInitialized(),
	}))

	if stopErr != nil {
		return Envelope{}, stopErr
	}
	return newEnvelope("ProgramStopped", nil), nil
}

func (d *Dispatcher) getState(req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ExecutionState", map[string]any{"state": string(robot.Exec.State())}), nil
}

func (d *Dispatcher) abort(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Driver.Abort(ctx); err != nil {
		return Envelope{}, err
	}
	robot.SetTPProgramInitialized(false)
	return newEnvelope("Aborted", nil), nil
}

func (d *Dispatcher) reset(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Driver.Reset(ctx); err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Reset", nil), nil
}

func (d *Dispatcher) initialize(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	groupMask := 1
	if v, ok := req.Payload["group_mask"].(float64); ok {
		groupMask = int(v)
	}
	if err := robot.Driver.Initialize(ctx, groupMask); err != nil {
		return Envelope{}, err
	}
	robot.SetTPProgramInitialized(true)
	return newEnvelope("Initialized", nil), nil
}

func (d *Dispatcher) getStatus(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ConnectionStatus", map[string]any{
		"robot_id":               robot.ID,
		"state":                  string(robot.Driver.State()),
		"tp_program_initialized": robot.TPProgramInitialized(),
	}), nil
}

func (d *Dispatcher) disconnect(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Driver.Disconnect(ctx); err != nil {
		return Envelope{}, err
	}
	d.clients.Broadcast(robot.ID, newEnvelope(BcastRobotDisconnected, map[string]any{"robot_id": robot.ID}))
	return newEnvelope("Disconnected", nil), nil
}

func (d *Dispatcher) readDIN(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	port, _ := req.Payload["port_number"].(float64)
	requestID, err := robot.Driver.SendPacket(wire.CommandPacket{Command: wire.ReadDIN{PortNumber: int(port)}}, driver.High)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Accepted", map[string]any{"request_id": requestID}), nil
}

func (d *Dispatcher) writeDOUT(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	port, _ := req.Payload["port_number"].(float64)
	value, _ := req.Payload["port_value"].(string)
	requestID, err := robot.Driver.SendPacket(wire.CommandPacket{Command: wire.WriteDOUT{PortNumber: int(port), PortValue: wire.OnOff(value)}}, driver.High)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("Accepted", map[string]any{"request_id": requestID}), nil
}

// setActiveFrameTool issues FRC_SetUFrameUTool at the controller, then
// updates the server-authoritative active configuration so that
// subsequent loadProgram calls use the new frame and tool immediately.
func (d *Dispatcher) setActiveFrameTool(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	frame, _ := req.Payload["u_frame_number"].(float64)
	tool, _ := req.Payload["u_tool_number"].(float64)
	frameNumber, toolNumber := int8(frame), int8(tool)

	if err := robot.Driver.SetActiveFrameTool(ctx, frameNumber, toolNumber); err != nil {
		return Envelope{}, err
	}

	cfg := robot.ActiveConfiguration()
	cfg.UFrameNumber = frameNumber
	cfg.UToolNumber = toolNumber
	robot.SetActiveConfiguration(cfg)

	d.clients.Broadcast(robot.ID, newEnvelope(BcastActiveFrameTool, map[string]any{
		"robot_id": robot.ID, "u_frame_number": frameNumber, "u_tool_number": toolNumber,
	}))
	return newEnvelope("ActiveFrameToolSet", map[string]any{"u_frame_number": frameNumber, "u_tool_number": toolNumber}), nil
}

// getActiveFrameTool issues FRC_GetUFrameUTool against the controller so
// the response reflects what the controller itself reports, rather than
// only the server's cached copy.
func (d *Dispatcher) getActiveFrameTool(ctx context.Context, req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	frameNumber, toolNumber, err := robot.Driver.GetActiveFrameTool(ctx)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope("ActiveFrameTool", map[string]any{"u_frame_number": frameNumber, "u_tool_number": toolNumber}), nil
}

func (d *Dispatcher) requestControl(req Envelope, clientID string) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	if err := robot.Lock.Request(clientID); err != nil {
		return Envelope{}, err
	}
	d.clients.Broadcast(robot.ID, newEnvelope(BcastControlChanged, map[string]any{"robot_id": robot.ID, "holder_id": clientID}))
	return newEnvelope("ControlGranted", map[string]any{"holder_id": clientID}), nil
}

func (d *Dispatcher) releaseControl(req Envelope, clientID string) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	robot.Lock.Release(clientID)
	d.clients.Broadcast(robot.ID, newEnvelope(BcastControlChanged, map[string]any{"robot_id": robot.ID, "holder_id": nil}))
	return newEnvelope("ControlReleased", nil), nil
}

func (d *Dispatcher) controlStatus(req Envelope) (Envelope, error) {
	robot, err := d.robot(req.RobotID)
	if err != nil {
		return Envelope{}, err
	}
	holder, held := robot.Lock.Holder()
	return newEnvelope("ControlStatus", map[string]any{"held": held, "holder_id": holder}), nil
}

// OnClientDisconnect releases any control-lock token clientID held across
// every known robot, per spec.md §4.7's "token loss occurs on client
// disconnect" rule.
func (d *Dispatcher) OnClientDisconnect(clientID string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, robot := range d.robots {
		if holder, held := robot.Lock.Holder(); held && holder == clientID {
			robot.Lock.Release(clientID)
			d.clients.Broadcast(robot.ID, newEnvelope(BcastControlChanged, map[string]any{"robot_id": robot.ID, "holder_id": nil}))
		}
	}
}

func programFromStore(p store.Program) executor.Program {
	prog := executor.Program{
		ID:               p.ID,
		Name:             p.Name,
		DefaultSpeed:     p.DefaultSpeed,
		DefaultSpeedType: wire.SpeedType(p.DefaultSpeedType),
	}
	if p.StartPosition != nil {
		prog.StartPosition = &executor.Waypoint{X: p.StartPosition.X, Y: p.StartPosition.Y, Z: p.StartPosition.Z, Speed: p.DefaultSpeed, SpeedType: prog.DefaultSpeedType}
	}
	if p.EndPosition != nil {
		prog.EndPosition = &executor.Waypoint{X: p.EndPosition.X, Y: p.EndPosition.Y, Z: p.EndPosition.Z, Speed: p.DefaultSpeed, SpeedType: prog.DefaultSpeedType}
	}
	for _, wp := range p.Waypoints {
		w := executor.Waypoint{X: wp.X, Y: wp.Y, Z: wp.Z, SpeedType: prog.DefaultSpeedType, UFrameNumber: wp.UFrame, UToolNumber: wp.UTool}
		if wp.W != nil {
			w.W = *wp.W
		}
		if wp.P != nil {
			w.P = *wp.P
		}
		if wp.R != nil {
			w.R = *wp.R
		}
		if wp.Speed != nil {
			w.Speed = *wp.Speed
		} else {
			w.Speed = p.DefaultSpeed
		}
		prog.Waypoints = append(prog.Waypoints, w)
	}
	return prog
}
