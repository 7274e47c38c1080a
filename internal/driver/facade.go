package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// DefaultResponseTimeout bounds how long a high-level wrapper waits for a
// matching response before failing with ErrTimeout, per spec.md §4.5.
const DefaultResponseTimeout = 5 * time.Second

// Facade is the public surface the executor and session layers build on: it
// hides the queue/bus plumbing behind connect/disconnect and a handful of
// high-level request/response wrappers, matching spec.md §4.5's component
// contract.
type Facade struct {
	conn   *Connection
	logger *zap.Logger
}

// NewFacade wraps a freshly built Connection.
func NewFacade(cfg Config, logger *zap.Logger) *Facade {
	return &Facade{conn: NewConnection(cfg, logger), logger: logger}
}

func (f *Facade) Connect(ctx context.Context) error    { return f.conn.Connect(ctx) }
func (f *Facade) Disconnect(ctx context.Context) error { return f.conn.Disconnect(ctx) }
func (f *Facade) State() State                         { return f.conn.State() }
func (f *Facade) TPInitialized() bool                  { return f.conn.TPInitialized() }

// ResponseSubscribe attaches a new receiver to the raw response bus. Callers
// own the subscription's lifetime and must Unsubscribe when done.
func (f *Facade) ResponseSubscribe() (id int, ch <-chan wire.ResponsePacket) {
	return f.conn.responseBus.Subscribe()
}

func (f *Facade) ResponseUnsubscribe(id int) { f.conn.responseBus.Unsubscribe(id) }

// SentSubscribe attaches a new receiver to the sent-instruction bus, letting
// callers correlate request_id to sequence_id the moment a packet hits the
// wire.
func (f *Facade) SentSubscribe() (id int, ch <-chan SentInstructionInfo) {
	return f.conn.sentBus.Subscribe()
}

func (f *Facade) SentUnsubscribe(id int) { f.conn.sentBus.Unsubscribe(id) }

// SendPacket enqueues pkt at priority and returns its assigned request_id
// without waiting for a response. NotConnected is returned if the session
// isn't Ready.
func (f *Facade) SendPacket(pkt wire.SendPacket, priority Priority) (uint32, error) {
	if f.conn.State() != StateReady {
		return 0, &wire.Error{Kind: wire.ErrDisconnected, Message: "not connected"}
	}
	return f.conn.queue.Send(pkt, priority)
}

// Pause freezes the send queue; only Immediate-priority packets still drain.
func (f *Facade) Pause() {
	if f.conn.queue != nil {
		f.conn.queue.Pause()
	}
}

// Continue releases a previously Paused queue.
func (f *Facade) Continue() {
	if f.conn.queue != nil {
		f.conn.queue.Unpause()
	}
}

// Cancel best-effort removes a not-yet-written request from the queue.
func (f *Facade) Cancel(requestID uint32) bool {
	if f.conn.queue == nil {
		return false
	}
	return f.conn.queue.Cancel(requestID)
}

// sendAwait enqueues pkt and waits up to timeout for the first response
// whose Kind/Name match expectKind/expectName, implementing the matched
// request/response pattern every high-level wrapper below needs.
func (f *Facade) sendAwait(ctx context.Context, pkt wire.SendPacket, priority Priority, expectKind wire.ResponseKind, expectName string, timeout time.Duration) (wire.ResponsePacket, error) {
	if f.conn.State() != StateReady {
		return wire.ResponsePacket{}, &wire.Error{Kind: wire.ErrDisconnected, Message: "not connected"}
	}
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}

	id, ch := f.conn.responseBus.Subscribe()
	defer f.conn.responseBus.Unsubscribe(id)

	if _, err := f.conn.queue.Send(pkt, priority); err != nil {
		return wire.ResponsePacket{}, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				return wire.ResponsePacket{}, &wire.Error{Kind: wire.ErrDisconnected, Message: "response bus closed"}
			}
			if resp.Kind == expectKind && resp.Name == expectName {
				return resp, nil
			}
		case <-deadline.C:
			return wire.ResponsePacket{}, &wire.Error{Kind: wire.ErrTimeout, Message: expectName}
		case <-ctx.Done():
			return wire.ResponsePacket{}, ctx.Err()
		}
	}
}

// respErr converts a non-zero ErrorID on a matched response into a
// wire.Error, leaving nil for a clean ErrorID==0 acknowledgement.
func respErr(resp wire.ResponsePacket) error {
	if resp.ErrorID == 0 {
		return nil
	}
	code, _ := wire.FromErrorID(resp.ErrorID)
	return &wire.Error{Kind: wire.ErrFanucCode, Code: code}
}

// Initialize issues FRC_Initialize and marks TPInitialized on success.
func (f *Facade) Initialize(ctx context.Context, groupMask int) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.Initialize{GroupMask: groupMask}}, Immediate, wire.CommandKind, wire.CmdInitialize, 0)
	if err != nil {
		return err
	}
	if err := respErr(resp); err != nil {
		return err
	}
	f.conn.tpInitialized = true
	return nil
}

// Abort issues FRC_Abort.
func (f *Facade) Abort(ctx context.Context) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.Abort{}}, Immediate, wire.CommandKind, wire.CmdAbort, 0)
	if err != nil {
		return err
	}
	return respErr(resp)
}

// Reset issues FRC_Reset.
func (f *Facade) Reset(ctx context.Context) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.Reset{}}, Immediate, wire.CommandKind, wire.CmdReset, 0)
	if err != nil {
		return err
	}
	return respErr(resp)
}

// PauseProgram issues FRC_Pause at High priority per spec.md §8 scenario 3,
// stopping motion at the controller. This is distinct from Pause, which
// only freezes the local send queue; callers must send this before
// freezing the queue, since a High-priority packet never drains from a
// paused queue.
func (f *Facade) PauseProgram(ctx context.Context) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.Pause{}}, High, wire.CommandKind, wire.CmdPause, 0)
	if err != nil {
		return err
	}
	return respErr(resp)
}

// ContinueProgram issues FRC_Continue, resuming controller-side motion.
func (f *Facade) ContinueProgram(ctx context.Context) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.Continue{}}, Immediate, wire.CommandKind, wire.CmdContinue, 0)
	if err != nil {
		return err
	}
	return respErr(resp)
}

// GetStatus issues FRC_GetStatus and returns the decoded status fields.
func (f *Facade) GetStatus(ctx context.Context) (wire.ResponsePacket, error) {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.GetStatus{}}, High, wire.CommandKind, wire.CmdGetStatus, 0)
	if err != nil {
		return wire.ResponsePacket{}, err
	}
	return resp, respErr(resp)
}

// SetActiveFrameTool issues FRC_SetUFrameUTool, activating a frame/tool
// pair for subsequent motion.
func (f *Facade) SetActiveFrameTool(ctx context.Context, frameNumber, toolNumber int8) error {
	resp, err := f.sendAwait(ctx, wire.CommandPacket{Command: wire.SetUFrameUTool{FrameNumber: frameNumber, ToolNumber: toolNumber}}, High, wire.CommandKind, wire.CmdSetUFrameUTool, 0)
	if err != nil {
		return err
	}
	return respErr(resp)
}

// GetActiveFrameTool issues FRC_GetUFrameUTool and returns the controller's
// currently active frame/tool pair.
func (f *Facade) GetActiveFrameTool(ctx context.Context) (frameNumber, toolNumber int8, err error) {
	resp, rerr := f.sendAwait(ctx, wire.CommandPacket{Command: wire.GetUFrameUTool{}}, High, wire.CommandKind, wire.CmdGetUFrameUTool, 0)
	if rerr != nil {
		return 0, 0, rerr
	}
	if err := respErr(resp); err != nil {
		return 0, 0, err
	}
	frame, _ := resp.Fields["FrameNumber"].(float64)
	tool, _ := resp.Fields["ToolNumber"].(float64)
	return int8(frame), int8(tool), nil
}
