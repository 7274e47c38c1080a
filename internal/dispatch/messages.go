// Package dispatch is the client-facing request/response/broadcast layer:
// it decodes a transport-agnostic JSON envelope (spec.md §6.2 suggests a
// "type"-discriminated envelope; transport itself is irrelevant to the
// contract), routes requests against a session.RobotConnection, enforces
// the control lock, and re-shapes session/executor/driver events into
// client-facing broadcasts.
//
// The envelope shape is grounded on the teacher's
// internal/protocol/messages.go Message{Type, Topic, Payload map[string]any}
// idiom: one generic envelope carrying a loosely-typed payload, rather than
// one Go wire type per request/response/broadcast variant.
package dispatch

import "time"

// Envelope is both the inbound client request and the outbound
// response/broadcast shape; Type discriminates which. RobotID selects
// which RobotConnection a request targets (empty for requests that don't
// need one, e.g. listing programs).
type Envelope struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	RobotID   string         `json:"robot_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func newEnvelope(typ string, payload map[string]any) Envelope {
	return Envelope{Type: typ, Payload: payload, Timestamp: time.Now()}
}

func errorEnvelope(requestID, message string) Envelope {
	return Envelope{Type: "Error", RequestID: requestID, Error: message, Timestamp: time.Now()}
}

// Request type discriminators (spec.md §6.2, non-exhaustive families).
const (
	ReqListPrograms    = "ListPrograms"
	ReqGetProgram      = "GetProgram"
	ReqCreateProgram   = "CreateProgram"
	ReqDeleteProgram   = "DeleteProgram"
	ReqUploadCSV       = "UploadProgramCSV"

	ReqLoadProgram   = "LoadProgram"
	ReqUnloadProgram = "UnloadProgram"
	ReqStartProgram  = "StartProgram"
	ReqPauseProgram  = "PauseProgram"
	ReqResumeProgram = "ResumeProgram"
	ReqStopProgram   = "StopProgram"
	ReqGetState      = "GetExecutionState"

	ReqAbort      = "RobotAbort"
	ReqReset      = "RobotReset"
	ReqInitialize = "RobotInitialize"

	ReqGetStatus     = "GetConnectionStatus"
	ReqConnect       = "Connect"
	ReqConnectSaved  = "ConnectToSaved"
	ReqDisconnect    = "Disconnect"

	ReqGetActiveFrameTool = "GetActiveFrameTool"
	ReqSetActiveFrameTool = "SetActiveFrameTool"

	ReqReadDIN  = "ReadDIN"
	ReqWriteDOUT = "WriteDOUT"

	ReqRequestControl = "RequestControl"
	ReqReleaseControl = "ReleaseControl"
	ReqControlStatus  = "ControlStatus"
)

// Broadcast type discriminators (spec.md §6.2).
const (
	BcastExecutionStateChanged       = "ExecutionStateChanged"
	BcastInstructionProgress         = "InstructionProgress"
	BcastInstructionSent             = "InstructionSent"
	BcastProgramComplete             = "ProgramComplete"
	BcastConnectionStatus            = "ConnectionStatus"
	BcastRobotConnected              = "RobotConnected"
	BcastRobotDisconnected           = "RobotDisconnected"
	BcastRobotError                  = "RobotError"
	BcastActiveFrameTool             = "ActiveFrameTool"
	BcastActiveConfigurationResponse = "ActiveConfigurationResponse"
	BcastDinValue                    = "DinValue"
	BcastDoutValue                   = "DoutValue"
	BcastControlChanged              = "ControlChanged"
)
