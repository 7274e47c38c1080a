package wire

import "encoding/json"

// SendPacket is the outer union of everything the application can hand to
// the driver's priority queue for eventual transmission: a handshake
// envelope, a non-motion command, or a motion instruction.
type SendPacket interface {
	queueItem()
}

// CommunicationPacket wraps a handshake envelope for the send queue.
type CommunicationPacket struct{ Communication Communication }

func (CommunicationPacket) queueItem() {}

// CommandPacket wraps a non-motion command for the send queue.
type CommandPacket struct{ Command Command }

func (CommandPacket) queueItem() {}

// InstructionPacket wraps a motion instruction for the send queue.
type InstructionPacket struct{ Instruction Instruction }

func (InstructionPacket) queueItem() {}

// SequenceID returns the instruction's sequence id. Handshake and
// non-motion command packets have no such method; the driver treats them
// as sequence id 0.
func (p InstructionPacket) SequenceID() uint32 { return p.Instruction.GetSequenceID() }

// DriverCommand is a pseudo-packet interpreted by the queue itself and
// never placed on the wire.
type DriverCommand interface {
	queueItem()
	driverCommand()
}

// DriverPause freezes the writer: only Immediate-priority packets still
// drain while paused.
type DriverPause struct{}

func (DriverPause) queueItem()     {}
func (DriverPause) driverCommand() {}

// DriverUnpause releases a previously paused writer.
type DriverUnpause struct{}

func (DriverUnpause) queueItem()     {}
func (DriverUnpause) driverCommand() {}

// DriverCancel best-effort removes a not-yet-written entry by request id.
type DriverCancel struct{ RequestID uint32 }

func (DriverCancel) queueItem()     {}
func (DriverCancel) driverCommand() {}

// ResponseKind discriminates which wire family a ResponsePacket decoded
// from.
type ResponseKind int

const (
	UnknownKind ResponseKind = iota
	CommunicationKind
	CommandKind
	InstructionKind
)

// ResponsePacket is the decoded form of one inbound frame. Kind and Name
// identify the variant; ErrorID and SequenceID are lifted out for the
// common case (every response carries ErrorID, motion responses also carry
// SequenceID); Fields holds the full decoded object for variant-specific
// detail (Frame, PortValue, Group, and so on) that callers type-assert out
// as needed — the reader stays tolerant of firmware additions by never
// requiring a fixed Go type per inbound variant.
type ResponsePacket struct {
	Kind       ResponseKind
	Name       string
	ErrorID    uint32
	SequenceID uint32
	Fields     map[string]any
}

// Encode renders a SendPacket as wire bytes without the trailing \r\n; the
// codec owns framing.
func Encode(pkt SendPacket) ([]byte, error) {
	switch p := pkt.(type) {
	case CommunicationPacket:
		return mergeDiscriminator("Communication", p.Communication.CommunicationName(), p.Communication)
	case CommandPacket:
		return mergeDiscriminator("Command", p.Command.CommandName(), p.Command)
	case InstructionPacket:
		return mergeDiscriminator("Instruction", p.Instruction.InstructionName(), p.Instruction)
	default:
		return nil, &Error{Kind: ErrSerialization, Message: "unencodable packet type"}
	}
}

// mergeDiscriminator marshals payload and splices in the wire discriminator
// field, e.g. {"Instruction":"FRC_LinearMotion", ...payload fields}.
func mergeDiscriminator(field, variant string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: ErrSerialization, Message: err.Error()}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &Error{Kind: ErrSerialization, Message: err.Error()}
	}
	nameRaw, err := json.Marshal(variant)
	if err != nil {
		return nil, &Error{Kind: ErrSerialization, Message: err.Error()}
	}
	m[field] = nameRaw
	return json.Marshal(m)
}

// Decode parses one JSON line into a ResponsePacket, tolerating unknown
// discriminators per spec.md §4.1 — the reader must never drop a frame
// silently on a firmware version mismatch.
func Decode(line []byte) (ResponsePacket, error) {
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		return ResponsePacket{}, &Error{Kind: ErrSerialization, Message: err.Error()}
	}

	out := ResponsePacket{Fields: m}
	if v, ok := toUint32(m["ErrorID"]); ok {
		out.ErrorID = v
	}
	if v, ok := toUint32(m["SequenceID"]); ok {
		out.SequenceID = v
	}

	if name, ok := m["Instruction"].(string); ok {
		out.Kind = InstructionKind
		out.Name = name
		return out, nil
	}
	if name, ok := m["Command"].(string); ok {
		out.Kind = CommandKind
		out.Name = name
		return out, nil
	}
	if name, ok := m["Communication"].(string); ok {
		out.Kind = CommunicationKind
		out.Name = name
		return out, nil
	}

	out.Kind = UnknownKind
	return out, nil
}

func toUint32(v any) (uint32, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return uint32(f), true
}
