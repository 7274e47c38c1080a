package executor

import (
	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// defaultCNTValue is the blend term_value used for every non-terminal
// waypoint unless the caller supplies an explicit override.
const defaultCNTValue = 100

// Waypoint is one Cartesian target in a program, independent of wire
// encoding. UFrame/UTool/TermType/TermValue are per-instruction overrides;
// a nil pointer means "use the program or session default".
type Waypoint struct {
	X, Y, Z, W, P, R       float64
	Ext1, Ext2, Ext3       float64
	Speed                  float64
	SpeedType              wire.SpeedType
	TermType               *wire.TermType
	TermValue              *int
	UFrameNumber           *int8
	UToolNumber            *int8
}

func (w Waypoint) toPosition() wire.Position {
	return wire.Position{X: w.X, Y: w.Y, Z: w.Z, W: w.W, P: w.P, R: w.R, Ext1: w.Ext1, Ext2: w.Ext2, Ext3: w.Ext3}
}

// Program is a sequence of waypoints plus optional approach/retreat anchors,
// per spec.md §4.6's Load description.
type Program struct {
	ID               string
	Name             string
	Waypoints        []Waypoint
	StartPosition    *Waypoint
	EndPosition      *Waypoint
	DefaultSpeed     float64
	DefaultSpeedType wire.SpeedType
}

// QueueEntry pairs a program line number with the packet it expands to.
// Approach and retreat anchors use line_number 0 and N+1 respectively.
type QueueEntry struct {
	LineNumber int
	Packet     wire.InstructionPacket
}

// Expand builds the (line_number, packet) queue described in spec.md §4.6's
// Load section: an optional approach move at line 0, the program's own
// waypoints at lines 1..N (the last forced to FINE if there is no explicit
// retreat), and an optional retreat move at line N+1.
func Expand(p Program, active wire.Configuration, nextSequenceID func() uint32) []QueueEntry {
	var entries []QueueEntry

	if p.StartPosition != nil {
		entries = append(entries, QueueEntry{
			LineNumber: 0,
			Packet:     linearMotionPacket(*p.StartPosition, active, nextSequenceID(), wire.TermCNT, defaultCNTValue),
		})
	}

	n := len(p.Waypoints)
	for i, wp := range p.Waypoints {
		lineNumber := i + 1
		termType, termValue := wp.TermType, wp.TermValue
		isLast := i == n-1
		if isLast && p.EndPosition == nil {
			fine := wire.TermFine
			zero := 0
			termType, termValue = &fine, &zero
		}
		entries = append(entries, QueueEntry{
			LineNumber: lineNumber,
			Packet:     linearMotionPacketWithOverride(wp, active, nextSequenceID(), termType, termValue),
		})
	}

	if p.EndPosition != nil {
		fine := wire.TermFine
		zero := 0
		entries = append(entries, QueueEntry{
			LineNumber: n + 1,
			Packet:     linearMotionPacketWithOverride(*p.EndPosition, active, nextSequenceID(), &fine, &zero),
		})
	}

	return entries
}

func linearMotionPacket(wp Waypoint, active wire.Configuration, seqID uint32, term wire.TermType, termValue int) wire.InstructionPacket {
	t := term
	v := termValue
	return linearMotionPacketWithOverride(wp, active, seqID, &t, &v)
}

// linearMotionPacketWithOverride merges the active session Configuration
// with any per-waypoint frame/tool override and applies the term policy:
// CNT/100 by default, overridden by termType/termValue when supplied.
func linearMotionPacketWithOverride(wp Waypoint, active wire.Configuration, seqID uint32, termType *wire.TermType, termValue *int) wire.InstructionPacket {
	cfg := active
	if wp.UFrameNumber != nil {
		cfg.UFrameNumber = *wp.UFrameNumber
	}
	if wp.UToolNumber != nil {
		cfg.UToolNumber = *wp.UToolNumber
	}

	term := wire.TermCNT
	value := defaultCNTValue
	if termType != nil {
		term = *termType
	}
	if termValue != nil {
		value = *termValue
	}

	speedType := wp.SpeedType
	if speedType == "" {
		speedType = wire.SpeedMMSec
	}

	return wire.InstructionPacket{Instruction: wire.LinearMotion{
		SequenceID:    seqID,
		Configuration: cfg,
		Position:      wp.toPosition(),
		SpeedType:     speedType,
		Speed:         wp.Speed,
		TermType:      term,
		TermValue:     value,
	}}
}
