package executor

import (
	"testing"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

func sequencer() func() uint32 {
	var n uint32
	return func() uint32 {
		n++
		return n
	}
}

func TestExpandForcesFineOnLastWaypointWithoutEndPosition(t *testing.T) {
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100},
			{X: 2, Speed: 100},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	last := entries[len(entries)-1].Packet.Instruction.(wire.LinearMotion)
	if last.TermType != wire.TermFine {
		t.Fatalf("expected last waypoint to be forced to FINE, got %v", last.TermType)
	}
	if last.TermValue != 0 {
		t.Fatalf("expected forced FINE term_value 0, got %d", last.TermValue)
	}
}

func TestExpandDefaultsNonTerminalWaypointsToCNT100(t *testing.T) {
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100},
			{X: 2, Speed: 100},
			{X: 3, Speed: 100},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	first := entries[0].Packet.Instruction.(wire.LinearMotion)
	if first.TermType != wire.TermCNT || first.TermValue != defaultCNTValue {
		t.Fatalf("expected first waypoint CNT/%d, got %v/%d", defaultCNTValue, first.TermType, first.TermValue)
	}
	middle := entries[1].Packet.Instruction.(wire.LinearMotion)
	if middle.TermType != wire.TermCNT || middle.TermValue != defaultCNTValue {
		t.Fatalf("expected middle waypoint CNT/%d, got %v/%d", defaultCNTValue, middle.TermType, middle.TermValue)
	}
}

func TestExpandInjectsApproachAndRetreat(t *testing.T) {
	prog := Program{
		StartPosition: &Waypoint{X: 0, Speed: 50},
		Waypoints: []Waypoint{
			{X: 1, Speed: 100},
		},
		EndPosition: &Waypoint{X: 9, Speed: 50},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (approach, waypoint, retreat), got %d", len(entries))
	}
	if entries[0].LineNumber != 0 {
		t.Fatalf("expected approach at line_number 0, got %d", entries[0].LineNumber)
	}
	if entries[1].LineNumber != 1 {
		t.Fatalf("expected waypoint at line_number 1, got %d", entries[1].LineNumber)
	}
	if entries[2].LineNumber != 2 {
		t.Fatalf("expected retreat at line_number 2, got %d", entries[2].LineNumber)
	}

	retreat := entries[2].Packet.Instruction.(wire.LinearMotion)
	if retreat.TermType != wire.TermFine {
		t.Fatalf("expected retreat to be FINE, got %v", retreat.TermType)
	}

	mid := entries[1].Packet.Instruction.(wire.LinearMotion)
	if mid.TermType != wire.TermCNT || mid.TermValue != defaultCNTValue {
		t.Fatalf("expected sole waypoint to default to CNT/%d since an explicit retreat follows it, got %v/%d", defaultCNTValue, mid.TermType, mid.TermValue)
	}
}

func TestExpandSequenceIDsAreMonotonic(t *testing.T) {
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100},
			{X: 2, Speed: 100},
			{X: 3, Speed: 100},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	var last uint32
	for _, e := range entries {
		seq := e.Packet.Instruction.GetSequenceID()
		if seq <= last {
			t.Fatalf("expected increasing sequence ids, got %d after %d", seq, last)
		}
		last = seq
	}
}

func TestExpandHonorsPerWaypointFrameToolOverride(t *testing.T) {
	var frame int8 = 3
	var tool int8 = 2
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100, UFrameNumber: &frame, UToolNumber: &tool},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	lm := entries[0].Packet.Instruction.(wire.LinearMotion)
	if lm.Configuration.UFrameNumber != frame {
		t.Fatalf("expected UFrameNumber override %d, got %d", frame, lm.Configuration.UFrameNumber)
	}
	if lm.Configuration.UToolNumber != tool {
		t.Fatalf("expected UToolNumber override %d, got %d", tool, lm.Configuration.UToolNumber)
	}
}

func TestExpandExplicitTermOverrideSurvivesOnNonTerminalWaypoint(t *testing.T) {
	cnt := wire.TermCNT
	val := 50
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100, TermType: &cnt, TermValue: &val},
			{X: 2, Speed: 100},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	first := entries[0].Packet.Instruction.(wire.LinearMotion)
	if first.TermType != wire.TermCNT || first.TermValue != 50 {
		t.Fatalf("expected explicit override CNT/50 to survive on non-terminal waypoint, got %v/%d", first.TermType, first.TermValue)
	}
}

func TestExpandLastWaypointForcedFineEvenWithExplicitOverride(t *testing.T) {
	cnt := wire.TermCNT
	val := 50
	prog := Program{
		Waypoints: []Waypoint{
			{X: 1, Speed: 100, TermType: &cnt, TermValue: &val},
		},
	}
	active := wire.DefaultConfiguration(1, 1)
	entries := Expand(prog, active, sequencer())

	last := entries[len(entries)-1].Packet.Instruction.(wire.LinearMotion)
	if last.TermType != wire.TermFine {
		t.Fatalf("expected last waypoint with no EndPosition to be forced FINE regardless of explicit override, got %v", last.TermType)
	}
}
