// Package wire defines the FANUC RMI wire representation: the tagged-union
// message families exchanged with the controller, their JSON encoding, and
// the \r\n-delimited framing the socket uses.
package wire

// Position is a Cartesian pose plus up to three external axes.
type Position struct {
	X    float64 `json:"X"`
	Y    float64 `json:"Y"`
	Z    float64 `json:"Z"`
	W    float64 `json:"W"`
	P    float64 `json:"P"`
	R    float64 `json:"R"`
	Ext1 float64 `json:"Ext1"`
	Ext2 float64 `json:"Ext2"`
	Ext3 float64 `json:"Ext3"`
}

// Configuration carries frame/tool selection plus the arm-posture
// discriminants that disambiguate an inverse-kinematics branch.
//
// DefaultConfiguration fixes front=1, up=1, left=1 at the system boundary;
// the source carries a conflicting 1,1,0 variant elsewhere and the spec
// leaves the choice to the implementer.
type Configuration struct {
	UFrameNumber int8 `json:"UFrameNumber"`
	UToolNumber  int8 `json:"UToolNumber"`
	Front        int8 `json:"Front"`
	Up           int8 `json:"Up"`
	Left         int8 `json:"Left"`
	Flip         int8 `json:"Flip"`
	Turn4        int8 `json:"Turn4"`
	Turn5        int8 `json:"Turn5"`
	Turn6        int8 `json:"Turn6"`
}

// DefaultConfiguration returns the posture discriminants used whenever a
// caller does not supply an explicit Configuration.
func DefaultConfiguration(uFrame, uTool int8) Configuration {
	return Configuration{
		UFrameNumber: uFrame,
		UToolNumber:  uTool,
		Front:        1,
		Up:           1,
		Left:         1,
	}
}

// FrameToolData identifies a workspace frame or a tool offset.
type FrameToolData struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
	W float64 `json:"W"`
	P float64 `json:"P"`
	R float64 `json:"R"`
}

// JointAngles holds the six nominal joints plus three auxiliary axes that
// default to zero when absent.
type JointAngles struct {
	J1 float64 `json:"J1"`
	J2 float64 `json:"J2"`
	J3 float64 `json:"J3"`
	J4 float64 `json:"J4"`
	J5 float64 `json:"J5"`
	J6 float64 `json:"J6"`
	J7 float64 `json:"J7"`
	J8 float64 `json:"J8"`
	J9 float64 `json:"J9"`
}

// SpeedType selects the unit a motion instruction's Speed is expressed in.
type SpeedType string

const (
	SpeedMMSec   SpeedType = "mmSec"
	SpeedInchMin SpeedType = "InchMin"
	SpeedTime    SpeedType = "Time"
	SpeedMSec    SpeedType = "mSec"
)

// TermType selects how a motion instruction ends.
//
// CR is modeled as a passthrough value only: accepted on decode, never
// synthesized by the executor, never given special-cased behavior (the
// source never exercises it outside the protocol enum).
type TermType string

const (
	TermFine TermType = "FINE"
	TermCNT  TermType = "CNT"
	TermCR   TermType = "CR"
)

// OnOff mirrors the controller's two-state digital signal value.
type OnOff string

const (
	On  OnOff = "ON"
	Off OnOff = "OFF"
)
