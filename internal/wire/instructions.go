package wire

// Instruction is a motion or motion-adjacent command sent to the
// controller. Every variant carries a SequenceID: the application-assigned
// identifier the controller echoes back on completion.
type Instruction interface {
	InstructionName() string
	GetSequenceID() uint32
}

// Motion instruction names, as they appear on the wire.
const (
	InsLinearMotion         = "FRC_LinearMotion"
	InsLinearRelative       = "FRC_LinearRelative"
	InsLinearMotionJRep     = "FRC_LinearMotionJRep"
	InsLinearRelativeJRep   = "FRC_LinearRelativeJRep"
	InsJointMotion          = "FRC_JointMotion"
	InsJointRelative        = "FRC_JointRelative"
	InsJointMotionJRep      = "FRC_JointMotionJRep"
	InsJointRelativeJRep    = "FRC_JointRelativeJRep"
	InsCircularMotion       = "FRC_CircularMotion"
	InsCircularRelative     = "FRC_CircularRelative"
	InsWaitDIN              = "FRC_WaitDIN"
	InsWaitTime             = "FRC_WaitTime"
	InsSetPayLoad           = "FRC_SetPayLoad"
	InsSetUFrame            = "FRC_SetUFrame"
	InsSetUTool             = "FRC_SetUTool"
	InsCall                 = "FRC_Call"
)

// LinearMotion moves the TCP to an absolute Cartesian position.
type LinearMotion struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i LinearMotion) InstructionName() string { return InsLinearMotion }
func (i LinearMotion) GetSequenceID() uint32    { return i.SequenceID }

// LinearRelative moves the TCP by a Cartesian offset from its current pose.
type LinearRelative struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i LinearRelative) InstructionName() string { return InsLinearRelative }
func (i LinearRelative) GetSequenceID() uint32    { return i.SequenceID }

// LinearMotionJRep is a linear motion expressed with a joint-representation
// target, used when the controller needs the destination in joint space.
type LinearMotionJRep struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	JointAngles   JointAngles   `json:"JointAngles"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i LinearMotionJRep) InstructionName() string { return InsLinearMotionJRep }
func (i LinearMotionJRep) GetSequenceID() uint32    { return i.SequenceID }

// LinearRelativeJRep is the joint-represented variant of LinearRelative.
type LinearRelativeJRep struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	JointAngles   JointAngles   `json:"JointAngles"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i LinearRelativeJRep) InstructionName() string { return InsLinearRelativeJRep }
func (i LinearRelativeJRep) GetSequenceID() uint32    { return i.SequenceID }

// JointMotion moves to an absolute pose via joint interpolation.
type JointMotion struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i JointMotion) InstructionName() string { return InsJointMotion }
func (i JointMotion) GetSequenceID() uint32    { return i.SequenceID }

// JointRelative is a joint-interpolated move relative to the current pose.
type JointRelative struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i JointRelative) InstructionName() string { return InsJointRelative }
func (i JointRelative) GetSequenceID() uint32    { return i.SequenceID }

// JointMotionJRep is JointMotion addressed directly in joint space.
type JointMotionJRep struct {
	SequenceID  uint32      `json:"SequenceID"`
	JointAngles JointAngles `json:"JointAngles"`
	SpeedType   SpeedType   `json:"SpeedType"`
	Speed       float64     `json:"Speed"`
	TermType    TermType    `json:"TermType"`
	TermValue   int         `json:"TermValue"`
}

func (i JointMotionJRep) InstructionName() string { return InsJointMotionJRep }
func (i JointMotionJRep) GetSequenceID() uint32    { return i.SequenceID }

// JointRelativeJRep is JointRelative addressed directly in joint space.
type JointRelativeJRep struct {
	SequenceID  uint32      `json:"SequenceID"`
	JointAngles JointAngles `json:"JointAngles"`
	SpeedType   SpeedType   `json:"SpeedType"`
	Speed       float64     `json:"Speed"`
	TermType    TermType    `json:"TermType"`
	TermValue   int         `json:"TermValue"`
}

func (i JointRelativeJRep) InstructionName() string { return InsJointRelativeJRep }
func (i JointRelativeJRep) GetSequenceID() uint32    { return i.SequenceID }

// CircularMotion moves along a circular arc through an intermediate point
// to an absolute end position.
type CircularMotion struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	ViaPosition   Position      `json:"ViaPosition"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i CircularMotion) InstructionName() string { return InsCircularMotion }
func (i CircularMotion) GetSequenceID() uint32    { return i.SequenceID }

// CircularRelative is CircularMotion addressed relative to the current pose.
type CircularRelative struct {
	SequenceID    uint32        `json:"SequenceID"`
	Configuration Configuration `json:"Configuration"`
	ViaPosition   Position      `json:"ViaPosition"`
	Position      Position      `json:"Position"`
	SpeedType     SpeedType     `json:"SpeedType"`
	Speed         float64       `json:"Speed"`
	TermType      TermType      `json:"TermType"`
	TermValue     int           `json:"TermValue"`
}

func (i CircularRelative) InstructionName() string { return InsCircularRelative }
func (i CircularRelative) GetSequenceID() uint32    { return i.SequenceID }

// WaitDIN blocks the TP program until a digital input reaches a value.
type WaitDIN struct {
	SequenceID uint32 `json:"SequenceID"`
	PortNumber int    `json:"PortNumber"`
	PortValue  OnOff  `json:"PortValue"`
}

func (i WaitDIN) InstructionName() string { return InsWaitDIN }
func (i WaitDIN) GetSequenceID() uint32    { return i.SequenceID }

// WaitTime pauses the TP program for a fixed duration in seconds.
type WaitTime struct {
	SequenceID uint32  `json:"SequenceID"`
	Time       float64 `json:"Time"`
}

func (i WaitTime) InstructionName() string { return InsWaitTime }
func (i WaitTime) GetSequenceID() uint32    { return i.SequenceID }

// SetPayLoad selects a preconfigured payload schedule number.
type SetPayLoad struct {
	SequenceID   uint32 `json:"SequenceID"`
	PayloadSchedule int `json:"PayloadSchedule"`
}

func (i SetPayLoad) InstructionName() string { return InsSetPayLoad }
func (i SetPayLoad) GetSequenceID() uint32    { return i.SequenceID }

// SetUFrame activates a user frame by number for subsequent instructions.
type SetUFrame struct {
	SequenceID   uint32 `json:"SequenceID"`
	FrameNumber  int8   `json:"FrameNumber"`
}

func (i SetUFrame) InstructionName() string { return InsSetUFrame }
func (i SetUFrame) GetSequenceID() uint32    { return i.SequenceID }

// SetUTool activates a user tool by number for subsequent instructions.
type SetUTool struct {
	SequenceID  uint32 `json:"SequenceID"`
	ToolNumber  int8   `json:"ToolNumber"`
}

func (i SetUTool) InstructionName() string { return InsSetUTool }
func (i SetUTool) GetSequenceID() uint32    { return i.SequenceID }

// Call invokes a named TP subprogram.
type Call struct {
	SequenceID  uint32 `json:"SequenceID"`
	ProgramName string `json:"ProgramName"`
}

func (i Call) InstructionName() string { return InsCall }
func (i Call) GetSequenceID() uint32    { return i.SequenceID }
