package wire

import "fmt"

// ErrorKind enumerates the error taxonomy this driver surfaces. It mirrors
// FrcError from the original Rust source plus two additions the Go
// implementation needs at the session/dispatch boundary: ControlDenied and
// Validation.
type ErrorKind int

const (
	ErrSerialization ErrorKind = iota
	ErrUnrecognizedPacket
	ErrFanucCode
	ErrFailedToSend
	ErrFailedToReceive
	ErrDisconnected
	ErrTimeout
	ErrInitialization
	ErrControlDenied
	ErrValidation
)

// Error is the taxonomy's single Go error type; Kind selects which
// semantics apply and which of the optional fields are populated.
type Error struct {
	Kind    ErrorKind
	Message string
	Code    FanucErrorCode
	HolderID string // ErrControlDenied: the client currently holding the token
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrSerialization:
		return fmt.Sprintf("serialization error: %s", e.Message)
	case ErrUnrecognizedPacket:
		return "unrecognized packet"
	case ErrFanucCode:
		return fmt.Sprintf("fanuc returned error#%d: %s", uint32(e.Code), e.Code.Message())
	case ErrFailedToSend:
		return fmt.Sprintf("send error: %s", e.Message)
	case ErrFailedToReceive:
		return fmt.Sprintf("receive error: %s", e.Message)
	case ErrDisconnected:
		return "robot appears to be disconnected"
	case ErrTimeout:
		return fmt.Sprintf("timed out waiting for response: %s", e.Message)
	case ErrInitialization:
		return fmt.Sprintf("could not initialize: %s", e.Message)
	case ErrControlDenied:
		return fmt.Sprintf("control denied: held by %s", e.HolderID)
	case ErrValidation:
		return fmt.Sprintf("validation failed: %s", e.Message)
	default:
		return "unknown error"
	}
}

// FanucErrorCode is the controller's own numeric error space. Zero-value
// UnrecognizedFrcError is the catch-all for codes outside this enumeration.
type FanucErrorCode uint32

const (
	InternalSystemError            FanucErrorCode = 2556929
	InvalidUToolNumber              FanucErrorCode = 2556930
	InvalidUFrameNumber             FanucErrorCode = 2556931
	InvalidPositionRegister         FanucErrorCode = 2556932
	InvalidSpeedOverride            FanucErrorCode = 2556933
	CannotExecuteTPProgram          FanucErrorCode = 2556934
	ControllerServoOff              FanucErrorCode = 2556935
	CannotExecuteTPProgramDuplicate FanucErrorCode = 2556936
	RMINotRunning                   FanucErrorCode = 2556937
	TPProgramNotPaused              FanucErrorCode = 2556938
	CannotResumeTPProgram           FanucErrorCode = 2556939
	CannotResetController           FanucErrorCode = 2556940
	InvalidRMICommand               FanucErrorCode = 2556941
	RMICommandFail                  FanucErrorCode = 2556942
	InvalidControllerState          FanucErrorCode = 2556943
	PleaseCyclePower                FanucErrorCode = 2556944
	InvalidPayloadSchedule          FanucErrorCode = 2556945
	InvalidMotionOption             FanucErrorCode = 2556946
	InvalidVisionRegister           FanucErrorCode = 2556947
	InvalidRMIInstruction           FanucErrorCode = 2556948
	InvalidValue                    FanucErrorCode = 2556949
	InvalidTextString               FanucErrorCode = 2556950
	InvalidPositionData             FanucErrorCode = 2556951
	RMIInHoldState                  FanucErrorCode = 2556952
	RemoteDeviceDisconnected        FanucErrorCode = 2556953
	RobotAlreadyConnected           FanucErrorCode = 2556954
	WaitForCommandDone              FanucErrorCode = 2556955
	WaitForInstructionDone          FanucErrorCode = 2556956
	InvalidSequenceIDNumber         FanucErrorCode = 2556957
	InvalidSpeedType                FanucErrorCode = 2556958
	InvalidSpeedValue               FanucErrorCode = 2556959
	InvalidTermType                 FanucErrorCode = 2556960
	InvalidTermValue                FanucErrorCode = 2556961
	InvalidLCBPortType              FanucErrorCode = 2556962
	InvalidACCValue                 FanucErrorCode = 2556963
	InvalidDestinationPosition      FanucErrorCode = 2556964
	InvalidVIAPosition              FanucErrorCode = 2556965
	InvalidPortNumber               FanucErrorCode = 2556966
	InvalidGroupNumber              FanucErrorCode = 2556967
	InvalidGroupMask                FanucErrorCode = 2556968
	JointMotionWithCOORD            FanucErrorCode = 2556969
	IncrementalMotionWithCOORD      FanucErrorCode = 2556970
	RobotInSingleStepMode           FanucErrorCode = 2556971
	InvalidPositionDataType         FanucErrorCode = 2556972
	ReadyForASCIIPacket             FanucErrorCode = 2556973
	ASCIIConversionFailed           FanucErrorCode = 2556974
	InvalidASCIIInstruction         FanucErrorCode = 2556975
	InvalidNumberOfGroups           FanucErrorCode = 2556976
	InvalidInstructionPacket        FanucErrorCode = 2556977
	InvalidASCIIStringPacket        FanucErrorCode = 2556978
	InvalidASCIIStringSize          FanucErrorCode = 2556979
	InvalidApplicationTool          FanucErrorCode = 2556980
	InvalidCallProgramName          FanucErrorCode = 2556981
	UnrecognizedFrcError            FanucErrorCode = 0
)

var fanucErrorMessages = map[FanucErrorCode]string{
	InternalSystemError:            "Internal System Error.",
	InvalidUToolNumber:              "Invalid UTool Number.",
	InvalidUFrameNumber:             "Invalid UFrame Number.",
	InvalidPositionRegister:         "Invalid Position Register.",
	InvalidSpeedOverride:            "Invalid Speed Override.",
	CannotExecuteTPProgram:          "Cannot Execute TP program.",
	ControllerServoOff:              "Controller Servo is Off.",
	CannotExecuteTPProgramDuplicate: "Cannot Execute TP program.",
	RMINotRunning:                   "RMI is Not Running.",
	TPProgramNotPaused:              "TP Program is Not Paused.",
	CannotResumeTPProgram:           "Cannot Resume TP Program.",
	CannotResetController:           "Cannot Reset Controller.",
	InvalidRMICommand:               "Invalid RMI Command.",
	RMICommandFail:                  "RMI Command Fail.",
	InvalidControllerState:          "Invalid Controller State.",
	PleaseCyclePower:                "Please Cycle Power.",
	InvalidPayloadSchedule:          "Invalid Payload Schedule.",
	InvalidMotionOption:             "Invalid Motion Option.",
	InvalidVisionRegister:           "Invalid Vision Register.",
	InvalidRMIInstruction:           "Invalid RMI Instruction.",
	InvalidValue:                    "Invalid Value.",
	InvalidTextString:               "Invalid Text String.",
	InvalidPositionData:             "Invalid Position Data.",
	RMIInHoldState:                  "RMI is In HOLD State.",
	RemoteDeviceDisconnected:        "Remote Device Disconnected.",
	RobotAlreadyConnected:           "Robot is Already Connected.",
	WaitForCommandDone:              "Wait for Command Done.",
	WaitForInstructionDone:          "Wait for Instruction Done.",
	InvalidSequenceIDNumber:         "Invalid sequence ID number.",
	InvalidSpeedType:                "Invalid Speed Type.",
	InvalidSpeedValue:               "Invalid Speed Value.",
	InvalidTermType:                 "Invalid Term Type.",
	InvalidTermValue:                "Invalid Term Value.",
	InvalidLCBPortType:              "Invalid LCB Port Type.",
	InvalidACCValue:                 "Invalid ACC Value.",
	InvalidDestinationPosition:      "Invalid Destination Position.",
	InvalidVIAPosition:              "Invalid VIA Position.",
	InvalidPortNumber:               "Invalid Port Number.",
	InvalidGroupNumber:              "Invalid Group Number.",
	InvalidGroupMask:                "Invalid Group Mask.",
	JointMotionWithCOORD:            "Joint motion with COORD.",
	IncrementalMotionWithCOORD:      "Incremental motn with COORD.",
	RobotInSingleStepMode:           "Robot in Single Step Mode.",
	InvalidPositionDataType:         "Invalid Position Data Type.",
	ReadyForASCIIPacket:             "Ready for ASCII Packet.",
	ASCIIConversionFailed:           "ASCII Conversion Failed.",
	InvalidASCIIInstruction:         "Invalid ASCII Instruction.",
	InvalidNumberOfGroups:           "Invalid Number of Groups.",
	InvalidInstructionPacket:        "Invalid Instruction packet.",
	InvalidASCIIStringPacket:        "Invalid ASCII String packet.",
	InvalidASCIIStringSize:          "Invalid ASCII string size.",
	InvalidApplicationTool:          "Invalid Application Tool.",
	InvalidCallProgramName:          "Invalid Call Program Name.",
	UnrecognizedFrcError:            "Unrecognized FANUC Error ID",
}

// Message returns the human-readable text for a code, falling back to the
// Unrecognized bucket's text for any code outside the enumerated set.
func (c FanucErrorCode) Message() string {
	if msg, ok := fanucErrorMessages[c]; ok {
		return msg
	}
	return fanucErrorMessages[UnrecognizedFrcError]
}

// FromErrorID converts a raw ResponsePacket.ErrorID into a FanucErrorCode,
// reporting whether it falls within the enumerated set.
func FromErrorID(errorID uint32) (FanucErrorCode, bool) {
	code := FanucErrorCode(errorID)
	if errorID == 0 {
		return code, true
	}
	_, known := fanucErrorMessages[code]
	return code, known
}
