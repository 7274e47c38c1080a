package wire

// Communication is the two-variant handshake envelope.
type Communication interface {
	CommunicationName() string
}

const (
	CommConnect    = "FRC_Connect"
	CommDisconnect = "FRC_Disconnect"
)

// Connect opens the negotiated data-port session.
type Connect struct{}

func (c Connect) CommunicationName() string { return CommConnect }

// Disconnect ends the session cooperatively.
type Disconnect struct{}

func (c Disconnect) CommunicationName() string { return CommDisconnect }

// ConnectResponse carries the negotiated data port and protocol version.
type ConnectResponse struct {
	ErrorID      uint32 `json:"ErrorID"`
	PortNumber   uint16 `json:"PortNumber"`
	MajorVersion uint16 `json:"MajorVersion"`
	MinorVersion uint16 `json:"MinorVersion"`
}

