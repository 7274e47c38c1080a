package driver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// State is the connection's lifecycle stage, per spec.md §3's lifecycle
// section.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateInitializing State = "INITIALIZING"
	StateReady        State = "READY"
)

// fsm is a minimal transitions-table state machine, adapted from the
// teacher's internal/robot/fsm.go to the driver's three-state lifecycle.
type fsm struct {
	current     State
	transitions map[State][]State
}

func newFSM() *fsm {
	return &fsm{
		current: StateDisconnected,
		transitions: map[State][]State{
			StateDisconnected: {StateInitializing},
			StateInitializing: {StateReady, StateDisconnected},
			StateReady:        {StateDisconnected},
		},
	}
}

func (f *fsm) canTransitionTo(target State) bool {
	for _, s := range f.transitions[f.current] {
		if s == target {
			return true
		}
	}
	return false
}

func (f *fsm) transitionTo(target State) bool {
	if !f.canTransitionTo(target) {
		return false
	}
	f.current = target
	return true
}

// Config parameterizes Connect.
type Config struct {
	Addr             string
	InitPort         int
	Retries          int
	RetryBackoff     time.Duration
	HandshakeTimeout time.Duration
	QueueCapacity    int
}

// dialFunc is overridable in tests.
type dialFunc func(network, address string) (net.Conn, error)

// Connection owns the handshake, the live data socket, and the reader and
// writer tasks spun up once it reaches StateReady. It is the concrete type
// behind Facade; session and executor code should depend on Facade.
type Connection struct {
	cfg    Config
	logger *zap.Logger
	dial   dialFunc

	fsm           *fsm
	tpInitialized bool

	dataConn net.Conn
	queue    *Queue

	responseBus *Bus[wire.ResponsePacket]
	sentBus     *Bus[SentInstructionInfo]

	cancelTasks context.CancelFunc
}

// NewConnection builds a Connection in StateDisconnected.
func NewConnection(cfg Config, logger *zap.Logger) *Connection {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	return &Connection{
		cfg:         cfg,
		logger:      logger,
		dial:        net.Dial,
		fsm:         newFSM(),
		responseBus: NewBus[wire.ResponsePacket]("response", logger),
		sentBus:     NewBus[SentInstructionInfo]("sent", logger),
	}
}

func (c *Connection) State() State { return c.fsm.current }

func (c *Connection) TPInitialized() bool { return c.tpInitialized }

// Connect performs the two-stage handshake described in spec.md §4.2: open
// the init socket, negotiate the data port, reopen against it, and spawn
// the reader/writer tasks.
func (c *Connection) Connect(ctx context.Context) error {
	if !c.fsm.transitionTo(StateInitializing) {
		return &wire.Error{Kind: wire.ErrInitialization, Message: "connect called from unexpected state"}
	}

	initConn, err := c.dialWithRetries()
	if err != nil {
		c.fsm.transitionTo(StateDisconnected)
		return &wire.Error{Kind: wire.ErrInitialization, Message: err.Error()}
	}

	resp, err := c.negotiate(initConn)
	initConn.Close()
	if err != nil {
		c.fsm.transitionTo(StateDisconnected)
		return err
	}

	dataConn, err := c.dial("tcp", fmt.Sprintf("%s:%d", c.cfg.Addr, resp.PortNumber))
	if err != nil {
		c.fsm.transitionTo(StateDisconnected)
		return &wire.Error{Kind: wire.ErrInitialization, Message: err.Error()}
	}

	c.dataConn = dataConn
	c.fsm.transitionTo(StateReady)

	taskCtx, cancel := context.WithCancel(ctx)
	c.cancelTasks = cancel
	c.queue = NewQueue(taskCtx, c.cfg.QueueCapacity, c.logger)

	go c.readerTask(taskCtx, dataConn)
	go c.writerTask(dataConn)

	c.logger.Info("rmi connection ready",
		zap.String("addr", c.cfg.Addr),
		zap.Uint16("port", resp.PortNumber),
		zap.Uint16("major", resp.MajorVersion),
		zap.Uint16("minor", resp.MinorVersion),
	)
	return nil
}

// dialWithRetries opens the init-port socket, retrying with fixed backoff.
func (c *Connection) dialWithRetries() (net.Conn, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		conn, err := c.dial("tcp", fmt.Sprintf("%s:%d", c.cfg.Addr, c.cfg.InitPort))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < c.cfg.Retries {
			time.Sleep(c.cfg.RetryBackoff)
		}
	}
	return nil, lastErr
}

// negotiate sends Communication::Connect on the init socket and awaits the
// PortNumber/version response.
func (c *Connection) negotiate(initConn net.Conn) (wire.ConnectResponse, error) {
	initConn.SetDeadline(time.Now().Add(c.cfg.HandshakeTimeout))

	if err := wire.WriteLine(initConn, wire.CommunicationPacket{Communication: wire.Connect{}}); err != nil {
		return wire.ConnectResponse{}, err
	}

	reader := wire.NewFrameReader(initConn)
	line, err := reader.ReadLine()
	if err != nil {
		return wire.ConnectResponse{}, &wire.Error{Kind: wire.ErrInitialization, Message: err.Error()}
	}

	resp, err := wire.Decode(line)
	if err != nil {
		return wire.ConnectResponse{}, err
	}
	if resp.Kind != wire.CommunicationKind || resp.Name != wire.CommConnect {
		return wire.ConnectResponse{}, &wire.Error{Kind: wire.ErrInitialization, Message: "unexpected handshake response"}
	}
	if resp.ErrorID != 0 {
		code, _ := wire.FromErrorID(resp.ErrorID)
		return wire.ConnectResponse{}, &wire.Error{Kind: wire.ErrFanucCode, Code: code}
	}

	port, _ := resp.Fields["PortNumber"].(float64)
	major, _ := resp.Fields["MajorVersion"].(float64)
	minor, _ := resp.Fields["MinorVersion"].(float64)
	return wire.ConnectResponse{
		ErrorID:      resp.ErrorID,
		PortNumber:   uint16(port),
		MajorVersion: uint16(major),
		MinorVersion: uint16(minor),
	}, nil
}

// Disconnect sends Communication::Disconnect, awaits its response within a
// short bound, then tears the session down regardless of whether the
// response arrived.
func (c *Connection) Disconnect(ctx context.Context) error {
	if c.fsm.current != StateReady {
		c.teardown()
		return nil
	}

	id, respCh := c.responseBus.Subscribe()
	defer c.responseBus.Unsubscribe(id)

	if _, err := c.queue.Send(wire.CommunicationPacket{Communication: wire.Disconnect{}}, Immediate); err != nil {
		c.teardown()
		return err
	}

	timeout := time.NewTimer(2 * time.Second)
	defer timeout.Stop()
loop:
	for {
		select {
		case resp := <-respCh:
			if resp.Kind == wire.CommunicationKind && resp.Name == wire.CommDisconnect {
				break loop
			}
		case <-timeout.C:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	c.teardown()
	return nil
}

// teardown closes the data socket, cancels the reader/writer tasks, and
// resets lifecycle flags. Any I/O error on either task calls this too,
// satisfying spec.md §4.2's "any I/O error triggers Disconnected" rule.
func (c *Connection) teardown() {
	if c.cancelTasks != nil {
		c.cancelTasks()
	}
	if c.dataConn != nil {
		c.dataConn.Close()
	}
	c.fsm.current = StateDisconnected
	c.tpInitialized = false
}

func (c *Connection) readerTask(ctx context.Context, conn net.Conn) {
	reader := wire.NewFrameReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line, err := reader.ReadLine()
		if err != nil {
			c.logger.Warn("rmi reader failed, disconnecting", zap.Error(err))
			c.teardown()
			return
		}
		resp, err := wire.Decode(line)
		if err != nil {
			c.logger.Warn("rmi frame failed to decode, dropping", zap.Error(err))
			continue
		}
		c.responseBus.Publish(resp)
	}
}

func (c *Connection) writerTask(conn net.Conn) {
	for {
		requestID, packet, ok := c.queue.Dequeue()
		if !ok {
			return
		}
		if err := wire.WriteLine(conn, packet); err != nil {
			c.logger.Warn("rmi writer failed, disconnecting", zap.Error(err))
			c.teardown()
			return
		}
		c.sentBus.Publish(SentInstructionInfo{
			RequestID:  requestID,
			SequenceID: sequenceIDOf(packet),
		})
	}
}

// sequenceIDOf reads the sequence_id carried in an Instruction packet's
// body, synthesizing 0 for Communication/Command packets per spec.md §4.3.
func sequenceIDOf(pkt wire.SendPacket) uint32 {
	if ip, ok := pkt.(wire.InstructionPacket); ok {
		return ip.SequenceID()
	}
	return 0
}
