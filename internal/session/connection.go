package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/driver"
	"github.com/fanuc-rmi/rmigateway/internal/executor"
	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

// Configuration is a named, persisted tuple of frame/tool/arm-posture
// discriminants plus jog defaults, loaded onto a RobotConnection's active
// slot. This is the application-level record; wire.Configuration is the
// bare frame/tool/posture tuple the wire protocol carries per instruction.
type Configuration struct {
	ID           string
	RobotID      string
	Name         string
	IsDefault    bool
	UFrameNumber int8
	UToolNumber  int8
	Front        int8
	Up           int8
	Left         int8
	Flip         int8
	Turn4        int8
	Turn5        int8
	Turn6        int8
	JogSpeed     float64
	JogSpeedType wire.SpeedType
	ChangedAt    time.Time
}

// ToWire projects the posture discriminants this record carries onto the
// shape the wire protocol actually sends.
func (c Configuration) ToWire() wire.Configuration {
	return wire.Configuration{
		UFrameNumber: c.UFrameNumber,
		UToolNumber:  c.UToolNumber,
		Front:        c.Front,
		Up:           c.Up,
		Left:         c.Left,
		Flip:         c.Flip,
		Turn4:        c.Turn4,
		Turn5:        c.Turn5,
		Turn6:        c.Turn6,
	}
}

// RobotConnection is the server-owned record for one physical robot: the
// driver handle, the executor, the active configuration, initialization
// state, and the control token. It is never owned by an individual client.
type RobotConnection struct {
	ID     string
	Addr   string
	Driver *driver.Facade
	Exec   *executor.Executor
	Lock   *ControlLock

	mu                   sync.RWMutex
	activeConfiguration  Configuration
	tpProgramInitialized bool
}

// NewRobotConnection wires a fresh driver facade and executor together
// under one control lock. The active configuration starts from
// wire.DefaultConfiguration's posture with frame and tool 0.
func NewRobotConnection(id, addr string, cfg driver.Config, logger *zap.Logger) *RobotConnection {
	facade := driver.NewFacade(cfg, logger)
	def := wire.DefaultConfiguration(0, 0)
	return &RobotConnection{
		ID:     id,
		Addr:   addr,
		Driver: facade,
		Exec:   executor.NewExecutor(facade, logger),
		Lock:   &ControlLock{},

		activeConfiguration: Configuration{Front: def.Front, Up: def.Up, Left: def.Left},
	}
}

func (r *RobotConnection) ActiveConfiguration() Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeConfiguration
}

func (r *RobotConnection) SetActiveConfiguration(c Configuration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ChangedAt = time.Now()
	r.activeConfiguration = c
}

func (r *RobotConnection) TPProgramInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tpProgramInitialized
}

func (r *RobotConnection) SetTPProgramInitialized(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tpProgramInitialized = v
}
