// Package store defines the narrow persistence interface spec.md §6.4
// names: CRUD over programs, saved connections, configurations, I/O
// display metadata, and HMI panels. The core never depends on a concrete
// backend, only on this interface; internal/store/pgstore and
// internal/store/redisstore provide the two backends in use.
package store

import (
	"context"
	"time"
)

// Program is a persisted motion program: its waypoints plus per-program
// defaults and optional start/end anchors.
type Program struct {
	ID               string
	Name            string
	Description     string
	DefaultW         float64
	DefaultP         float64
	DefaultR         float64
	DefaultSpeed     float64
	DefaultSpeedType string
	DefaultTermType  string
	DefaultUFrame    *int8
	DefaultUTool     *int8
	StartPosition    *ProgramPosition
	EndPosition      *ProgramPosition
	Waypoints        []ProgramWaypoint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProgramPosition is an approach or retreat anchor attached to a program.
type ProgramPosition struct {
	X, Y, Z, W, P, R float64
}

// ProgramWaypoint is one persisted line of a program.
type ProgramWaypoint struct {
	LineNumber int
	X, Y, Z    float64
	W, P, R    *float64
	Ext1       *float64
	Ext2       *float64
	Ext3       *float64
	Speed      *float64
	TermType   *string
	UFrame     *int8
	UTool      *int8
}

// SavedConnection is a saved robot endpoint plus motion/jog defaults.
type SavedConnection struct {
	ID              string
	Name            string
	Description     string
	Addr            string
	Port            int
	MotionSpeed     float64
	MotionSpeedType string
	JogSpeed        float64
	JogSpeedType    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Configuration is a named, persisted tuple of frame/tool/arm-posture
// discriminants. Exactly one Configuration per RobotID may have
// IsDefault set.
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
}

// IODisplayMetadata describes how one I/O port should render on an HMI
// panel.
type IODisplayMetadata struct {
	ID          string
	RobotID     string
	Kind        string // "DIN", "DOUT", "AIN", "AOUT", "GIN", "GOUT"
	PortNumber  int
	DisplayName string
	Widget      string
	ColorOn     string
	ColorOff    string
	Threshold   *float64
	Visible     bool
}

// HMIPanel is a grid layout of assigned I/O ports.
type HMIPanel struct {
	ID       string
	RobotID  string
	Name     string
	Rows     int
	Cols     int
	Assigned []HMIPanelSlot
}

// HMIPanelSlot places one IODisplayMetadata entry at a grid cell.
type HMIPanelSlot struct {
	Row, Col   int
	MetadataID string
}

// Store is the narrow persistence surface spec.md §6.4 names. Each concrete
// backend implements only its part (pgstore the programs, redisstore the
// rest); Composite joins them into one Store. The core only ever depends
// on this interface.
type Store interface {
	ProgramStore
	SavedConnectionStore
	ConfigurationStore
	IODisplayStore
	HMIPanelStore

	Close() error
}

type ProgramStore interface {
	ListPrograms(ctx context.Context) ([]Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	CreateProgram(ctx context.Context, p Program) (Program, error)
	UpdateProgram(ctx context.Context, p Program) (Program, error)
	DeleteProgram(ctx context.Context, id string) error
}

type SavedConnectionStore interface {
	ListSavedConnections(ctx context.Context) ([]SavedConnection, error)
	GetSavedConnection(ctx context.Context, id string) (SavedConnection, error)
	CreateSavedConnection(ctx context.Context, c SavedConnection) (SavedConnection, error)
	UpdateSavedConnection(ctx context.Context, c SavedConnection) (SavedConnection, error)
	DeleteSavedConnection(ctx context.Context, id string) error
}

type ConfigurationStore interface {
	ListConfigurations(ctx context.Context, robotID string) ([]Configuration, error)
	GetConfiguration(ctx context.Context, id string) (Configuration, error)
	CreateConfiguration(ctx context.Context, c Configuration) (Configuration, error)
	UpdateConfiguration(ctx context.Context, c Configuration) (Configuration, error)
	DeleteConfiguration(ctx context.Context, id string) error
	SetDefaultConfiguration(ctx context.Context, robotID, id string) error
	// CreateRobotWithConfigurations atomically creates a SavedConnection
	// plus its initial Configuration set. It refuses zero configurations
	// or anything other than exactly one default, per spec.md §6.2.
	CreateRobotWithConfigurations(ctx context.Context, conn SavedConnection, configs []Configuration) (SavedConnection, []Configuration, error)
}

type IODisplayStore interface {
	ListIODisplayMetadata(ctx context.Context, robotID string) ([]IODisplayMetadata, error)
	UpsertIODisplayMetadata(ctx context.Context, m IODisplayMetadata) (IODisplayMetadata, error)
	DeleteIODisplayMetadata(ctx context.Context, id string) error
}

type HMIPanelStore interface {
	ListHMIPanels(ctx context.Context, robotID string) ([]HMIPanel, error)
	GetHMIPanel(ctx context.Context, id string) (HMIPanel, error)
	CreateHMIPanel(ctx context.Context, p HMIPanel) (HMIPanel, error)
	UpdateHMIPanel(ctx context.Context, p HMIPanel) (HMIPanel, error)
	DeleteHMIPanel(ctx context.Context, id string) error
}
