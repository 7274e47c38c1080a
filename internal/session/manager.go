package session

import (
	"sync"

	"go.uber.org/zap"
)

// client is one connected websocket client: its outbound send channel and
// which robot, if any, it currently subscribes to.
type client struct {
	id              string
	send            chan any
	subscribedRobot string
}

// ClientManager indexes connected clients by (client_id, subscribed_robot)
// and fans server-side state transitions out to every subscriber of the
// affected robot, adapted from the teacher's Hub broadcast pattern
// (internal/server/hub.go) to per-robot routing and a bounded subscription
// of at most one robot per client, per spec.md §4.7.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
}

// NewClientManager builds an empty manager.
func NewClientManager(logger *zap.Logger) *ClientManager {
	return &ClientManager{clients: make(map[string]*client), logger: logger}
}

// Register attaches a new client with its outbound send channel. The
// channel should be buffered; Broadcast drops rather than blocks on a
// full one.
func (m *ClientManager) Register(clientID string, send chan any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[clientID] = &client{id: clientID, send: send}
}

// Unregister removes a client. Call this on disconnect; the caller is
// responsible for also releasing any control-lock token the client held.
func (m *ClientManager) Unregister(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, clientID)
}

// Subscribe points clientID at robotID, replacing any previous
// subscription — a client subscribes to at most one robot at a time.
func (m *ClientManager) Subscribe(clientID, robotID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.subscribedRobot = robotID
	}
}

// Unsubscribe clears clientID's subscription without removing the client.
func (m *ClientManager) Unsubscribe(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[clientID]; ok {
		c.subscribedRobot = ""
	}
}

// Broadcast fans event out to every client currently subscribed to
// robotID. A client whose send channel is full is logged as lagged and
// skipped for this event, matching the lag-tolerant discipline used
// throughout the driver's own buses.
func (m *ClientManager) Broadcast(robotID string, event any) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.subscribedRobot != robotID {
			continue
		}
		select {
		case c.send <- event:
		default:
			if m.logger != nil {
				m.logger.Warn("client lagged, broadcast dropped", zap.String("client_id", c.id))
			}
		}
	}
}

// Send delivers event to exactly one client, regardless of subscription,
// for request-scoped responses rather than broadcasts.
func (m *ClientManager) Send(clientID string, event any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	if !ok {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}
