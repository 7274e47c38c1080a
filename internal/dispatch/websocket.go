package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/session"
)

// Keepalive tuning, matched to the teacher's internal/server/websocket.go.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
	sendBuffer     = 256
)

// client wraps one live websocket connection: its outbound queue and the
// id it registered under with the Dispatcher's client manager.
type client struct {
	id   string
	conn *websocket.Conn
	send chan any
}

// WebSocketServer is the transport that decodes/encodes dispatch.Envelope
// over a websocket connection, adapted from the teacher's
// internal/server/websocket.go readPump/writePump pair.
type WebSocketServer struct {
	dispatcher *Dispatcher
	clients    *session.ClientManager
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewWebSocketServer builds a server bound to a Dispatcher and the client
// manager it broadcasts through.
func NewWebSocketServer(dispatcher *Dispatcher, clients *session.ClientManager, logger *zap.Logger) *WebSocketServer {
	return &WebSocketServer{
		dispatcher: dispatcher,
		clients:    clients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades the HTTP connection and starts the read/write
// pumps for the new client.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan any, sendBuffer)}
	s.clients.Register(c.id, c.send)
	s.logger.Info("client connected", zap.String("client_id", c.id), zap.String("remote_addr", conn.RemoteAddr().String()))

	go s.writePump(c)
	go s.readPump(c)
}

func (s *WebSocketServer) readPump(c *client) {
	ctx := context.Background()
	defer func() {
		s.dispatcher.OnClientDisconnect(c.id)
		s.clients.Unregister(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var req Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Error("envelope decode error", zap.String("client_id", c.id), zap.Error(err))
			select {
			case c.send <- errorEnvelope("", "malformed request"):
			default:
			}
			continue
		}

		if req.Type == "Subscribe" {
			s.clients.Subscribe(c.id, req.RobotID)
			continue
		}

		resp := s.dispatcher.Dispatch(ctx, c.id, req)
		select {
		case c.send <- resp:
		default:
			s.logger.Warn("client lagged, response dropped", zap.String("client_id", c.id))
		}
	}
}

func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			data, err := json.Marshal(message)
			if err != nil {
				s.logger.Error("envelope encode error", zap.String("client_id", c.id), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HealthHandler reports basic liveness for infrastructure probes.
func (s *WebSocketServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"rmigateway"}`))
}
