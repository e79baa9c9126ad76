package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to decide whether a subscription is permitted
	authorizeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authorizer returns an error when identifier may not follow gameID
type Authorizer func(ctx context.Context, identifier, gameID string) error

// Client represents a WebSocket client connection
type Client struct {
	id         string
	identifier string
	hub        *Hub
	authorize  Authorizer
	conn       *websocket.Conn
	send       chan []byte
	logger     *slog.Logger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type   string `json:"type"`
	GameID string `json:"game_id,omitempty"`
}

// NewClient creates a new WebSocket client for identifier. Subscriptions
// are checked with authorize.
func NewClient(hub *Hub, conn *websocket.Conn, identifier string, authorize Authorizer, logger *slog.Logger) *Client {
	return &Client{
		id:         uuid.New().String(),
		identifier: identifier,
		hub:        hub,
		authorize:  authorize,
		conn:       conn,
		send:       make(chan []byte, 256),
		logger:     logger,
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		// Parse client message
		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Warn("invalid message format", "error", err)
			c.sendError("invalid message format")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// handleMessage processes incoming client messages
func (c *Client) handleMessage(msg *ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		if msg.GameID == "" {
			c.sendError("game_id required for subscribe")
			return
		}
		if err := c.checkAccess(msg.GameID); err != nil {
			c.logger.Debug("subscription refused",
				"client_id", c.id,
				"identifier", c.identifier,
				"game_id", msg.GameID,
				"error", err,
			)
			c.sendError("game " + msg.GameID + " not found")
			return
		}
		c.hub.Subscribe(c, msg.GameID)
		c.sendAck("subscribed", msg.GameID)

	case MessageTypeUnsubscribe:
		if msg.GameID == "" {
			c.sendError("game_id required for unsubscribe")
			return
		}
		c.hub.Unsubscribe(c, msg.GameID)
		c.sendAck("unsubscribed", msg.GameID)

	case MessageTypePing:
		c.sendPong()

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
		c.sendError("unknown message type " + msg.Type)
	}
}

// checkAccess asks the authorizer whether the client may follow gameID
func (c *Client) checkAccess(gameID string) error {
	if c.authorize == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), authorizeWait)
	defer cancel()
	return c.authorize(ctx, c.identifier, gameID)
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	c.enqueue(Message{
		Type:      MessageTypeError,
		Data:      map[string]string{"error": errMsg},
		Timestamp: time.Now(),
	})
}

// sendAck acknowledges a subscription change
func (c *Client) sendAck(action, gameID string) {
	c.enqueue(Message{
		Type:      action,
		GameID:    gameID,
		Data:      map[string]string{"status": "ok"},
		Timestamp: time.Now(),
	})
}

// sendPong sends a pong response
func (c *Client) sendPong() {
	c.enqueue(Message{
		Type:      MessageTypePong,
		Timestamp: time.Now(),
	})
}

// enqueue queues msg unless the send buffer is full
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ServeWs handles WebSocket requests from an authenticated peer
func ServeWs(hub *Hub, identifier string, authorize Authorizer, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, conn, identifier, authorize, logger)
	hub.Register(client)

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	logger.Debug("new websocket connection", "client_id", client.id, "identifier", identifier)
}

