package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/internal/models"
)

const writeTimeout = 10 * time.Second

// SessionHandle is one live client connection as seen by the hub and the
// relay. The hub fans events out over handles and never touches the socket
// directly.
type SessionHandle interface {
	Send(event models.RelayEvent) error
	Close() error
}

// Client wraps a websocket connection with a write lock so broadcast and
// per-session error writes never interleave on the wire. The write deadline
// bounds how long a slow session can stall a fan-out pass.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send marshals and writes a single relay event.
func (c *Client) Send(event models.RelayEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
