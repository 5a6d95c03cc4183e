package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client is a single websocket connection owned by an authenticated user.
// It lives no longer than the access token it was opened with.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	Send      chan []byte
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// NewClient creates a client for an upgraded connection. A zero expiresAt
// never expires.
func NewClient(hub *Hub, conn *websocket.Conn, userID, sessionID string, expiresAt time.Time) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}
}

// ReadPump reads inbound messages until the connection fails, handing each to handle.
func (c *Client) ReadPump(handle func(*Client, []byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", c.UserID).Msg("Unexpected websocket close")
			}
			return
		}
		handle(c, message)
	}
}

// WritePump forwards queued messages to the connection and keeps it alive
// with pings. The connection is closed once the access token expires.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	var expired <-chan time.Time
	if !c.ExpiresAt.IsZero() {
		timer := time.NewTimer(time.Until(c.ExpiresAt))
		defer timer.Stop()
		expired = timer.C
	}
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-expired:
			log.Info().Str("user_id", c.UserID).Msg("Access token expired, closing websocket")
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired"))
			return
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// Reply queues a message for this client only.
func (c *Client) Reply(message []byte) {
	c.hub.SendTo(c, message)
}
