package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"supportchat/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	// Large enough for a 2000-character body of 4-byte runes plus the
	// frame envelope.
	maxMessageSize = 16 * 1024
)

// WebSocketClient implements the Client interface over gorilla/websocket.
type WebSocketClient struct {
	ID       string
	User     string
	UserMail string
	UserRole string
	Room     string

	Conn *websocket.Conn
	Hub  *ManagerService
	Send chan models.OutboundEvent

	closeOnce sync.Once
}

func (c *WebSocketClient) ConnID() string      { return c.ID }
func (c *WebSocketClient) UserID() string      { return c.User }
func (c *WebSocketClient) Email() string       { return c.UserMail }
func (c *WebSocketClient) Role() string        { return c.UserRole }
func (c *WebSocketClient) RoomID() string      { return c.Room }
func (c *WebSocketClient) SetRoomID(id string) { c.Room = id }

func (c *WebSocketClient) SendChannel() chan<- models.OutboundEvent { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the Send channel down, which stops the write pump. Safe to
// call more than once.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("Error decoding frame from user %s: %v", c.User, err)
			continue
		}

		c.Hub.IncomingCh <- InboundFrame{Client: c, Event: env}
	}
}

// writePump drains Send into the WebSocket and keeps the connection alive
// with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(evt)
			if err != nil {
				log.Printf("Error encoding frame for user %s: %v", c.User, err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush anything else already queued.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next := <-c.Send
				extra, err := json.Marshal(next)
				if err != nil {
					continue
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
