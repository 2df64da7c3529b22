package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one connected dashboard WebSocket session.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan *Message
}

// SubscribeRequest asks the hub to add this client to a set of channels.
type SubscribeRequest struct {
	SchemaVersion string   `json:"schema_version"`
	Type          string   `json:"type"`
	Channels      []string `json:"channels"`
	Timestamp     string   `json:"timestamp"`
	LastEventID   string   `json:"last_event_id,omitempty"`
}

// UnsubscribeRequest asks the hub to remove this client from a set of channels.
type UnsubscribeRequest struct {
	SchemaVersion string                 `json:"schema_version"`
	Type          string                 `json:"type"`
	Timestamp     string                 `json:"timestamp"`
	Data          map[string]interface{} `json:"data"`
}

// NewClient wraps an upgraded connection as a dashboard client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan *Message, 64),
	}
}

// Run starts the client's read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("jetqueue/dashboard: client %s read error: %v", c.id, err)
			}
			return
		}

		var envelope map[string]interface{}
		if err := json.Unmarshal(messageBytes, &envelope); err != nil {
			c.sendError("bad_request", "malformed message")
			continue
		}

		switch envelope["type"] {
		case "subscribe":
			c.handleSubscribe(messageBytes)
		case "unsubscribe":
			c.handleUnsubscribe(messageBytes)
		case "pong":
			// client-initiated keepalive, no-op
		default:
			log.Printf("jetqueue/dashboard: client %s sent unknown message type %v", c.id, envelope["type"])
		}
	}
}

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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := message.ToJSON()
			if err != nil {
				log.Printf("jetqueue/dashboard: client %s marshal error: %v", c.id, err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

			// drain any additional queued messages, one write per message
			n := len(c.send)
			for i := 0; i < n; i++ {
				extra, err := (<-c.send).ToJSON()
				if err != nil {
					continue
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscribe(messageBytes []byte) {
	var req SubscribeRequest
	if err := json.Unmarshal(messageBytes, &req); err != nil {
		c.sendError("bad_request", "malformed subscribe request")
		return
	}
	if len(req.Channels) == 0 {
		c.sendError("bad_request", "subscribe requires at least one channel")
		return
	}

	c.hub.Subscribe(c, req.Channels)

	c.send <- &Message{
		SchemaVersion: "1",
		Type:          "subscribed",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Data:          map[string]interface{}{"channels": req.Channels},
	}
}

func (c *Client) handleUnsubscribe(messageBytes []byte) {
	var req UnsubscribeRequest
	if err := json.Unmarshal(messageBytes, &req); err != nil {
		c.sendError("bad_request", "malformed unsubscribe request")
		return
	}

	raw, _ := req.Data["channels"].([]interface{})
	channels := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			channels = append(channels, s)
		}
	}
	if len(channels) == 0 {
		c.sendError("bad_request", "unsubscribe requires at least one channel")
		return
	}

	c.hub.Unsubscribe(c, channels)

	c.send <- &Message{
		SchemaVersion: "1",
		Type:          "unsubscribed",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Data:          map[string]interface{}{"channels": channels},
	}
}

func (c *Client) sendError(code, message string) {
	c.send <- &Message{
		SchemaVersion: "1",
		Type:          "error",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Error:         &ErrorDetails{Code: code, Message: message},
	}
}
