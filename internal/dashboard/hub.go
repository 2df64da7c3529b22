// Package dashboard exposes live queue observability over WebSocket: queue
// depth, ack-pending counts, and DLQ events pushed to subscribed operator
// consoles, plus a small HTTP surface for snapshot polling.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Message is the envelope for every frame sent to a dashboard client.
type Message struct {
	SchemaVersion string                 `json:"schema_version"`
	Type          string                 `json:"type"`
	Channel       string                 `json:"channel,omitempty"`
	EventID       string                 `json:"event_id,omitempty"`
	Timestamp     string                 `json:"timestamp"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Error         *ErrorDetails          `json:"error,omitempty"`
}

// ErrorDetails describes a dashboard-level protocol error sent to a client.
type ErrorDetails struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ToJSON marshals the message.
func (m *Message) ToJSON() ([]byte, error) { return json.Marshal(m) }

// Hub fans out queue events to subscribed clients, keyed by channel. Known
// channels are "queue_stats" (periodic QueueInfo snapshots) and "dlq_events"
// (one message per snapshot in which the DLQ depth grew, carrying the delta).
type Hub struct {
	mu            sync.RWMutex
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

// NewHub creates an unstarted hub; call Run to begin serving.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *Message, 256),
	}
}

// Run drives the hub's event loop until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.subscriptions = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("jetqueue/dashboard: client %s connected", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for channel, subs := range h.subscriptions {
					delete(subs, client)
					if len(subs) == 0 {
						delete(h.subscriptions, channel)
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastToSubscribers(message)

		case <-ticker.C:
			h.broadcastToSubscribers(&Message{
				SchemaVersion: "1",
				Type:          "ping",
				Timestamp:     time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

func (h *Hub) broadcastToSubscribers(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[*Client]bool
	if message.Channel == "" {
		targets = h.clients
	} else {
		targets = h.subscriptions[message.Channel]
	}

	for client := range targets {
		select {
		case client.send <- message:
		default:
			log.Printf("jetqueue/dashboard: client %s send buffer full, dropping message", client.id)
		}
	}
}

// Subscribe adds client to the given channels.
func (h *Hub) Subscribe(client *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range channels {
		if h.subscriptions[channel] == nil {
			h.subscriptions[channel] = make(map[*Client]bool)
		}
		h.subscriptions[channel][client] = true
	}
}

// Unsubscribe removes client from the given channels.
func (h *Hub) Unsubscribe(client *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range channels {
		if subs, ok := h.subscriptions[channel]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, channel)
			}
		}
	}
}

// BroadcastToChannel pushes a data update to every subscriber of channel.
func (h *Hub) BroadcastToChannel(channel string, data map[string]interface{}) {
	message := &Message{
		SchemaVersion: "1",
		Type:          "update",
		Channel:       channel,
		EventID:       generateEventID(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Data:          data,
	}
	select {
	case h.broadcast <- message:
	default:
		log.Printf("jetqueue/dashboard: broadcast buffer full, dropping update for channel %s", channel)
	}
}

// BroadcastError pushes a protocol-level error to every subscriber of channel.
func (h *Hub) BroadcastError(channel string, errDetails *ErrorDetails) {
	message := &Message{
		SchemaVersion: "1",
		Type:          "error",
		Channel:       channel,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Error:         errDetails,
	}
	select {
	case h.broadcast <- message:
	default:
		log.Printf("jetqueue/dashboard: broadcast buffer full, dropping error for channel %s", channel)
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetSubscriptionCount returns the number of subscribers on channel.
func (h *Hub) GetSubscriptionCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}

func generateEventID() string {
	return time.Now().UTC().Format("20060102150405.000000000")
}
