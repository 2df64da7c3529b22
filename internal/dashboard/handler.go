package dashboard

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the dashboard's WebSocket upgrade endpoint and a small set
// of internal broadcast/snapshot HTTP routes.
type Handler struct {
	hub *Hub
}

// NewHandler creates a dashboard handler bound to hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP upgrades the connection and registers the resulting client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("jetqueue/dashboard: upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn)
	h.hub.register <- client
	client.Run()
}

// HandleBroadcast lets worker/producer processes push an update into a
// dashboard channel over HTTP, for deployments where they don't share an
// in-process Hub with the dashboard server.
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg struct {
		Channel string                 `json:"channel"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg.Channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	h.hub.BroadcastToChannel(msg.Channel, msg.Data)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleStats reports current client/subscription counts, mostly useful for
// the dashboard's own health checks.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"clients":          h.hub.GetClientCount(),
		"queue_stats_subs": h.hub.GetSubscriptionCount("queue_stats"),
		"dlq_events_subs":  h.hub.GetSubscriptionCount("dlq_events"),
	})
}
