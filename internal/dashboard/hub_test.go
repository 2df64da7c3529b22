package dashboard

import (
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{id: "test-client", send: make(chan *Message, 8)}
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub()
	client := newTestClient()
	hub.clients[client] = true

	hub.Subscribe(client, []string{"queue_stats"})
	if got := hub.GetSubscriptionCount("queue_stats"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.BroadcastToChannel("queue_stats", map[string]interface{}{"dlq_pending": 3})
	select {
	case msg := <-hub.broadcast:
		hub.broadcastToSubscribers(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
	}

	select {
	case msg := <-client.send:
		if msg.Channel != "queue_stats" {
			t.Errorf("expected channel queue_stats, got %s", msg.Channel)
		}
	default:
		t.Fatal("expected client to receive broadcast message")
	}
}

func TestHubUnsubscribeRemovesClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient()
	hub.clients[client] = true
	hub.Subscribe(client, []string{"dlq_events"})

	hub.Unsubscribe(client, []string{"dlq_events"})
	if got := hub.GetSubscriptionCount("dlq_events"); got != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", got)
	}
}

func TestHubBroadcastToAllWhenChannelEmpty(t *testing.T) {
	hub := NewHub()
	client := newTestClient()
	hub.clients[client] = true

	hub.broadcastToSubscribers(&Message{SchemaVersion: "1", Type: "ping"})

	select {
	case <-client.send:
	default:
		t.Fatal("expected client to receive hub-wide broadcast")
	}
}

func TestGetClientCount(t *testing.T) {
	hub := NewHub()
	if hub.GetClientCount() != 0 {
		t.Fatalf("expected 0 clients initially")
	}
	hub.clients[newTestClient()] = true
	if hub.GetClientCount() != 1 {
		t.Fatalf("expected 1 client after registering")
	}
}
