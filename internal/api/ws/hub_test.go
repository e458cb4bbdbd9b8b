package ws

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.Default())
	go h.Run()
	return h
}

func unregisterAll(h *Hub, clients ...*client) {
	for _, c := range clients {
		h.unregister <- c
	}
	time.Sleep(20 * time.Millisecond)
}

func TestHubRegisterAndUnregisterTrackClientCount(t *testing.T) {
	h := startTestHub(t)
	c := &client{hub: h, send: make(chan []byte, 4)}

	h.register <- c
	time.Sleep(20 * time.Millisecond)
	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	h.unregister <- c
	time.Sleep(20 * time.Millisecond)
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	h := startTestHub(t)
	c1 := &client{hub: h, send: make(chan []byte, 4)}
	c2 := &client{hub: h, send: make(chan []byte, 4)}
	h.register <- c1
	h.register <- c2
	time.Sleep(20 * time.Millisecond)

	h.Broadcast("decision", map[string]int{"quality": 2})
	time.Sleep(20 * time.Millisecond)

	for i, c := range []*client{c1, c2} {
		select {
		case raw := <-c.send:
			var msg message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if msg.Type != "decision" {
				t.Fatalf("client %d: type = %q, want decision", i, msg.Type)
			}
		default:
			t.Fatalf("client %d: no message received", i)
		}
	}
	unregisterAll(h, c1, c2)
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	h := startTestHub(t)
	slow := &client{hub: h, send: make(chan []byte, 1)}
	h.register <- slow
	time.Sleep(20 * time.Millisecond)

	slow.send <- []byte("fill")
	h.Broadcast("decision", 1)
	time.Sleep(20 * time.Millisecond)

	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0 after slow client dropped", h.ClientCount())
	}
}

func TestHubBroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	h := startTestHub(t)
	h.Broadcast("decision", 1)
}

func TestServeHTTPRejectsNonUpgradeRequest(t *testing.T) {
	h := startTestHub(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
