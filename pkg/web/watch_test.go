package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWatch_ReceivesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"state","time":"2024-01-01T00:00:00Z","payload":{"started":true}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"angle","time":"2024-01-01T00:00:01Z","payload":95}`))
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []WatchEvent
	got := make(chan struct{}, 4)

	errCh := make(chan error, 1)
	go func() {
		errCh <- Watch(ctx, url, func(ev WatchEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("events: got %d, want 2", len(events))
	}
	if events[0].Type != "state" || events[1].Type != "angle" {
		t.Errorf("types: got %s, %s", events[0].Type, events[1].Type)
	}
	if string(events[1].Payload) != "95" {
		t.Errorf("payload: got %s", events[1].Payload)
	}
}

func TestWatch_DialError(t *testing.T) {
	if err := Watch(context.Background(), "ws://127.0.0.1:1/ws/status", func(WatchEvent) {}); err == nil {
		t.Error("expected dial error")
	}
}
