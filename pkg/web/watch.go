package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

// WatchEvent is a hub.Event as received from /ws/status, with the
// payload left undecoded.
type WatchEvent struct {
	Type    string              `json:"type"`
	Time    time.Time           `json:"time"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// Watch connects to a dashboard's /ws/status endpoint and calls fn for
// every event until ctx is done or the connection drops.
func Watch(ctx context.Context, url string, fn func(WatchEvent)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var ev WatchEvent
		if err := jsoniter.Unmarshal(data, &ev); err != nil {
			continue
		}
		fn(ev)
	}
}
