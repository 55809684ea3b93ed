// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "time"

// Message is one JSON text frame to be broadcast to clients
type Message struct {
	Data []byte

	// Topic, when set, makes the hub remember the message and replay it
	// to clients that connect later.
	Topic string
}

// Event is the JSON envelope for telemetry published on the hub.
type Event struct {
	Type    string      `json:"type"` // state, reply, angle
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}
