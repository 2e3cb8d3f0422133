package websocket

import (
	"time"

	"plantarcli/pkg/contracts/events"
)

// Connection is the subset of a gorilla/websocket connection the client
// pumps use, so tests can substitute a fake
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Broadcaster publishes messages to every connected client
type Broadcaster interface {
	Broadcast(msg events.WebSocketMessage)
	ClientCount() int
}
