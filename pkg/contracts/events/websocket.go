// Package events contains the WebSocket message contracts pushed to
// playback clients.
package events

import (
	"time"

	"plantarcli/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypePlaybackSnapshot carries the cursor and the sample under it
	MessageTypePlaybackSnapshot MessageType = "playback:snapshot"
	// MessageTypeDatasetChanged announces loads, removals, filters and resets
	MessageTypeDatasetChanged MessageType = "dataset:changed"

	MessageTypeConnect MessageType = "connect"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// PlaybackSnapshot is the payload of MessageTypePlaybackSnapshot
type PlaybackSnapshot struct {
	State      string                 `json:"state"`
	Cursor     float64                `json:"cursor"`
	Speed      float64                `json:"speed"`
	RangeStart float64                `json:"range_start"`
	RangeEnd   float64                `json:"range_end"`
	Start      float64                `json:"start"`
	End        float64                `json:"end"`
	Loaded     bool                   `json:"loaded"`
	Recording  string                 `json:"recording_id,omitempty"`
	Revision   int                    `json:"revision"`
	Sample     *domain.PressureSample `json:"sample,omitempty"`
}

// DatasetChange describes what happened to the dataset
type DatasetChange string

const (
	DatasetLoaded   DatasetChange = "loaded"
	DatasetRemoved  DatasetChange = "removed"
	DatasetFiltered DatasetChange = "filtered"
	DatasetReset    DatasetChange = "reset"
	DatasetSelected DatasetChange = "selected"
)

// DatasetChanged is the payload of MessageTypeDatasetChanged
type DatasetChanged struct {
	Change      DatasetChange `json:"change"`
	ActiveIndex int           `json:"active_index"`
	Count       int           `json:"count"`
	RecordingID string        `json:"recording_id,omitempty"`
	Revision    int           `json:"revision"`
}

// NewMessage wraps data in a timestamped message
func NewMessage(typ MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{Type: typ, Timestamp: time.Now().UTC()},
		Data:        data,
	}
}
