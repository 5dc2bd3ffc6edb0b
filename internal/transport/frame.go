package transport

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame is the wire envelope for everything crossing the stream, in
// both directions. MatchID doubles as the multiplexing topic.
type Frame struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"matchId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"ts"`
}

// Control frame types owned by the channel itself. Everything else is
// dispatched to topic handlers.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	// FrameEvent carries a match event, in either direction: the feed
	// pushes authoritative events down, local optimistic events go up.
	FrameEvent = "event"
)

// ParseFrame decodes an incoming wire frame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame missing type")
	}
	return f, nil
}
