package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Event is one line of the chat stream consumed by the presentation layer
type Event struct {
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// NewEvent creates an event with an ISO-8601 timestamp
func NewEvent(role Role, at time.Time, content string) Event {
	return Event{
		Role:      role,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Content:   content,
	}
}

// EventFromMessage converts a stored message into a stream event
func EventFromMessage(m Message) Event {
	return NewEvent(m.Role, m.Timestamp, m.Content)
}

// Time parses the event timestamp
func (e Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// WriteEvent writes the event as a single newline terminated JSON line
func WriteEvent(w io.Writer, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode chat event: %w", err)
	}

	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write chat event: %w", err)
	}
	return nil
}
