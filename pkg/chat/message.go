// Package chat holds the conversation types shared by the message store, the
// session orchestrator and the HTTP boundary.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who produced a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether the role is one the chat understands
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message is a single conversation message. Messages are never stored on
// their own, only as part of a turn batch.
type Message struct {
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// NewMessage creates a message stamped with the current UTC time
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Timestamp: time.Now().UTC(),
		Content:   content,
	}
}

// EncodeBatch serializes the messages of one turn into an immutable batch
func EncodeBatch(messages []Message) ([]byte, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("a turn batch needs at least one message")
	}

	for i, m := range messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}

	return json.Marshal(messages)
}

// DecodeBatch deserializes a turn batch back into its messages
func DecodeBatch(data []byte) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode turn batch: %w", err)
	}

	for i, m := range messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}

	return messages, nil
}
