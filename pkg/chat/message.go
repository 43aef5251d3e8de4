package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single utterance in a branch. Messages are immutable once
// created; inherited messages are read-only copies carried into a child
// branch for context.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Inherited bool      `json:"inherited,omitempty"`
}

// NewMessage creates a message with a fresh UUID and the current time.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}
}

// AsInherited returns a copy of the message marked as inherited.
// The ID is preserved so navigation from the copy can locate the
// message's origin branch.
func (m Message) AsInherited() Message {
	m.Inherited = true
	return m
}
