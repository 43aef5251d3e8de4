package chat

import (
	"encoding/json"
	"fmt"
	"os"
)

// MarshalConversation serializes a conversation to pretty-printed JSON.
func MarshalConversation(c *Conversation) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// UnmarshalConversation deserializes JSON bytes and validates the result.
func UnmarshalConversation(data []byte) (*Conversation, error) {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	if c.Branches == nil {
		c.Branches = map[string]*Branch{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteConversationFile writes a conversation to a JSON file.
func WriteConversationFile(c *Conversation, path string) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadConversationFile reads a conversation from a JSON file.
func ReadConversationFile(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalConversation(data)
}
