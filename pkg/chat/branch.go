package chat

import (
	"time"

	"github.com/canopyview/canopy/pkg/geo"
)

// RootBranchName is the conventional name of the tree root.
const RootBranchName = "main"

// Branch is a node in the conversation tree: a linear sequence of messages
// plus tree-placement metadata.
//
// Level is the depth from the root, set once at creation and never
// recomputed. Position is derived data owned by the layout engine and is
// overwritten whenever the tree shape changes. CreatedAt orders siblings
// deterministically, independent of map iteration order.
type Branch struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ParentBranchID  string    `json:"parent_branch_id,omitempty"`
	ParentMessageID string    `json:"parent_message_id,omitempty"`
	Messages        []Message `json:"messages"`
	Summary         string    `json:"summary,omitempty"`
	Position        geo.Point `json:"position"`
	Level           int       `json:"level"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsRoot reports whether the branch is the tree root.
func (b *Branch) IsRoot() bool { return b.ParentBranchID == "" }

// Append adds a message to the branch.
func (b *Branch) Append(m Message) {
	b.Messages = append(b.Messages, m)
}

// LastOwnMessage returns the most recent non-inherited message, if any.
func (b *Branch) LastOwnMessage() (Message, bool) {
	for i := len(b.Messages) - 1; i >= 0; i-- {
		if !b.Messages[i].Inherited {
			return b.Messages[i], true
		}
	}
	return Message{}, false
}

// OwnsMessage reports whether the branch contains the message as a
// non-inherited (origin) message.
func (b *Branch) OwnsMessage(messageID string) bool {
	for _, m := range b.Messages {
		if m.ID == messageID && !m.Inherited {
			return true
		}
	}
	return false
}
