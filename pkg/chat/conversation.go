// Package chat defines the branching-conversation data model: messages,
// branches, and conversations, plus the operations the canvas exposes
// (branch creation, active-branch switching, message navigation).
//
// The branch graph is a tree: every non-root branch's ParentBranchID
// resolves to an existing branch. Positions are derived data owned by the
// layout engine (pkg/layout); this package never computes geometry.
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canopyview/canopy/pkg/errors"
	"github.com/canopyview/canopy/pkg/geo"
)

// DefaultCanvasCenter is where the root branch of a fresh conversation is
// anchored.
var DefaultCanvasCenter = geo.Point{X: 800, Y: 400}

// Conversation is a tree of branches with exactly one root.
//
// Invariants: ActiveBranchID always resolves to a key present in Branches,
// and the branch graph is a tree.
type Conversation struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	LastMessage    string             `json:"last_message,omitempty"`
	Branches       map[string]*Branch `json:"branches"`
	ActiveBranchID string             `json:"active_branch_id"`
	CanvasCenter   geo.Point          `json:"canvas_center"`
}

// New creates a conversation with a single root branch named "main".
func New(title string) *Conversation {
	root := &Branch{
		ID:        uuid.NewString(),
		Name:      RootBranchName,
		Messages:  []Message{},
		Level:     0,
		CreatedAt: time.Now().UTC(),
	}
	return &Conversation{
		ID:             uuid.NewString(),
		Title:          title,
		Branches:       map[string]*Branch{root.ID: root},
		ActiveBranchID: root.ID,
		CanvasCenter:   DefaultCanvasCenter,
	}
}

// Root returns the unique root branch.
// Returns a LAYOUT_NO_ROOT error when zero or more than one root exists.
func (c *Conversation) Root() (*Branch, error) {
	var root *Branch
	n := 0
	for _, b := range c.Branches {
		if b.IsRoot() {
			root = b
			n++
		}
	}
	if n != 1 {
		return nil, errors.New(errors.ErrCodeLayoutNoRoot, "conversation %s has %d root branches", c.ID, n)
	}
	return root, nil
}

// Branch returns the branch with the given id.
func (c *Conversation) Branch(id string) (*Branch, error) {
	b, ok := c.Branches[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeBranchNotFound, "branch %s not found", id)
	}
	return b, nil
}

// Active returns the currently active branch. The ActiveBranchID invariant
// makes a lookup failure an internal error, not a caller mistake.
func (c *Conversation) Active() *Branch {
	return c.Branches[c.ActiveBranchID]
}

// SwitchBranch makes the given branch active. Pure bookkeeping: it has no
// geometry impact until the next structural change.
func (c *Conversation) SwitchBranch(id string) error {
	if _, ok := c.Branches[id]; !ok {
		return errors.New(errors.ErrCodeBranchNotFound, "branch %s not found", id)
	}
	c.ActiveBranchID = id
	return nil
}

// AddMessage appends a user message to the given branch followed by a
// synchronous placeholder assistant reply. Real text generation is out of
// scope; the placeholder keeps the message alternation realistic.
func (c *Conversation) AddMessage(branchID, content string) (Message, error) {
	b, err := c.Branch(branchID)
	if err != nil {
		return Message{}, err
	}

	user := NewMessage(RoleUser, content)
	b.Append(user)

	reply := NewMessage(RoleAssistant, fmt.Sprintf("Thinking about: %s", content))
	b.Append(reply)

	c.LastMessage = reply.Content
	return user, nil
}

// CreateBranch commits a new branch from the given source branch. The
// single most-recent non-inherited message of the source is copied into
// the child as an inherited seed; a source with no own messages yields a
// child with no seed. The child's level is the parent's level + 1, fixed
// for the branch's lifetime.
//
// The caller is responsible for triggering a relayout afterwards; this
// package never positions branches.
func (c *Conversation) CreateBranch(fromID, name string) (*Branch, error) {
	parent, err := c.Branch(fromID)
	if err != nil {
		return nil, err
	}

	child := &Branch{
		ID:             uuid.NewString(),
		Name:           name,
		ParentBranchID: parent.ID,
		Messages:       []Message{},
		Level:          parent.Level + 1,
		CreatedAt:      c.nextCreationTime(),
	}

	if seed, ok := parent.LastOwnMessage(); ok {
		child.ParentMessageID = seed.ID
		child.Append(seed.AsInherited())
	}

	c.Branches[child.ID] = child
	return child, nil
}

// nextCreationTime returns a timestamp strictly later than every existing
// branch's CreatedAt. Sibling ordering in the layout engine keys on
// CreatedAt, so two branches created within the same clock tick must not
// collide.
func (c *Conversation) nextCreationTime() time.Time {
	t := time.Now().UTC()
	for _, b := range c.Branches {
		if !t.After(b.CreatedAt) {
			t = b.CreatedAt.Add(time.Nanosecond)
		}
	}
	return t
}

// OriginBranch finds the branch where the given message originates, i.e.
// where it appears as a non-inherited message.
func (c *Conversation) OriginBranch(messageID string) (*Branch, error) {
	for _, b := range c.Branches {
		if b.OwnsMessage(messageID) {
			return b, nil
		}
	}
	return nil, errors.New(errors.ErrCodeMessageNotFound, "message %s has no origin branch", messageID)
}

// NavigateToMessage switches the active branch to the origin branch of the
// given message and returns it. The caller typically pairs this with a
// Highlighter to mark the message transiently.
func (c *Conversation) NavigateToMessage(messageID string) (*Branch, error) {
	origin, err := c.OriginBranch(messageID)
	if err != nil {
		return nil, err
	}
	c.ActiveBranchID = origin.ID
	return origin, nil
}

// Validate checks the conversation invariants: exactly one root, an active
// branch that resolves, and parent links free of cycles. Dangling parent
// links are not an invariant violation here; the layout engine reports
// them per-branch and skips the offenders.
func (c *Conversation) Validate() error {
	if len(c.Branches) == 0 {
		return errors.New(errors.ErrCodeInvalidConversation, "conversation %s has no branches", c.ID)
	}
	if _, ok := c.Branches[c.ActiveBranchID]; !ok {
		return errors.New(errors.ErrCodeInvalidConversation, "active branch %s does not resolve", c.ActiveBranchID)
	}
	if _, err := c.Root(); err != nil {
		return err
	}

	for id := range c.Branches {
		seen := map[string]bool{}
		cur := id
		for cur != "" {
			if seen[cur] {
				return errors.New(errors.ErrCodeInvalidConversation, "parent links of branch %s form a cycle", id)
			}
			seen[cur] = true
			b, ok := c.Branches[cur]
			if !ok {
				break // dangling parent, layout reports it
			}
			cur = b.ParentBranchID
		}
	}
	return nil
}
