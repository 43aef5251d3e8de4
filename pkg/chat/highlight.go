package chat

import (
	"sync"
	"time"
)

// DefaultHighlightTTL is how long a navigated-to message stays highlighted.
const DefaultHighlightTTL = 3 * time.Second

// Highlighter owns the transient message highlight used by message
// navigation: the marked id auto-clears after a fixed TTL. The timer
// callback runs on its own goroutine, so access is guarded by a mutex;
// everything else in the conversation model stays single-writer.
type Highlighter struct {
	mu        sync.Mutex
	ttl       time.Duration
	messageID string
	timer     *time.Timer
}

// NewHighlighter creates a highlighter. A non-positive ttl selects
// DefaultHighlightTTL; tests inject a short one.
func NewHighlighter(ttl time.Duration) *Highlighter {
	if ttl <= 0 {
		ttl = DefaultHighlightTTL
	}
	return &Highlighter{ttl: ttl}
}

// Highlight marks the message and schedules the auto-clear. Re-highlighting
// restarts the countdown.
func (h *Highlighter) Highlight(messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.messageID = messageID
	h.timer = time.AfterFunc(h.ttl, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.messageID == messageID {
			h.messageID = ""
		}
	})
}

// Current returns the highlighted message id, or "" when nothing is
// highlighted.
func (h *Highlighter) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.messageID
}

// Stop clears the highlight and cancels the pending timer. Safe to call
// repeatedly and on teardown.
func (h *Highlighter) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.messageID = ""
}
