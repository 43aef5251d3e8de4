package chat

import (
	"testing"
	"time"
)

func TestHighlightAutoClears(t *testing.T) {
	h := NewHighlighter(20 * time.Millisecond)
	defer h.Stop()

	h.Highlight("m1")
	if h.Current() != "m1" {
		t.Fatalf("Current = %q, want m1", h.Current())
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Current() != "" {
		if time.Now().After(deadline) {
			t.Fatal("highlight never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHighlightRestartsTimer(t *testing.T) {
	h := NewHighlighter(50 * time.Millisecond)
	defer h.Stop()

	h.Highlight("m1")
	time.Sleep(30 * time.Millisecond)
	h.Highlight("m2")
	time.Sleep(30 * time.Millisecond)

	// m1's timer was cancelled; m2's has not elapsed yet.
	if h.Current() != "m2" {
		t.Errorf("Current = %q, want m2", h.Current())
	}
}

func TestHighlightStop(t *testing.T) {
	h := NewHighlighter(time.Hour)
	h.Highlight("m1")
	h.Stop()
	if h.Current() != "" {
		t.Error("Stop should clear the highlight")
	}
	h.Stop() // idempotent
}

func TestHighlighterDefaultTTL(t *testing.T) {
	h := NewHighlighter(0)
	if h.ttl != DefaultHighlightTTL {
		t.Errorf("ttl = %v, want %v", h.ttl, DefaultHighlightTTL)
	}
}
