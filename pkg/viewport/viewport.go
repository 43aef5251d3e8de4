// Package viewport owns the canvas pan state: a 2-D offset applied to all
// block positions, advanced by pointer drags and wheel gestures.
//
// The controller is an explicit two-mode state machine (idle, dragging)
// plus a transient wheel-pan action that never changes mode. Its state is
// mutated only by its own handlers — the single-writer rule that lets the
// rest of the system stay lock-free. Gesture disambiguation (pan the canvas
// vs. scroll inside a block vs. pinch-zoom) happens here; what counts as an
// internal scrollable region is delegated to a caller-supplied predicate,
// which is the seam between this core and the rendering layer.
package viewport

import "github.com/canopyview/canopy/pkg/geo"

// Target is one node in an event-target ancestor chain. Parent returns nil
// at the chain's root.
type Target interface {
	Parent() Target
}

// Predicate classifies a single target node as an internal scroll viewport
// (message-list content, a scrollable block body). The controller walks the
// whole ancestor chain with it, per event, with no caching — the target can
// differ between events.
type Predicate func(Target) bool

// Effects is the ambient UI state suspended for the duration of a drag:
// pointer affordance, text selection. Begin is called on entering the
// dragging mode and End on every exit path, including teardown mid-drag.
type Effects interface {
	Begin()
	End()
}

// PointerEvent is a pointer press, move, or release.
type PointerEvent struct {
	Pos     geo.Point
	Primary bool // primary button held (press/release) or responsible (move)
	Target  Target
}

// WheelEvent is a wheel or trackpad scroll gesture.
type WheelEvent struct {
	Delta  geo.Point
	Zoom   bool // zoom-gesture modifier held (pinch-to-zoom)
	Target Target
}

// Controller interprets pointer and wheel input into a canvas offset.
// Zero value is not usable; construct with New.
type Controller struct {
	offset   geo.Point
	last     geo.Point
	dragging bool

	scrollable Predicate
	effects    Effects
	held       bool
}

// New creates an idle controller. Both the predicate and the effects may be
// nil: a nil predicate treats no target as scrollable, nil effects are
// no-ops.
func New(scrollable Predicate, effects Effects) *Controller {
	return &Controller{scrollable: scrollable, effects: effects}
}

// Offset returns the current canvas translation.
func (c *Controller) Offset() geo.Point { return c.offset }

// Dragging reports whether a drag is in progress, for cursor affordance.
func (c *Controller) Dragging() bool { return c.dragging }

// PointerDown handles a press on the canvas. It starts a drag — and reports
// true — only for a primary-button press whose target chain is not
// internal-scrollable.
func (c *Controller) PointerDown(ev PointerEvent) bool {
	if !ev.Primary || c.dragging {
		return false
	}
	if c.inScrollable(ev.Target) {
		return false
	}
	c.dragging = true
	c.last = ev.Pos
	c.acquire()
	return true
}

// PointerMove advances the offset by the delta between the current and last
// recorded pointer position, then re-records it, so panning tracks the
// pointer exactly with no drift or smoothing. Ignored while idle; move/up
// listeners are registered globally only for the duration of a drag.
func (c *Controller) PointerMove(ev PointerEvent) {
	if !c.dragging {
		return
	}
	c.offset = c.offset.Add(ev.Pos.Sub(c.last))
	c.last = ev.Pos
}

// PointerUp ends the drag. It fires globally, not just over the canvas, so
// a drag that exits the canvas bounds still terminates and the offset
// freezes until the next drag or recenter.
func (c *Controller) PointerUp(ev PointerEvent) {
	if !c.dragging {
		return
	}
	c.dragging = false
	c.release()
}

// Wheel handles a wheel/trackpad gesture and reports whether it consumed
// the event (the caller suppresses the default scroll behavior exactly
// when it did). Events carrying the zoom modifier, or originating inside a
// scrollable region, pass through untouched: pinch-to-zoom and inner
// scrolling take precedence over canvas panning. The offset moves by the
// negated delta so content follows the gesture direction.
func (c *Controller) Wheel(ev WheelEvent) bool {
	if ev.Zoom || c.inScrollable(ev.Target) {
		return false
	}
	c.offset = c.offset.Add(ev.Delta.Neg())
	return true
}

// Recenter sets the offset absolutely — the only non-incremental write —
// so that root lands at the center of a view-sized viewport. Called when
// the active conversation changes.
func (c *Controller) Recenter(root geo.Point, view geo.Size) {
	c.offset = view.Center().Sub(root)
}

// Close tears the controller down. A drag in flight is abandoned and the
// suspended ambient effects are restored; safe to call more than once.
func (c *Controller) Close() {
	c.dragging = false
	c.release()
}

func (c *Controller) inScrollable(t Target) bool {
	if c.scrollable == nil {
		return false
	}
	for ; t != nil; t = t.Parent() {
		if c.scrollable(t) {
			return true
		}
	}
	return false
}

// acquire and release keep the effects balanced: Begin/End run exactly once
// per drag no matter which exit path fires.
func (c *Controller) acquire() {
	if c.held || c.effects == nil {
		return
	}
	c.held = true
	c.effects.Begin()
}

func (c *Controller) release() {
	if !c.held {
		return
	}
	c.held = false
	if c.effects != nil {
		c.effects.End()
	}
}
