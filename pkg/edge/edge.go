// Package edge computes the connector geometry between a positioned parent
// block and its child: the anchor points, the control points of a cubic
// Bézier, and a padded bounding box the consumer uses to size a local
// coordinate space for the curve and its arrowhead marker.
//
// Everything here is a pure function of the two block positions. Re-invoking
// with the same inputs yields bit-identical output; nothing depends on draw
// order.
package edge

import (
	"math"

	"github.com/canopyview/canopy/pkg/geo"
)

const (
	// controlScale stretches the control offset with the horizontal gap,
	// clamped to [controlMin, controlMax] so short edges still bow and
	// long edges don't balloon.
	controlScale = 0.3
	controlMin   = 80.0
	controlMax   = 150.0

	// boundsPad is the padding applied around the start and end anchors
	// when computing the bounding box.
	boundsPad = 50.0
)

// Block is a positioned block as the edge geometry sees it: a center point
// and a width. Height never matters here; anchors sit on the vertical
// midline of the left or right block edge.
type Block struct {
	Center geo.Point
	Width  float64
}

// Connection is the drawable geometry of one parent→child edge.
type Connection struct {
	Start    geo.Point
	End      geo.Point
	Control1 geo.Point
	Control2 geo.Point
	Bounds   geo.Rect
}

// Connect computes the connector from parent to child.
//
// Anchors: when the child is to the right, the edge runs from the parent's
// right edge to the child's left edge; mirrored when the child is to the
// left. At equal x — including the degenerate case of identical
// coordinates — the anchors fall back to the block centers and the control
// points collapse onto them, which keeps the output finite and defined
// instead of producing NaN or a zero-length curve with undefined tangents.
func Connect(parent, child Block) Connection {
	dx := child.Center.X - parent.Center.X

	var start, end geo.Point
	var dir float64
	switch {
	case dx > 0:
		dir = 1
		start = geo.Point{X: parent.Center.X + parent.Width/2, Y: parent.Center.Y}
		end = geo.Point{X: child.Center.X - child.Width/2, Y: child.Center.Y}
	case dx < 0:
		dir = -1
		start = geo.Point{X: parent.Center.X - parent.Width/2, Y: parent.Center.Y}
		end = geo.Point{X: child.Center.X + child.Width/2, Y: child.Center.Y}
	default:
		dir = 0
		start = parent.Center
		end = child.Center
	}

	offset := geo.Clamp(math.Abs(dx)*controlScale, controlMin, controlMax)

	return Connection{
		Start:    start,
		End:      end,
		Control1: geo.Point{X: start.X + dir*offset, Y: start.Y},
		Control2: geo.Point{X: end.X - dir*offset, Y: end.Y},
		Bounds:   geo.RectAround(start, end).Pad(boundsPad),
	}
}

// At evaluates the cubic Bézier at t ∈ [0,1]. Consumers that cannot draw
// native curves (the terminal canvas) sample the connection with it.
func (c Connection) At(t float64) geo.Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return geo.Point{
		X: b0*c.Start.X + b1*c.Control1.X + b2*c.Control2.X + b3*c.End.X,
		Y: b0*c.Start.Y + b1*c.Control1.Y + b2*c.Control2.Y + b3*c.End.Y,
	}
}
