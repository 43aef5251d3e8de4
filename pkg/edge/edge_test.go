package edge

import (
	"math"
	"testing"

	"github.com/canopyview/canopy/pkg/geo"
)

const blockWidth = 320.0

func block(x, y float64) Block {
	return Block{Center: geo.Point{X: x, Y: y}, Width: blockWidth}
}

func TestConnectRightward(t *testing.T) {
	parent := block(800, 400)
	child := block(1250, 250)

	c := Connect(parent, child)

	if want := (geo.Point{X: 800 + blockWidth/2, Y: 400}); c.Start != want {
		t.Errorf("Start = %v, want %v", c.Start, want)
	}
	if want := (geo.Point{X: 1250 - blockWidth/2, Y: 250}); c.End != want {
		t.Errorf("End = %v, want %v", c.End, want)
	}

	// |Δx| = 450 → offset = clamp(135, 80, 150) = 135, applied outward.
	if want := c.Start.X + 135; c.Control1.X != want {
		t.Errorf("Control1.X = %v, want %v", c.Control1.X, want)
	}
	if want := c.End.X - 135; c.Control2.X != want {
		t.Errorf("Control2.X = %v, want %v", c.Control2.X, want)
	}
	if c.Control1.Y != c.Start.Y || c.Control2.Y != c.End.Y {
		t.Error("control points must stay on their anchors' y")
	}
}

func TestConnectMirrorSymmetry(t *testing.T) {
	parent := block(800, 400)
	right := Connect(parent, block(1250, 250))
	left := Connect(parent, block(350, 250))

	// Mirrored child → mirrored control offsets: same magnitude, opposite
	// sign relative to the anchors.
	rOff := right.Control1.X - right.Start.X
	lOff := left.Control1.X - left.Start.X
	if rOff != -lOff {
		t.Errorf("control offsets %v and %v are not mirrored", rOff, lOff)
	}
	if right.Start.X-parent.Center.X != -(left.Start.X - parent.Center.X) {
		t.Error("anchors are not mirrored about the parent center")
	}
}

func TestConnectOffsetClamp(t *testing.T) {
	parent := block(0, 0)

	// Tiny horizontal gap still gets the minimum bow.
	near := Connect(parent, block(10, 500))
	if got := near.Control1.X - near.Start.X; got != 80 {
		t.Errorf("near offset = %v, want 80", got)
	}

	// Huge gap is capped.
	far := Connect(parent, block(5000, 0))
	if got := far.Control1.X - far.Start.X; got != 150 {
		t.Errorf("far offset = %v, want 150", got)
	}
}

func TestConnectEqualXFallsBackToCenters(t *testing.T) {
	parent := block(800, 400)
	child := block(800, 900)

	c := Connect(parent, child)

	if c.Start != parent.Center || c.End != child.Center {
		t.Error("equal-x edge must anchor center-to-center")
	}
	// Zero direction collapses the controls onto the anchors.
	if c.Control1 != c.Start || c.Control2 != c.End {
		t.Errorf("controls = %v/%v, want anchors", c.Control1, c.Control2)
	}
}

func TestConnectDegenerateCoincidentBlocks(t *testing.T) {
	p := block(800, 400)
	c := Connect(p, p)

	for _, pt := range []geo.Point{c.Start, c.End, c.Control1, c.Control2} {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
			t.Fatalf("degenerate geometry produced NaN: %+v", c)
		}
	}
	if c.Start != p.Center || c.End != p.Center {
		t.Error("coincident blocks must anchor center-to-center")
	}
}

func TestConnectBounds(t *testing.T) {
	c := Connect(block(0, 0), block(1000, 300))

	want := geo.RectAround(c.Start, c.End).Pad(50)
	if c.Bounds != want {
		t.Errorf("Bounds = %v, want %v", c.Bounds, want)
	}
	// Padding is 50 on every side of the anchor extent.
	if c.Bounds.Min.X != c.Start.X-50 || c.Bounds.Max.X != c.End.X+50 {
		t.Errorf("horizontal padding wrong: %v", c.Bounds)
	}
}

func TestConnectBitIdentical(t *testing.T) {
	parent := block(800, 400)
	child := block(350, 550)
	first := Connect(parent, child)
	for i := 0; i < 10; i++ {
		if got := Connect(parent, child); got != first {
			t.Fatalf("Connect is not reproducible: %+v vs %+v", got, first)
		}
	}
}

func TestBezierSampling(t *testing.T) {
	c := Connect(block(0, 0), block(1000, 0))

	if got := c.At(0); got != c.Start {
		t.Errorf("At(0) = %v, want start %v", got, c.Start)
	}
	if got := c.At(1); got != c.End {
		t.Errorf("At(1) = %v, want end %v", got, c.End)
	}
	mid := c.At(0.5)
	if mid.X <= c.Start.X || mid.X >= c.End.X {
		t.Errorf("At(0.5).X = %v, want strictly between anchors", mid.X)
	}
}
