// Package geo provides the 2-D value types shared by the layout engine,
// the edge geometry, and the viewport controller. All coordinates are in
// canvas units (typically pixels in SVG).
package geo

// Point is a position or translation in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the translation that moves q onto p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Neg returns the opposite translation.
func (p Point) Neg() Point { return Point{-p.X, -p.Y} }

// Size is a width/height extent.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of a size anchored at the origin.
func (s Size) Center() Point { return Point{s.W / 2, s.H / 2} }

// Rect is an axis-aligned rectangle with Min ≤ Max on both axes.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// RectAround returns the smallest rectangle containing both points.
func RectAround(a, b Point) Rect {
	r := Rect{Min: a, Max: a}
	if b.X < r.Min.X {
		r.Min.X = b.X
	}
	if b.X > r.Max.X {
		r.Max.X = b.X
	}
	if b.Y < r.Min.Y {
		r.Min.Y = b.Y
	}
	if b.Y > r.Max.Y {
		r.Max.Y = b.Y
	}
	return r
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Pad grows the rectangle by d units on every side.
func (r Rect) Pad(d float64) Rect {
	return Rect{
		Min: Point{r.Min.X - d, r.Min.Y - d},
		Max: Point{r.Max.X + d, r.Max.Y + d},
	}
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(o Rect) Rect {
	if o.Min.X < r.Min.X {
		r.Min.X = o.Min.X
	}
	if o.Min.Y < r.Min.Y {
		r.Min.Y = o.Min.Y
	}
	if o.Max.X > r.Max.X {
		r.Max.X = o.Max.X
	}
	if o.Max.Y > r.Max.Y {
		r.Max.Y = o.Max.Y
	}
	return r
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
