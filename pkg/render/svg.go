// Package render turns a laid-out conversation into viewable artifacts:
// a native SVG canvas, a Graphviz node-link diagram, and a JSON layout
// document for downstream tooling.
package render

import (
	"bytes"
	"fmt"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/edge"
	"github.com/canopyview/canopy/pkg/geo"
	"github.com/canopyview/canopy/pkg/layout"
)

const (
	canvasPad = 80

	colorBackdrop  = "#f9fafb"
	colorBlockFill = "#ffffff"
	colorBlockLine = "#d1d5db"
	colorActive    = "#7c3aed"
	colorEdge      = "#9ca3af"
	colorText      = "#111827"
	colorSubtle    = "#6b7280"
	colorInherited = "#a78bfa"
)

// SVGOption configures the SVG renderer.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	showEdges     bool
	showSummaries bool
	highlightID   string
}

// WithEdges draws the parent→child connectors.
func WithEdges() SVGOption { return func(r *svgRenderer) { r.showEdges = true } }

// WithSummaries prints each branch's summary line inside its block.
func WithSummaries() SVGOption { return func(r *svgRenderer) { r.showSummaries = true } }

// WithHighlight marks the block owning the given message with the accent
// stroke, mirroring the transient navigation highlight.
func WithHighlight(messageID string) SVGOption {
	return func(r *svgRenderer) { r.highlightID = messageID }
}

// RenderSVG renders the conversation onto an SVG canvas using the given
// positions. Blocks are drawn as rounded rectangles centered on their
// positions; edges as cubic Bézier paths with an arrowhead at the child
// anchor. Output is deterministic: blocks and edges are emitted in sorted
// branch-id order.
func RenderSVG(c *chat.Conversation, res *layout.Result, opts ...SVGOption) []byte {
	r := svgRenderer{showEdges: true}
	for _, opt := range opts {
		opt(&r)
	}

	ids := sortedPositioned(c, res)
	bounds := contentBounds(res, ids)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(
		int(bounds.Width()), int(bounds.Height()),
		int(bounds.Min.X), int(bounds.Min.Y),
		int(bounds.Width()), int(bounds.Height()),
	)
	canvas.Rect(int(bounds.Min.X), int(bounds.Min.Y), int(bounds.Width()), int(bounds.Height()),
		"fill:"+colorBackdrop)

	canvas.Def()
	canvas.Marker("arrow", 8, 4, 10, 8, "orient=\"auto\"", "markerUnits=\"userSpaceOnUse\"")
	canvas.Path("M 0 0 L 8 4 L 0 8 z", "fill:"+colorEdge)
	canvas.MarkerEnd()
	canvas.DefEnd()

	if r.showEdges {
		for _, id := range ids {
			b := c.Branches[id]
			if b.IsRoot() {
				continue
			}
			parentPos, ok := res.Positions[b.ParentBranchID]
			if !ok {
				continue
			}
			conn := edge.Connect(
				edge.Block{Center: parentPos, Width: layout.BlockWidth},
				edge.Block{Center: res.Positions[id], Width: layout.BlockWidth},
			)
			canvas.Path(
				fmt.Sprintf("M %.1f %.1f C %.1f %.1f %.1f %.1f %.1f %.1f",
					conn.Start.X, conn.Start.Y,
					conn.Control1.X, conn.Control1.Y,
					conn.Control2.X, conn.Control2.Y,
					conn.End.X, conn.End.Y),
				"fill:none;stroke:"+colorEdge+";stroke-width:2", `marker-end="url(#arrow)"`)
		}
	}

	for _, id := range ids {
		r.renderBlock(canvas, c, id, res.Positions[id])
	}

	canvas.End()
	return buf.Bytes()
}

func (r *svgRenderer) renderBlock(canvas *svg.SVG, c *chat.Conversation, id string, pos geo.Point) {
	b := c.Branches[id]
	x := int(pos.X - layout.BlockWidth/2)
	y := int(pos.Y - layout.BlockHeight/2)
	w := int(layout.BlockWidth)
	h := int(layout.BlockHeight)

	stroke := colorBlockLine
	strokeWidth := 1.5
	if id == c.ActiveBranchID || r.ownsHighlight(b) {
		stroke = colorActive
		strokeWidth = 3
	}
	canvas.Roundrect(x, y, w, h, 12, 12,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", colorBlockFill, stroke, strokeWidth))

	canvas.Text(x+16, y+30, truncate(b.Name, 28),
		"fill:"+colorText+";font-size:18px;font-family:sans-serif;font-weight:bold")
	canvas.Text(x+16, y+52, fmt.Sprintf("level %d · %d messages", b.Level, len(b.Messages)),
		"fill:"+colorSubtle+";font-size:12px;font-family:sans-serif")

	if r.showSummaries && b.Summary != "" {
		canvas.Text(x+16, y+74, truncate(b.Summary, 36),
			"fill:"+colorSubtle+";font-size:12px;font-family:sans-serif;font-style:italic")
	}

	ty := y + 100
	for _, m := range b.Messages {
		if ty > y+h-20 {
			canvas.Text(x+16, ty, "…", "fill:"+colorSubtle+";font-size:12px;font-family:sans-serif")
			break
		}
		fill := colorText
		if m.Inherited {
			fill = colorInherited
		}
		canvas.Text(x+16, ty, fmt.Sprintf("%s: %s", m.Role, truncate(m.Content, 32)),
			"fill:"+fill+";font-size:12px;font-family:monospace")
		ty += 22
	}
}

func (r *svgRenderer) ownsHighlight(b *chat.Branch) bool {
	return r.highlightID != "" && b.OwnsMessage(r.highlightID)
}

// sortedPositioned returns the positioned branch ids in sorted order, so
// draw order never depends on map iteration.
func sortedPositioned(c *chat.Conversation, res *layout.Result) []string {
	ids := make([]string, 0, len(res.Positions))
	for id := range res.Positions {
		if _, ok := c.Branches[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// contentBounds is the union of all block rectangles, padded. An empty
// position set yields a small non-degenerate frame so the SVG stays valid.
func contentBounds(res *layout.Result, ids []string) geo.Rect {
	if len(ids) == 0 {
		return geo.Rect{Max: geo.Point{X: 2 * canvasPad, Y: 2 * canvasPad}}
	}
	half := geo.Point{X: layout.BlockWidth / 2, Y: layout.BlockHeight / 2}
	first := res.Positions[ids[0]]
	bounds := geo.Rect{Min: first.Sub(half), Max: first.Add(half)}
	for _, id := range ids[1:] {
		p := res.Positions[id]
		bounds = bounds.Union(geo.Rect{Min: p.Sub(half), Max: p.Add(half)})
	}
	return bounds.Pad(canvasPad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
