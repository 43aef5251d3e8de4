package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/canopyview/canopy/pkg/chat"
)

// ToDOT converts the branch tree to Graphviz DOT format. Graphviz does its
// own layout, so this export deliberately ignores canvas positions; it is
// the structural view of the tree. The resulting DOT string can be rendered
// with [RenderDOTSVG].
func ToDOT(c *chat.Conversation) string {
	var buf bytes.Buffer
	buf.WriteString("digraph conversation {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	ids := make([]string, 0, len(c.Branches))
	for id := range c.Branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b := c.Branches[id]
		label := fmt.Sprintf("%s\nlevel %d · %d msgs", b.Name, b.Level, len(b.Messages))
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if id == c.ActiveBranchID {
			attrs = append(attrs, "color=\"#7c3aed\"", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range ids {
		b := c.Branches[id]
		if b.IsRoot() {
			continue
		}
		if _, ok := c.Branches[b.ParentBranchID]; !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", b.ParentBranchID, id)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOTSVG renders a DOT graph to SVG using Graphviz.
func RenderDOTSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's svg element to a zero-origin viewBox
// with explicit pixel dimensions, which embeds cleanly in HTML.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
