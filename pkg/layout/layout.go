// Package layout computes canvas positions for every branch in a
// conversation tree.
//
// The engine is a pure function of the tree shape: identical parent links
// and creation order yield identical positions, regardless of map iteration
// order. There is no incremental mode; callers recompute the full layout on
// every structural change.
//
// Placement walks the tree from the root with an explicit worklist (no
// language-level recursion, so traversal order is bounded and testable).
// Children of a node share a vertical band centered on the parent and are
// pushed to the left or right of it by a load-balancing rule. A single
// post-hoc O(n²) sweep resolves pairwise overlaps by shifting blocks
// vertically; the sweep is deliberately not iterated to a fixed point, so
// residual overlaps between more than two near-coincident blocks are an
// accepted approximation.
package layout

import (
	"math"
	"sort"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/errors"
	"github.com/canopyview/canopy/pkg/geo"
)

// Spacing constants. These are contractual: rendered output must stay
// visually compatible across versions, so they are not configurable.
const (
	HorizontalSpacing = 450.0
	VerticalSpacing   = 150.0
	BlockHeight       = 380.0
	BlockWidth        = 320.0
	MinSpacing        = 50.0
)

// Result carries the computed positions plus the malformed branches that
// were skipped. Dangling lists, sorted by id, every branch whose
// ParentBranchID resolves to no existing branch; those branches (and their
// descendants) receive no position.
type Result struct {
	Positions map[string]geo.Point
	Dangling  []string
}

// DanglingErrors returns one coded error per skipped branch.
func (r *Result) DanglingErrors() []error {
	out := make([]error, 0, len(r.Dangling))
	for _, id := range r.Dangling {
		out = append(out, errors.New(errors.ErrCodeLayoutDanglingParent, "branch %s references a nonexistent parent", id))
	}
	return out
}

// Compute positions every branch reachable from the unique root, anchoring
// the root at center. It fails with LAYOUT_NO_ROOT when the tree has zero
// or more than one root; dangling-parent branches are reported in the
// Result rather than failing the call.
func Compute(branches map[string]*chat.Branch, center geo.Point) (*Result, error) {
	var rootID string
	roots := 0
	children := make(map[string][]*chat.Branch)
	var dangling []string

	for id, b := range branches {
		if b.IsRoot() {
			rootID = id
			roots++
			continue
		}
		if _, ok := branches[b.ParentBranchID]; !ok {
			dangling = append(dangling, id)
			continue
		}
		children[b.ParentBranchID] = append(children[b.ParentBranchID], b)
	}
	if roots != 1 {
		return nil, errors.New(errors.ErrCodeLayoutNoRoot, "conversation has %d root branches, want exactly 1", roots)
	}

	// Sibling order is (CreatedAt, ID): deterministic and independent of
	// the Branches map's iteration order.
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool {
			if !kids[i].CreatedAt.Equal(kids[j].CreatedAt) {
				return kids[i].CreatedAt.Before(kids[j].CreatedAt)
			}
			return kids[i].ID < kids[j].ID
		})
	}
	sort.Strings(dangling)

	positions := map[string]geo.Point{rootID: center}
	order := []string{rootID}

	// Depth-first worklist: visiting a node places all of its children,
	// then descends into them in sibling order. Children are pushed in
	// reverse so the first sibling is visited first.
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parentPos := positions[id]
		kids := children[id]
		k := len(kids)

		for i, kid := range kids {
			// The i-th slot in a band of k*VerticalSpacing centered on the
			// parent. The reserved band never shrinks below BlockHeight,
			// but the floor does not shift slot centers: a single child
			// sits exactly at its parent's y.
			y := parentPos.Y - float64(k-1)*VerticalSpacing/2 + float64(i)*VerticalSpacing
			x := parentPos.X + sideOf(positions, parentPos.X, i)*HorizontalSpacing

			positions[kid.ID] = geo.Point{X: x, Y: y}
			order = append(order, kid.ID)
		}
		for i := k - 1; i >= 0; i-- {
			stack = append(stack, kids[i].ID)
		}
	}

	resolveOverlaps(positions, order)

	return &Result{Positions: positions, Dangling: dangling}, nil
}

// sideOf picks the horizontal side (+1 right, -1 left) for the next child
// of a parent at parentX. The side with fewer already-placed blocks wins;
// ties alternate across the sibling index, right first.
//
// The counts are recomputed by scanning every placed position each time,
// not maintained incrementally. That is the contract, not an optimization
// oversight: which side a child lands on depends on this exact sequence of
// global counts.
func sideOf(positions map[string]geo.Point, parentX float64, siblingIndex int) float64 {
	left, right := 0, 0
	for _, p := range positions {
		switch {
		case p.X < parentX:
			left++
		case p.X > parentX:
			right++
		}
	}
	switch {
	case left < right:
		return -1
	case right < left:
		return 1
	case siblingIndex%2 == 0:
		return 1
	default:
		return -1
	}
}

// resolveOverlaps runs the single-pass pairwise sweep in placement order.
// Two blocks overlap when both axis gaps are under block extent plus
// MinSpacing; the later-placed block of the pair is shifted one full block
// height (plus spacing) away vertically, x unchanged.
func resolveOverlaps(positions map[string]geo.Point, order []string) {
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a := positions[order[i]]
			b := positions[order[j]]
			if math.Abs(a.X-b.X) >= BlockWidth+MinSpacing || math.Abs(a.Y-b.Y) >= BlockHeight+MinSpacing {
				continue
			}
			shift := BlockHeight + MinSpacing
			if b.Y < a.Y {
				shift = -shift
			}
			b.Y += shift
			positions[order[j]] = b
		}
	}
}

// Refresh recomputes the layout of a conversation and writes the positions
// back onto each branch. Branches skipped as dangling keep their last-known
// position.
func Refresh(c *chat.Conversation) (*Result, error) {
	res, err := Compute(c.Branches, c.CanvasCenter)
	if err != nil {
		return nil, err
	}
	for id, p := range res.Positions {
		c.Branches[id].Position = p
	}
	return res, nil
}
