package render

import (
	"encoding/json"
	"sort"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/layout"
)

// LayoutDocument is the JSON export of a computed layout: one entry per
// positioned block plus the ids of branches the layout skipped.
type LayoutDocument struct {
	ConversationID string       `json:"conversation_id"`
	Title          string       `json:"title"`
	CenterX        float64      `json:"center_x"`
	CenterY        float64      `json:"center_y"`
	Blocks         []LayoutItem `json:"blocks"`
	Dangling       []string     `json:"dangling,omitempty"`
}

// LayoutItem is one positioned block in the export.
type LayoutItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Level    int     `json:"level"`
	Messages int     `json:"messages"`
	Active   bool    `json:"active"`
}

// MarshalLayout builds the JSON layout document. Blocks are sorted by id
// for stable output.
func MarshalLayout(c *chat.Conversation, res *layout.Result) ([]byte, error) {
	doc := LayoutDocument{
		ConversationID: c.ID,
		Title:          c.Title,
		CenterX:        c.CanvasCenter.X,
		CenterY:        c.CanvasCenter.Y,
		Dangling:       res.Dangling,
	}

	for id, pos := range res.Positions {
		b, ok := c.Branches[id]
		if !ok {
			continue
		}
		doc.Blocks = append(doc.Blocks, LayoutItem{
			ID:       id,
			Name:     b.Name,
			X:        pos.X,
			Y:        pos.Y,
			Level:    b.Level,
			Messages: len(b.Messages),
			Active:   id == c.ActiveBranchID,
		})
	}
	sort.Slice(doc.Blocks, func(i, j int) bool { return doc.Blocks[i].ID < doc.Blocks[j].ID })

	return json.MarshalIndent(doc, "", "  ")
}
