// Package pipeline provides the core visualization pipeline for Canopy.
//
// This package implements the load → layout → render pipeline shared by the
// CLI and the HTTP server. Centralizing it keeps cache keys, defaults, and
// stage semantics identical across entry points.
//
// # Architecture
//
// The pipeline consists of two computed stages over a loaded conversation:
//
//  1. Layout: Compute canvas positions for the branch tree
//  2. Render: Generate output in various formats (SVG, DOT, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Formats: []string{"svg"}}
//	result, err := runner.Execute(ctx, conv, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/canopyview/canopy/pkg/cache"
	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/errors"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// Options contains all configuration for the visualization pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Render options
	Formats       []string `json:"formats,omitempty"`
	ShowEdges     bool     `json:"show_edges,omitempty"`
	ShowSummaries bool     `json:"show_summaries,omitempty"`
	Highlight     string   `json:"highlight,omitempty"` // message id for transient accent

	// Refresh bypasses the cache for this run.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	BranchCount   int
	DanglingCount int
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks fields and applies defaults for the full
// pipeline. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// LayoutKeyOpts returns cache key options for layout computation.
func LayoutKeyOpts(c *chat.Conversation) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		CenterX: c.CanvasCenter.X,
		CenterY: c.CanvasCenter.Y,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:        format,
		ShowEdges:     o.ShowEdges,
		ShowSummaries: o.ShowSummaries,
		Highlight:     o.Highlight,
	}
}
