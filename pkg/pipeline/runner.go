package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/canopyview/canopy/pkg/cache"
	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/geo"
	"github.com/canopyview/canopy/pkg/layout"
	"github.com/canopyview/canopy/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options, as long as they don't share Conversation
// values.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// LayoutTTL and ArtifactTTL control how long cached entries live.
	// NewRunner seeds them with the package defaults; callers may override
	// both (the CLI does, from the cache.ttl config key).
	LayoutTTL   time.Duration
	ArtifactTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		LayoutTTL:   cache.TTLLayout,
		ArtifactTTL: cache.TTLArtifact,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// ShapeHash is the content hash of the tree shape the layout keys on.
	ShapeHash string

	// Layout holds positions plus the dangling branches the engine skipped.
	Layout *layout.Result

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Execute runs the complete layout → render pipeline with caching and
// writes the computed positions back onto the conversation's branches.
func (r *Runner) Execute(ctx context.Context, c *chat.Conversation, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		ShapeHash: ShapeHash(c),
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Layout
	layoutStart := time.Now()
	res, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	for id, p := range res.Positions {
		c.Branches[id].Position = p
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.BranchCount = len(res.Positions)
	result.Stats.DanglingCount = len(res.Dangling)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"blocks", len(res.Positions),
		"dangling", len(res.Dangling),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, c, res, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComputeLayoutWithCacheInfo computes the layout with caching and returns
// cache hit info. The cache key covers only what positions depend on: the
// tree shape and the canvas center.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, c *chat.Conversation, opts Options) (*layout.Result, bool, error) {
	r.applyLogger(&opts)

	cacheKey := r.Keyer.LayoutKey(ShapeHash(c), LayoutKeyOpts(c))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached layout.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, true, nil
			}
			// Undecodable entry: fall through to recompute
		}
	}

	res, err := layout.Compute(c.Branches, c.CanvasCenter)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(res); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, r.LayoutTTL)
	}

	return res, false, nil
}

// ComputeLayout is a convenience wrapper that discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, c *chat.Conversation, opts Options) (*layout.Result, error) {
	res, _, err := r.ComputeLayoutWithCacheInfo(ctx, c, opts)
	return res, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache
// hit info. Unlike the layout key, the artifact key covers the full
// conversation content - block text changes must invalidate renders even
// when positions don't move.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, c *chat.Conversation, res *layout.Result, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	contentHash, err := contentHash(c, res)
	if err != nil {
		return nil, false, err
	}

	artifacts := make(map[string][]byte)
	allCached := !opts.Refresh

	if allCached {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	rendered, err := r.renderAll(ctx, c, res, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(contentHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, r.ArtifactTTL)
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, c *chat.Conversation, res *layout.Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, c, res, opts)
	return artifacts, err
}

func (r *Runner) renderAll(ctx context.Context, c *chat.Conversation, res *layout.Result, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatSVG:
			var svgOpts []render.SVGOption
			if opts.ShowEdges {
				svgOpts = append(svgOpts, render.WithEdges())
			}
			if opts.ShowSummaries {
				svgOpts = append(svgOpts, render.WithSummaries())
			}
			if opts.Highlight != "" {
				svgOpts = append(svgOpts, render.WithHighlight(opts.Highlight))
			}
			out[format] = render.RenderSVG(c, res, svgOpts...)
		case FormatDOT:
			out[format] = []byte(render.ToDOT(c))
		case FormatJSON:
			data, err := render.MarshalLayout(c, res)
			if err != nil {
				return nil, err
			}
			out[format] = data
		}
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// ShapeHash hashes exactly the inputs the layout engine reads: each
// branch's id, parent link, and creation time, in sorted id order. Message
// edits don't change it; branch creation does.
func ShapeHash(c *chat.Conversation) string {
	type shapeEntry struct {
		ID        string    `json:"id"`
		Parent    string    `json:"parent"`
		CreatedAt time.Time `json:"created_at"`
	}
	entries := make([]shapeEntry, 0, len(c.Branches))
	for id, b := range c.Branches {
		entries = append(entries, shapeEntry{ID: id, Parent: b.ParentBranchID, CreatedAt: b.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	data, _ := json.Marshal(struct {
		Center  geo.Point    `json:"center"`
		Entries []shapeEntry `json:"entries"`
	}{Center: c.CanvasCenter, Entries: entries})
	return cache.Hash(data)
}

// contentHash keys rendered artifacts: full conversation content plus the
// computed positions.
func contentHash(c *chat.Conversation, res *layout.Result) (string, error) {
	convData, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	layoutData, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return cache.Hash(append(convData, layoutData...)), nil
}
