package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/canopyview/canopy/pkg/cache"
	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testConversation(t *testing.T) *chat.Conversation {
	t.Helper()
	c := chat.New("pipeline test")
	root := c.Active()
	if _, err := c.AddMessage(root.ID, "first question"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateBranch(root.ID, "tangent"); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format string
		ok     bool
	}{
		{"svg", true},
		{"dot", true},
		{"json", true},
		{"png", false},
		{"", false},
		{"SVG", false},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if tt.ok && err != nil {
			t.Errorf("ValidateFormat(%q) error = %v", tt.format, err)
		}
		if !tt.ok && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) = %v, want INVALID_FORMAT", tt.format, err)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestExecuteAllFormats(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	result, err := runner.Execute(ctx, c, Options{
		Formats:   []string{FormatSVG, FormatDOT, FormatJSON},
		ShowEdges: true,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Artifacts) != 3 {
		t.Fatalf("artifact count = %d, want 3", len(result.Artifacts))
	}
	if !strings.Contains(string(result.Artifacts[FormatSVG]), "<svg") {
		t.Error("svg artifact malformed")
	}
	if !strings.HasPrefix(string(result.Artifacts[FormatDOT]), "digraph") {
		t.Error("dot artifact malformed")
	}
	var doc map[string]any
	if err := json.Unmarshal(result.Artifacts[FormatJSON], &doc); err != nil {
		t.Errorf("json artifact malformed: %v", err)
	}

	if result.Stats.BranchCount != 2 {
		t.Errorf("BranchCount = %d, want 2", result.Stats.BranchCount)
	}
	if result.ShapeHash == "" {
		t.Error("ShapeHash empty")
	}

	// Positions were written back.
	for id, b := range c.Branches {
		if _, ok := result.Layout.Positions[id]; !ok {
			t.Errorf("branch %s has no position", id)
		}
		if b.Position != result.Layout.Positions[id] {
			t.Errorf("branch %s position not written back", id)
		}
	}
}

func TestExecuteInvalidFormat(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	_, err := runner.Execute(ctx, c, Options{Formats: []string{"png"}})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Execute() error = %v, want INVALID_FORMAT", err)
	}
}

func TestExecuteNoRoot(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)
	for _, b := range c.Branches {
		b.ParentBranchID = "elsewhere" // no root remains
	}

	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	_, err := runner.Execute(ctx, c, Options{})
	if !errors.Is(err, errors.ErrCodeLayoutNoRoot) {
		t.Errorf("Execute() error = %v, want LAYOUT_NO_ROOT", err)
	}
}

func TestExecuteSecondRunHitsCache(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	opts := Options{Formats: []string{FormatSVG, FormatJSON}}

	first, err := runner.Execute(ctx, c, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Error("first run reported cache hits")
	}

	second, err := runner.Execute(ctx, c, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run missed the layout cache")
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second run missed the artifact cache")
	}
	if string(first.Artifacts[FormatSVG]) != string(second.Artifacts[FormatSVG]) {
		t.Error("cached artifact differs from computed one")
	}
}

func TestNewRunnerDefaultTTLs(t *testing.T) {
	runner := NewRunner(nil, nil, quietLogger())
	defer runner.Close()

	if runner.LayoutTTL != cache.TTLLayout {
		t.Errorf("LayoutTTL = %v, want %v", runner.LayoutTTL, cache.TTLLayout)
	}
	if runner.ArtifactTTL != cache.TTLArtifact {
		t.Errorf("ArtifactTTL = %v, want %v", runner.ArtifactTTL, cache.TTLArtifact)
	}
}

func TestExecuteConfiguredTTLExpires(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()
	runner.LayoutTTL = time.Nanosecond
	runner.ArtifactTTL = time.Nanosecond

	if _, err := runner.Execute(ctx, c, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	second, err := runner.Execute(ctx, c, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if second.CacheInfo.LayoutHit {
		t.Error("layout entry outlived the configured TTL")
	}
	if second.CacheInfo.RenderHit {
		t.Error("artifact entry outlived the configured TTL")
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	if _, err := runner.Execute(ctx, c, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	refreshed, err := runner.Execute(ctx, c, Options{Refresh: true})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if refreshed.CacheInfo.LayoutHit || refreshed.CacheInfo.RenderHit {
		t.Error("Refresh run still hit the cache")
	}
}

func TestShapeHash(t *testing.T) {
	c := testConversation(t)

	a := ShapeHash(c)
	if a != ShapeHash(c) {
		t.Error("ShapeHash() not deterministic")
	}

	// Message edits leave the shape unchanged.
	root := c.Active()
	if _, err := c.AddMessage(root.ID, "more text"); err != nil {
		t.Fatal(err)
	}
	if ShapeHash(c) != a {
		t.Error("ShapeHash() changed on a message edit")
	}

	// Branch creation changes it.
	if _, err := c.CreateBranch(root.ID, "another"); err != nil {
		t.Fatal(err)
	}
	if ShapeHash(c) == a {
		t.Error("ShapeHash() unchanged after branch creation")
	}

	// Moving the canvas center changes it.
	before := ShapeHash(c)
	c.CanvasCenter.X += 100
	if ShapeHash(c) == before {
		t.Error("ShapeHash() unchanged after center move")
	}
}

func TestRenderCacheInvalidatesOnMessageEdit(t *testing.T) {
	ctx := context.Background()
	c := testConversation(t)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, quietLogger())
	defer runner.Close()

	if _, err := runner.Execute(ctx, c, Options{}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	root := c.Active()
	if _, err := c.AddMessage(root.ID, "new content"); err != nil {
		t.Fatal(err)
	}

	second, err := runner.Execute(ctx, c, Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("layout should still hit: shape is unchanged")
	}
	if second.CacheInfo.RenderHit {
		t.Error("render hit despite changed message content")
	}
}
