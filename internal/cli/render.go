package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/pipeline"
	"github.com/canopyview/canopy/pkg/render"
)

// renderCommand creates the render command for generating artifacts.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output   string
		formats  string
		noCache  bool
		refresh  bool
		graphviz bool
	)
	opts := pipeline.Options{ShowEdges: true, ShowSummaries: true}

	cmd := &cobra.Command{
		Use:   "render [conversation.json]",
		Short: "Render a conversation canvas to SVG, DOT, or JSON",
		Long: `Render a conversation canvas to one or more output formats.

The render command runs the full layout → render pipeline: it computes block
positions, draws message blocks with curved connectors, and writes one file
per requested format next to the input (or under --output).

Formats:
  svg   native canvas rendering with Bézier connectors
  dot   Graphviz source for the branch tree structure
  json  the layout document (positions, levels, dangling branches)

With --graphviz the dot output is additionally rendered to <name>.tree.svg
through the Graphviz engine, giving a structural view with automatic
hierarchical layout.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = c.parseFormats(formats)
			opts.Refresh = refresh
			return c.runRender(cmd.Context(), args[0], opts, output, noCache, graphviz)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: alongside input)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "comma-separated formats: svg, dot, json")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVar(&opts.ShowEdges, "edges", opts.ShowEdges, "draw parent-child connectors (svg)")
	cmd.Flags().BoolVar(&opts.ShowSummaries, "summaries", opts.ShowSummaries, "print branch summaries inside blocks (svg)")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "message id to mark with the accent stroke (svg)")
	cmd.Flags().BoolVar(&graphviz, "graphviz", false, "also render the dot output through Graphviz")

	return cmd
}

// runRender executes the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache, graphviz bool) error {
	conv, err := chat.ReadConversationFile(input)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	if graphviz && !hasFormat(opts.Formats, pipeline.FormatDOT) {
		opts.Formats = append(opts.Formats, pipeline.FormatDOT)
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()

	result, err := runner.Execute(ctx, conv, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, derr := range result.Layout.DanglingErrors() {
		printWarning("%s", derr)
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	if output != "" {
		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("create output dir %s: %w", output, err)
		}
		base = filepath.Join(output, filepath.Base(base))
	}

	printSuccess("Render complete")
	for _, format := range opts.Formats {
		path := base + "." + format
		if err := os.WriteFile(path, result.Artifacts[format], 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	if graphviz {
		svg, err := render.RenderDOTSVG(ctx, string(result.Artifacts[pipeline.FormatDOT]))
		if err != nil {
			return fmt.Errorf("graphviz render: %w", err)
		}
		path := base + ".tree.svg"
		if err := os.WriteFile(path, svg, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	printStats(result.Stats.BranchCount, result.Stats.DanglingCount, result.CacheInfo.RenderHit)
	prog.done(fmt.Sprintf("Rendered %d formats", len(opts.Formats)))

	return nil
}

func hasFormat(formats []string, want string) bool {
	for _, f := range formats {
		if f == want {
			return true
		}
	}
	return false
}
