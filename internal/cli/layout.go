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

// layoutCommand creates the layout command for computing canvas positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [conversation.json]",
		Short: "Compute canvas positions for a conversation tree",
		Long: `Compute canvas positions for a conversation tree.

The layout command takes a conversation file and computes a block position
for every branch reachable from the root. The output is a layout.json file
(same format as 'render -f json') listing each block's position, level, and
active flag, plus any branches skipped for dangling parent links.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")

	return cmd
}

// runLayout loads the conversation, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, noCache, refresh bool) error {
	conv, err := chat.ReadConversationFile(input)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := pipeline.Options{Refresh: refresh, Logger: c.Logger}

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	res, cacheHit, err := runner.ComputeLayoutWithCacheInfo(ctx, conv, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, derr := range res.DanglingErrors() {
		printWarning("%s", derr)
	}

	data, err := render.MarshalLayout(conv, res)
	if err != nil {
		return fmt.Errorf("serialize layout: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(res.Positions), len(res.Dangling), cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+input)

	return nil
}
