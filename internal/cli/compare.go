package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/typetools/ttxdiff/pkg/diff"
	"github.com/typetools/ttxdiff/pkg/pipeline"
)

// ErrDifferences is returned by compare when the run succeeds but the
// two outputs are not equivalent. main maps it to exit code 2 so CI can
// distinguish "differs" from "broken".
var ErrDifferences = stderrors.New("outputs differ")

// compareOpts holds the command-line flags for the compare command.
type compareOpts struct {
	rebuild         string        // which toolchains to rebuild: both, fontc, fontmake, none
	compareMode     string        // normalization profile: default, gftools
	toleranceBudget float64       // per-value numeric tolerance
	productionNames bool          // rename glyphs to production names
	keepOverlaps    bool          // preserve overlapping contours
	jsonOut         bool          // emit the JSON report instead of human output
	output          string        // write the JSON report to this file
	noCache         bool          // disable the build cache
	redisURL        string        // shared cache backend
	noHistory       bool          // do not record the run
	timeout         time.Duration // per-build timeout
	configPath      string        // TOML config file
}

// compareCommand creates the compare command.
//
// Defaults match what the toolchains agree on out of the box: production
// names on, overlaps kept, exact numeric comparison.
func (c *CLI) compareCommand() *cobra.Command {
	opts := compareOpts{
		rebuild:         string(pipeline.RebuildBoth),
		compareMode:     string(diff.ModeDefault),
		productionNames: true,
		keepOverlaps:    true,
	}

	cmd := &cobra.Command{
		Use:   "compare <source>",
		Short: "Build a font source with fontc and fontmake and diff the results",
		Long: `Build a font source with both toolchains, canonicalize each binary
into per-table text, and report table-by-table differences plus an
overall similarity score.

The source may be a .glyphs or .glyphspackage file, a .designspace, or
a .ufo directory.

Exit codes:
  0  outputs are equivalent
  2  outputs differ (or one toolchain failed)
  1  the comparison itself could not run

Examples:
  ttxdiff compare MyFont.glyphs
  ttxdiff compare --rebuild fontc MyFont.glyphs      # reuse cached fontmake build
  ttxdiff compare --compare gftools --json sources/MyFont.designspace
  ttxdiff compare --off-by-one-budget 1 MyFont.glyphs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompare(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.rebuild, "rebuild", opts.rebuild, "toolchains to rebuild: both, fontc, fontmake, none")
	cmd.Flags().StringVar(&opts.compareMode, "compare", opts.compareMode, "normalization profile: default, gftools")
	cmd.Flags().Float64Var(&opts.toleranceBudget, "off-by-one-budget", 0, "per-value tolerance for numeric tables")
	cmd.Flags().BoolVar(&opts.productionNames, "production-names", opts.productionNames, "rename glyphs to production names")
	cmd.Flags().BoolVar(&opts.keepOverlaps, "keep-overlaps", opts.keepOverlaps, "preserve overlapping contours")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit the report as JSON on stdout")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to a file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the build cache")
	cmd.Flags().StringVar(&opts.redisURL, "cache-redis", "", "redis URL for a shared build cache")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record this run in the history")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-build timeout (default 10m)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "TOML config file")

	return cmd
}

func (c *CLI) runCompare(cmd *cobra.Command, sourcePath string, opts compareOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	runner, cleanup, err := c.newRunner(ctx, runnerOpts{
		configPath: opts.configPath,
		noCache:    opts.noCache,
		redisURL:   opts.redisURL,
		timeout:    opts.timeout,
		noHistory:  opts.noHistory,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	pipelineOpts := pipeline.Options{
		Source:                 sourcePath,
		Rebuild:                pipeline.RebuildMode(opts.rebuild),
		CompareMode:            diff.Mode(opts.compareMode),
		ToleranceBudget:        opts.toleranceBudget,
		DisableProductionNames: !opts.productionNames,
		RemoveOverlaps:         !opts.keepOverlaps,
		Logger:                 logger,
	}

	var spinner *Spinner
	if !opts.jsonOut {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Comparing %s", sourcePath))
		spinner.Start()
	}

	track := newProgress(logger)
	comparison, err := runner.Execute(ctx, pipelineOpts)
	if spinner != nil {
		if err != nil {
			spinner.StopWithError(err.Error())
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		return err
	}
	track.done(fmt.Sprintf("Compared %d tables", len(comparison.Tables)))

	if opts.output != "" || opts.jsonOut {
		data, err := comparison.JSON()
		if err != nil {
			return err
		}
		if opts.output != "" {
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		if opts.jsonOut {
			fmt.Println(string(data))
		}
	}
	if !opts.jsonOut {
		renderComparison(comparison)
	}

	if !comparison.Identical() {
		return ErrDifferences
	}
	return nil
}
