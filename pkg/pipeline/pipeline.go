// Package pipeline provides the core comparison pipeline for ttxdiff.
//
// This package implements the complete build → canonicalize → diff pipeline
// that can be used by CLI, API, and CI components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: compile the source with each toolchain (fontc, fontmake)
//  2. Canonicalize: dump each binary to deterministic per-table text
//  3. Diff: compare the two table sets and score their similarity
//
// Builds run concurrently, one per toolchain. A failure in one toolchain is
// recorded in the report rather than aborting the run; the comparison then
// degrades to a one-sided listing of the surviving tables.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:  "MyFont.glyphs",
//	    Rebuild: pipeline.RebuildBoth,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("similarity: %.4f\n", result.Score)
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/typetools/ttxdiff/pkg/diff"
	"github.com/typetools/ttxdiff/pkg/errors"
)

// RebuildMode selects which toolchains are forced to rebuild rather than
// reuse a cached artifact.
type RebuildMode string

// Rebuild modes.
const (
	// RebuildBoth rebuilds with both toolchains, ignoring the cache.
	RebuildBoth RebuildMode = "both"

	// RebuildFontc rebuilds with fontc only; fontmake may use the cache.
	RebuildFontc RebuildMode = "fontc"

	// RebuildFontmake rebuilds with fontmake only; fontc may use the cache.
	RebuildFontmake RebuildMode = "fontmake"

	// RebuildNone reuses cached artifacts for both sides. A cache miss is
	// an error rather than a silent rebuild.
	RebuildNone RebuildMode = "none"
)

// ParseRebuildMode validates a rebuild mode string. Empty means RebuildBoth.
func ParseRebuildMode(s string) (RebuildMode, error) {
	switch RebuildMode(s) {
	case RebuildBoth, RebuildFontc, RebuildFontmake, RebuildNone:
		return RebuildMode(s), nil
	case "":
		return RebuildBoth, nil
	}
	return "", errors.New(errors.ErrCodeInvalidOption,
		"invalid rebuild mode %q (must be one of: both, fontc, fontmake, none)", s)
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one comparison run.
// This struct supports JSON serialization for API requests. Boolean
// fields are phrased so the zero value is the pipeline default:
// production names on, overlaps kept.
type Options struct {
	// Source is the font source path (.glyphs, .glyphspackage, .ufo,
	// .designspace).
	Source string `json:"source"`

	// Rebuild selects which sides are forced to rebuild. Empty means both.
	Rebuild RebuildMode `json:"rebuild,omitempty"`

	// CompareMode selects the normalization profile. Empty means default.
	CompareMode diff.Mode `json:"compare_mode,omitempty"`

	// ToleranceBudget is the per-value numeric tolerance for tables of
	// rounded coordinates. Zero means exact comparison.
	ToleranceBudget float64 `json:"tolerance_budget,omitempty"`

	// DisableProductionNames turns off production glyph renaming in both
	// builds.
	DisableProductionNames bool `json:"disable_production_names,omitempty"`

	// RemoveOverlaps removes overlapping contours during compilation.
	// Not every toolchain supports this for every output; unsupported
	// combinations fail the build before any process is spawned.
	RemoveOverlaps bool `json:"remove_overlaps,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidOption, "source is required")
	}

	rebuild, err := ParseRebuildMode(string(o.Rebuild))
	if err != nil {
		return err
	}
	o.Rebuild = rebuild

	mode, err := diff.ParseMode(string(o.CompareMode))
	if err != nil {
		return err
	}
	o.CompareMode = mode

	if err := errors.ValidateToleranceBudget(o.ToleranceBudget); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}
