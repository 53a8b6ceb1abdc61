// Package toolchain runs the font compilers under comparison.
//
// Each compiler is modeled as a Toolchain: an opaque external process
// that accepts a source path plus build flags and emits a binary font,
// or fails. The two concrete toolchains are fontc and fontmake. The
// pipeline never constructs compiler arguments itself; each Toolchain
// owns the translation from BuildOptions to its own flag vocabulary and
// rejects option combinations it cannot express.
package toolchain

import (
	"context"
	"time"

	"github.com/typetools/ttxdiff/pkg/source"
)

// DefaultTimeout bounds a single compiler invocation. Font builds that
// run longer than this are almost always hung, not slow.
const DefaultTimeout = 10 * time.Minute

// Options are the build options both toolchains understand.
// Defaults (production names on, overlaps kept) match the comparison
// pipeline's defaults; see pipeline.Options.
type Options struct {
	// ProductionNames controls whether glyphs are renamed to production
	// (uniXXXX-style) names in the output.
	ProductionNames bool

	// KeepOverlaps controls whether overlapping contours are preserved
	// rather than removed during compilation.
	KeepOverlaps bool
}

// BuildArtifact describes a successfully built font binary.
// It is produced by exactly one Toolchain and consumed read-only.
type BuildArtifact struct {
	// Toolchain is the name of the toolchain that produced the binary.
	Toolchain string `json:"toolchain"`

	// FontPath is the absolute path of the binary font file.
	FontPath string `json:"font_path"`

	// Duration is how long the build took. Zero for cached artifacts.
	Duration time.Duration `json:"duration"`

	// Cached is true when the artifact was reused from the build cache.
	Cached bool `json:"cached"`
}

// Toolchain is an external font compiler.
type Toolchain interface {
	// Name returns the toolchain identifier ("fontc", "fontmake").
	// Names appear in cache keys, artifact paths and reports.
	Name() string

	// Build compiles project into outDir and returns the artifact.
	// The output file name must be unique to this toolchain so two
	// toolchains' artifacts never collide. Failures are classified as
	// BINARY_NOT_FOUND, BUILD_ERROR or TIMEOUT.
	Build(ctx context.Context, project *source.Project, outDir string, opts Options) (BuildArtifact, error)
}
