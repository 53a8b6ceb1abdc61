package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/source"
)

// Fontmake runs the fontmake compiler.
type Fontmake struct {
	// Path is the executable name or path. Defaults to "fontmake".
	Path string

	// Timeout bounds a single build. Defaults to DefaultTimeout.
	Timeout time.Duration

	// ExtraArgs are appended verbatim to every invocation.
	ExtraArgs []string
}

// NewFontmake creates a fontmake toolchain with defaults.
func NewFontmake() *Fontmake {
	return &Fontmake{Path: "fontmake", Timeout: DefaultTimeout}
}

// Name returns "fontmake".
func (f *Fontmake) Name() string { return "fontmake" }

// Build compiles project with fontmake into outDir/fontmake.ttf.
//
// Multi-master sources (glyphs, designspace) build a variable font;
// a single UFO builds a static TTF. Variable builds always preserve
// overlaps, so requesting overlap removal for them is an unsupported
// combination and fails fast rather than being silently ignored.
func (f *Fontmake) Build(ctx context.Context, project *source.Project, outDir string, opts Options) (BuildArtifact, error) {
	kind := "variable"
	if project.Format() == source.FormatUFO {
		kind = "ttf"
	}

	if kind == "variable" && !opts.KeepOverlaps {
		return BuildArtifact{}, errors.New(errors.ErrCodeInvalidOption,
			"fontmake cannot remove overlaps in variable builds; drop --no-keep-overlaps or build from a single UFO")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return BuildArtifact{}, errors.Wrap(errors.ErrCodeBuildError, err, "create output dir")
	}
	out := filepath.Join(outDir, "fontmake.ttf")

	args := []string{"-o", kind, "--output-path", out}
	if !opts.ProductionNames {
		args = append(args, "--no-production-names")
	}
	if kind == "ttf" && opts.KeepOverlaps {
		args = append(args, "--keep-overlaps")
	}
	args = append(args, f.ExtraArgs...)
	args = append(args, project.Path())

	elapsed, err := runCommand(ctx, f.Timeout, f.Path, args...)
	if err != nil {
		return BuildArtifact{}, err
	}

	if _, err := os.Stat(out); err != nil {
		return BuildArtifact{}, errors.New(errors.ErrCodeBuildError,
			"fontmake exited successfully but produced no binary at %s", out)
	}

	return BuildArtifact{Toolchain: f.Name(), FontPath: out, Duration: elapsed}, nil
}

// Ensure Fontmake implements Toolchain.
var _ Toolchain = (*Fontmake)(nil)
