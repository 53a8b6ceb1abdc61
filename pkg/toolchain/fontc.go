package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/source"
)

// Fontc runs the fontc compiler.
type Fontc struct {
	// Path is the executable name or path. Defaults to "fontc".
	Path string

	// Timeout bounds a single build. Defaults to DefaultTimeout.
	Timeout time.Duration

	// ExtraArgs are appended verbatim to every invocation.
	ExtraArgs []string
}

// NewFontc creates a fontc toolchain with defaults.
func NewFontc() *Fontc {
	return &Fontc{Path: "fontc", Timeout: DefaultTimeout}
}

// Name returns "fontc".
func (f *Fontc) Name() string { return "fontc" }

// Build compiles project with fontc into outDir/fontc.ttf.
func (f *Fontc) Build(ctx context.Context, project *source.Project, outDir string, opts Options) (BuildArtifact, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return BuildArtifact{}, errors.Wrap(errors.ErrCodeBuildError, err, "create output dir")
	}
	out := filepath.Join(outDir, "fontc.ttf")

	args := []string{"--build-dir", outDir, "-o", out}
	if !opts.ProductionNames {
		args = append(args, "--no-production-names")
	}
	if opts.KeepOverlaps {
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
			"fontc exited successfully but produced no binary at %s", out)
	}

	return BuildArtifact{Toolchain: f.Name(), FontPath: out, Duration: elapsed}, nil
}

// Ensure Fontc implements Toolchain.
var _ Toolchain = (*Fontc)(nil)
