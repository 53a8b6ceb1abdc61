// Package canonical converts binary font artifacts into deterministic,
// diff-friendly text, one block per font table.
//
// The heavy lifting is delegated to two external tools:
//
//   - ttx, the table dumper, renders every table as stable XML
//   - otl-normalizer renders OpenType layout tables (GSUB/GPOS/GDEF) in
//     an ordering-independent form, because raw layout dumps are
//     sensitive to internal subtable ordering that carries no meaning
//
// After dumping, an enumerated strip-list removes build-environment
// noise (timestamps, checksums, tool versions, source paths) so that
// two equivalent builds canonicalize to byte-identical text.
package canonical

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/toolchain"
)

// DefaultTimeout bounds a single dumper or normalizer invocation.
const DefaultTimeout = 5 * time.Minute

// DefaultLayoutTables are the tables rendered by the layout normalizer
// instead of the raw dumper.
func DefaultLayoutTables() map[Tag]bool {
	return map[Tag]bool{"GSUB": true, "GPOS": true, "GDEF": true}
}

// Canonicalizer converts a built font binary into a TableSet.
// The zero value is not usable; construct with New.
type Canonicalizer struct {
	// TTXPath is the table dumper executable. Defaults to "ttx".
	TTXPath string

	// NormalizerPath is the layout normalizer executable.
	// Defaults to "otl-normalizer".
	NormalizerPath string

	// Timeout bounds each external tool invocation.
	Timeout time.Duration

	// LayoutTables are rendered via the normalizer when present.
	LayoutTables map[Tag]bool

	// StripRules is the noise profile applied to every block.
	StripRules []StripRule

	// runTool is swapped in tests to avoid spawning real processes.
	runTool func(ctx context.Context, timeout time.Duration, name string, args ...string) error
}

// New creates a Canonicalizer with the default tool paths, layout table
// set and strip-list.
func New() *Canonicalizer {
	c := &Canonicalizer{
		TTXPath:        "ttx",
		NormalizerPath: "otl-normalizer",
		Timeout:        DefaultTimeout,
		LayoutTables:   DefaultLayoutTables(),
		StripRules:     DefaultStripRules(),
	}
	c.runTool = c.execTool
	return c
}

// Canonicalize converts artifact into its canonical table set.
// Given the same binary it produces byte-identical output on every
// invocation: block order comes from the table directory, layout tables
// from the normalizer's canonical form, and the strip-list is fixed.
func (c *Canonicalizer) Canonicalize(ctx context.Context, artifact toolchain.BuildArtifact) (*TableSet, error) {
	workDir, err := os.MkdirTemp("", "ttxdiff-dump-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDumpError, err, "create dump dir")
	}
	defer os.RemoveAll(workDir)

	dumpPath := filepath.Join(workDir, artifact.Toolchain+".ttx")
	if err := c.runTool(ctx, c.Timeout, c.TTXPath, "-q", "-o", dumpPath, artifact.FontPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(dumpPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDumpError, err, "read table dump for %s", artifact.Toolchain)
	}

	set, err := splitTTX(data)
	if err != nil {
		return nil, err
	}

	if err := c.normalizeLayout(ctx, artifact, workDir, set); err != nil {
		return nil, err
	}

	for _, tag := range set.Tags() {
		text, _ := set.Get(tag)
		set.Replace(tag, applyStripRules(tag, text, c.StripRules))
	}
	return set, nil
}

// normalizeLayout replaces raw layout table dumps with the normalizer's
// ordering-independent rendering. Tables are processed in set order so
// the result is deterministic.
func (c *Canonicalizer) normalizeLayout(ctx context.Context, artifact toolchain.BuildArtifact, workDir string, set *TableSet) error {
	for _, tag := range set.Tags() {
		if !c.LayoutTables[tag] {
			continue
		}
		outPath := filepath.Join(workDir, artifact.Toolchain+"."+strings.ToLower(string(tag))+".norm")
		args := []string{artifact.FontPath, "-o", outPath, "--table", strings.ToLower(string(tag))}
		if err := c.runTool(ctx, c.Timeout, c.NormalizerPath, args...); err != nil {
			return err
		}
		text, err := os.ReadFile(outPath)
		if err != nil {
			return errors.Wrap(errors.ErrCodeDumpError, err, "read normalized %s", tag)
		}
		set.Replace(tag, string(text))
	}
	return nil
}

// execTool runs an external dumper/normalizer process. Failures are
// DUMP_ERROR (the binary could not be processed) except for a missing
// executable, which is an environment problem and reported as such.
func (c *Canonicalizer) execTool(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return errors.New(errors.ErrCodeBinaryNotFound,
			"could not find %q on PATH; is it installed?", name)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > 4096 {
			tail = "..." + tail[len(tail)-4096:]
		}
		return errors.Wrap(errors.ErrCodeDumpError, err, "%s failed:\n%s", name, tail)
	}
	return nil
}
