package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
)

// maxDiagnosticBytes caps how much captured stderr is attached to a
// build failure. Compiler output can run to megabytes; the tail is
// where the actual error lives.
const maxDiagnosticBytes = 8 * 1024

// runCommand executes an external tool with a bounded timeout and
// classifies failures per the pipeline's error taxonomy:
//
//   - BINARY_NOT_FOUND: the executable is not on PATH (an environment
//     problem, not a build regression)
//   - TIMEOUT: the deadline elapsed; the process has been killed
//   - BUILD_ERROR: nonzero exit, with the stderr tail attached
//
// Cancelling ctx kills the child process, so an interrupted run never
// leaves orphaned compilers behind.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (time.Duration, error) {
	if _, err := exec.LookPath(name); err != nil {
		return 0, errors.New(errors.ErrCodeBinaryNotFound,
			"could not find %q on PATH; is it installed?", name)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		return elapsed, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return elapsed, errors.New(errors.ErrCodeTimeout,
			"%s timed out after %s", name, timeout)
	}
	if ctx.Err() != nil {
		// User-level cancellation, not a toolchain failure.
		return elapsed, ctx.Err()
	}

	return elapsed, errors.Wrap(errors.ErrCodeBuildError, err,
		"%s %s failed:\n%s", name, strings.Join(args, " "), diagnosticTail(&stderr, &stdout))
}

// diagnosticTail returns the tail of captured output for attachment to
// a build failure, preferring stderr.
func diagnosticTail(stderr, stdout *bytes.Buffer) string {
	out := stderr.String()
	if strings.TrimSpace(out) == "" {
		out = stdout.String()
	}
	out = strings.TrimRight(out, "\n")
	if len(out) > maxDiagnosticBytes {
		out = "..." + out[len(out)-maxDiagnosticBytes:]
	}
	return out
}
