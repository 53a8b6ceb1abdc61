package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/source"
)

func glyphsProject(t *testing.T) *source.Project {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Font.glyphs")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := source.Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFontcMissingBinary(t *testing.T) {
	fc := NewFontc()
	fc.Path = "fontc-that-does-not-exist"

	_, err := fc.Build(context.Background(), glyphsProject(t), t.TempDir(), Options{KeepOverlaps: true})
	if !errors.Is(err, errors.ErrCodeBinaryNotFound) {
		t.Fatalf("error code = %q, want BINARY_NOT_FOUND", errors.GetCode(err))
	}
}

// Fake compiler: a shell script standing in for fontc, so the option
// translation and output handling can be exercised without the real
// toolchain installed.
func fakeCompiler(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-compiler")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFontcBuildProducesArtifact(t *testing.T) {
	outDir := t.TempDir()
	// Writes the file named by the -o flag.
	fc := NewFontc()
	fc.Path = fakeCompiler(t, `
while [ $# -gt 1 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
printf 'ttf' > "$out"
`)

	art, err := fc.Build(context.Background(), glyphsProject(t), outDir, Options{ProductionNames: true, KeepOverlaps: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if art.Toolchain != "fontc" {
		t.Errorf("Toolchain = %q, want fontc", art.Toolchain)
	}
	if art.FontPath != filepath.Join(outDir, "fontc.ttf") {
		t.Errorf("FontPath = %q, want fontc.ttf under outDir", art.FontPath)
	}
	if _, err := os.Stat(art.FontPath); err != nil {
		t.Errorf("artifact file should exist: %v", err)
	}
	if art.Cached {
		t.Error("fresh build should not be marked cached")
	}
}

func TestFontcMissingOutputIsBuildError(t *testing.T) {
	fc := NewFontc()
	fc.Path = fakeCompiler(t, "exit 0") // succeeds but writes nothing

	_, err := fc.Build(context.Background(), glyphsProject(t), t.TempDir(), Options{KeepOverlaps: true})
	if !errors.Is(err, errors.ErrCodeBuildError) {
		t.Fatalf("error code = %q, want BUILD_ERROR", errors.GetCode(err))
	}
}

func TestFontmakeRejectsOverlapRemovalForVariable(t *testing.T) {
	fm := NewFontmake()
	fm.Path = fakeCompiler(t, "exit 0")

	_, err := fm.Build(context.Background(), glyphsProject(t), t.TempDir(), Options{KeepOverlaps: false})
	if !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Fatalf("error code = %q, want INVALID_OPTION", errors.GetCode(err))
	}
	// Fail fast: the compiler must not have been invoked. An invoked fake
	// would have exited 0 and tripped the missing-output check instead.
}

func TestArtifactPathsDoNotCollide(t *testing.T) {
	outDir := t.TempDir()
	// --output-path (fontmake) is scanned after -o (fontc), so whichever
	// flag names the real path wins.
	script := `
while [ $# -gt 1 ]; do
  if [ "$1" = "--output-path" ] || [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
printf 'ttf' > "$out"
`
	fc := NewFontc()
	fc.Path = fakeCompiler(t, script)
	fm := NewFontmake()
	fm.Path = fakeCompiler(t, script)

	prj := glyphsProject(t)
	a, err := fc.Build(context.Background(), prj, outDir, Options{KeepOverlaps: true})
	if err != nil {
		t.Fatal(err)
	}
	b, err := fm.Build(context.Background(), prj, outDir, Options{KeepOverlaps: true})
	if err != nil {
		t.Fatal(err)
	}
	if a.FontPath == b.FontPath {
		t.Errorf("both toolchains wrote %s; artifacts must not collide", a.FontPath)
	}
}
