package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fontc.Path != "fontc" || cfg.TTX.Path != "ttx" {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
build_timeout = "2m"

[fontc]
path = "/opt/fontc/bin/fontc"
args = ["--flatten-components"]

[compare]
numeric_tables = ["glyf"]
tolerance_budget = 1.5

[history]
path = "/var/lib/ttxdiff/runs.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fontc.Path != "/opt/fontc/bin/fontc" {
		t.Errorf("fontc path = %q", cfg.Fontc.Path)
	}
	if len(cfg.Fontc.Args) != 1 || cfg.Fontc.Args[0] != "--flatten-components" {
		t.Errorf("fontc args = %v", cfg.Fontc.Args)
	}
	if cfg.BuildTimeout.Duration != 2*time.Minute {
		t.Errorf("build timeout = %v", cfg.BuildTimeout.Duration)
	}
	if cfg.Compare.ToleranceBudget != 1.5 {
		t.Errorf("tolerance budget = %v", cfg.Compare.ToleranceBudget)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Fontmake.Path != "fontmake" {
		t.Errorf("fontmake path = %q", cfg.Fontmake.Path)
	}
	if cfg.History.Path != "/var/lib/ttxdiff/runs.db" {
		t.Errorf("history path = %q", cfg.History.Path)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("fontc = {"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Errorf("malformed file error = %v, want INVALID_OPTION", err)
	}
}

func TestLoadRejectsNegativeBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[compare]\ntolerance_budget = -1.0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Errorf("negative budget error = %v, want INVALID_OPTION", err)
	}
}

func TestLoadStripRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[[strip]]
table = "name"
pattern = "buildserver-[0-9]+"
replace = "buildserver"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Strip) != 1 || cfg.Strip[0].Table != "name" {
		t.Errorf("strip rules = %+v", cfg.Strip)
	}
}

func TestLoadRejectsBadStripPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[[strip]]\npattern = \"([\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Errorf("bad pattern error = %v, want INVALID_OPTION", err)
	}
}

func TestLoadRejectsEmptyToolPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[ttx]\npath = \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// An explicit empty path clears the default; reject it.
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Errorf("empty tool path error = %v, want INVALID_OPTION", err)
	}
}
