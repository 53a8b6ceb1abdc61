// Package config loads optional TOML configuration for tool locations
// and comparison policy. Every field has a working default so the zero
// configuration file is valid, and a missing file is not an error.
package config

import (
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/typetools/ttxdiff/pkg/errors"
)

// ToolConfig locates one external executable and its extra arguments.
type ToolConfig struct {
	// Path is the executable name or absolute path. Names are resolved
	// through PATH at invocation time.
	Path string `toml:"path"`

	// Args are appended to every invocation, after the generated flags.
	Args []string `toml:"args"`
}

// CompareConfig holds comparison policy overrides.
type CompareConfig struct {
	// NumericTables lists table tags eligible for the numeric tolerance
	// policy. Empty means the built-in default set.
	NumericTables []string `toml:"numeric_tables"`

	// ToleranceBudget is the default per-value numeric tolerance.
	ToleranceBudget float64 `toml:"tolerance_budget"`
}

// StripRuleConfig adds one noise-stripping rule on top of the built-in
// profile. Pattern is a Go regular expression applied per table block.
type StripRuleConfig struct {
	// Table scopes the rule to one table tag. Empty applies everywhere.
	Table string `toml:"table"`

	Pattern string `toml:"pattern"`
	Replace string `toml:"replace"`
}

// HistoryConfig controls the persistent run history.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `toml:"path"`
}

// Config is the full file layout.
type Config struct {
	Fontc      ToolConfig    `toml:"fontc"`
	Fontmake   ToolConfig    `toml:"fontmake"`
	TTX        ToolConfig    `toml:"ttx"`
	Normalizer ToolConfig    `toml:"normalizer"`
	Compare    CompareConfig `toml:"compare"`
	History    HistoryConfig `toml:"history"`

	// Strip rules are appended to the built-in noise profile.
	Strip []StripRuleConfig `toml:"strip"`

	// BuildTimeout bounds each compiler invocation.
	BuildTimeout duration `toml:"build_timeout"`

	// DumpTimeout bounds each dump or normalize invocation.
	DumpTimeout duration `toml:"dump_timeout"`
}

// duration is a TOML-friendly wrapper accepting strings like "10m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Fontc:      ToolConfig{Path: "fontc"},
		Fontmake:   ToolConfig{Path: "fontmake"},
		TTX:        ToolConfig{Path: "ttx"},
		Normalizer: ToolConfig{Path: "otl-normalizer"},
	}
}

// Load reads a TOML file over the defaults. A missing file returns the
// defaults unchanged; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOption, err, "parse config file %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Compare.ToleranceBudget < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "tolerance_budget must be non-negative")
	}
	if c.BuildTimeout.Duration < 0 || c.DumpTimeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidOption, "timeouts must be non-negative")
	}
	for _, name := range []string{c.Fontc.Path, c.Fontmake.Path, c.TTX.Path, c.Normalizer.Path} {
		if name == "" {
			return errors.New(errors.ErrCodeInvalidOption, "tool path must not be empty")
		}
	}
	for _, rule := range c.Strip {
		if rule.Pattern == "" {
			return errors.New(errors.ErrCodeInvalidOption, "strip rule needs a pattern")
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOption, err, "invalid strip pattern %q", rule.Pattern)
		}
	}
	return nil
}
