// Package cli implements the ttxdiff command-line interface.
//
// This package provides commands for comparing the output of the fontc
// and fontmake compilers on a font source, inspecting past runs, managing
// the build cache, and serving the comparison pipeline over HTTP. The CLI
// is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - compare: Build a source with both toolchains and diff the results
//   - history: Inspect previously recorded comparison runs
//   - cache: Manage the build cache and artifact directory
//   - serve: Expose the pipeline as an HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context to allow structured progress
// tracking.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/typetools/ttxdiff/pkg/buildinfo"
	"github.com/typetools/ttxdiff/pkg/cache"
	"github.com/typetools/ttxdiff/pkg/canonical"
	"github.com/typetools/ttxdiff/pkg/config"
	"github.com/typetools/ttxdiff/pkg/pipeline"
	"github.com/typetools/ttxdiff/pkg/report"
	"github.com/typetools/ttxdiff/pkg/toolchain"
)

// appName is the application name used for directories and display.
const appName = "ttxdiff"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "ttxdiff compares fontc and fontmake output for a font source",
		Long:          `ttxdiff builds a font source with two compilers, converts each binary into canonical per-table text, and reports where the outputs differ and how similar they are.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	}

	// Register all subcommands
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOpts are the shared flags that shape a pipeline runner.
type runnerOpts struct {
	configPath string
	noCache    bool
	redisURL   string
	timeout    time.Duration
	noHistory  bool
}

// newRunner assembles a pipeline runner from flags and configuration.
// The returned cleanup releases the cache and history store.
func (c *CLI) newRunner(ctx context.Context, opts runnerOpts) (*pipeline.Runner, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	buildCache, err := newCache(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	store, err := newStore(cfg, opts)
	if err != nil {
		buildCache.Close()
		return nil, nil, err
	}

	runner := pipeline.NewRunner(buildCache, nil, c.Logger)
	runner.Toolchains = newToolchains(cfg, opts.timeout)
	runner.Canon = newCanonicalizer(cfg)
	runner.Store = store
	runner.NumericTables = numericTables(cfg)
	if dir, err := cacheDir(); err == nil {
		runner.ArtifactRoot = filepath.Join(dir, "builds")
	}

	cleanup := func() {
		_ = buildCache.Close()
		_ = store.Close()
	}
	return runner, cleanup, nil
}

func newToolchains(cfg *config.Config, timeout time.Duration) []toolchain.Toolchain {
	if timeout <= 0 {
		timeout = cfg.BuildTimeout.Duration
	}
	if timeout <= 0 {
		timeout = toolchain.DefaultTimeout
	}
	return []toolchain.Toolchain{
		&toolchain.Fontc{Path: cfg.Fontc.Path, Timeout: timeout, ExtraArgs: cfg.Fontc.Args},
		&toolchain.Fontmake{Path: cfg.Fontmake.Path, Timeout: timeout, ExtraArgs: cfg.Fontmake.Args},
	}
}

func newCanonicalizer(cfg *config.Config) *canonical.Canonicalizer {
	canon := canonical.New()
	canon.TTXPath = cfg.TTX.Path
	canon.NormalizerPath = cfg.Normalizer.Path
	if cfg.DumpTimeout.Duration > 0 {
		canon.Timeout = cfg.DumpTimeout.Duration
	}
	for _, rule := range cfg.Strip {
		// Patterns are validated by config.Load.
		canon.StripRules = append(canon.StripRules, canonical.StripRule{
			Table:   canonical.Tag(rule.Table),
			Pattern: regexp.MustCompile(rule.Pattern),
			Replace: rule.Replace,
		})
	}
	return canon
}

func numericTables(cfg *config.Config) map[canonical.Tag]bool {
	if len(cfg.Compare.NumericTables) == 0 {
		return nil
	}
	tables := make(map[canonical.Tag]bool, len(cfg.Compare.NumericTables))
	for _, tag := range cfg.Compare.NumericTables {
		tables[canonical.Tag(tag)] = true
	}
	return tables
}

func newCache(ctx context.Context, opts runnerOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisURL != "" {
		return cache.NewRedisCache(ctx, opts.redisURL)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "entries"))
}

func newStore(cfg *config.Config, opts runnerOpts) (report.Store, error) {
	if opts.noHistory {
		return report.NewNullStore(), nil
	}
	path := cfg.History.Path
	if path == "" {
		var err error
		if path, err = historyPath(); err != nil {
			return report.NewNullStore(), nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return report.NewNullStore(), nil
	}
	return report.NewSQLiteStore(path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/ttxdiff/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// historyPath returns the run history database path
// (~/.local/share/ttxdiff/history.db, honoring XDG_DATA_HOME).
func historyPath() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "history.db"), nil
}
