package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/typetools/ttxdiff/pkg/cache"
	"github.com/typetools/ttxdiff/pkg/canonical"
	"github.com/typetools/ttxdiff/pkg/diff"
	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/observability"
	"github.com/typetools/ttxdiff/pkg/report"
	"github.com/typetools/ttxdiff/pkg/source"
	"github.com/typetools/ttxdiff/pkg/toolchain"
)

// Canonicalizer converts a built binary into its canonical table set.
// Satisfied by *canonical.Canonicalizer; tests substitute fakes.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, artifact toolchain.BuildArtifact) (*canonical.TableSet, error)
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't store
// run results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache cache.Cache
	Keyer cache.Keyer

	// Toolchains are the two sides of the comparison, in report order.
	Toolchains []toolchain.Toolchain

	// Canon converts binaries to canonical text.
	Canon Canonicalizer

	// Store receives finished reports. Append failures are logged, never
	// fatal.
	Store report.Store

	// ArtifactRoot is where built binaries land. Must be stable across
	// runs for cache reuse. Defaults to a per-process temp directory.
	ArtifactRoot string

	// NumericTables overrides the tables compared under the tolerance
	// policy. Nil means the built-in default set.
	NumericTables map[canonical.Tag]bool

	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// Toolchains default to fontc and fontmake resolved from PATH.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Toolchains: []toolchain.Toolchain{toolchain.NewFontc(), toolchain.NewFontmake()},
		Canon:      canonical.New(),
		Store:      report.NewNullStore(),
		Logger:     logger,
	}
}

// sideResult is one toolchain's outcome: a canonical table set, or the
// build/dump failure that prevented one.
type sideResult struct {
	artifact toolchain.BuildArtifact
	set      *canonical.TableSet
	err      error
}

// Execute runs the complete build → canonicalize → diff pipeline.
//
// Per-toolchain build and dump failures are recorded in the report; the
// run only fails outright when the source cannot be resolved, the
// options are invalid, both sides fail, or the context is canceled.
func (r *Runner) Execute(ctx context.Context, opts Options) (*report.Comparison, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	// Source resolution happens before any process is spawned so a bad
	// path fails fast with a single clear error.
	project, err := source.Resolve(opts.Source)
	if err != nil {
		return nil, err
	}
	logger.Info("resolved source",
		"path", project.Path(),
		"format", project.Format(),
		"fingerprint", project.Fingerprint()[:12])

	if len(r.Toolchains) != 2 {
		return nil, errors.New(errors.ErrCodeInternal,
			"comparison needs exactly 2 toolchains, have %d", len(r.Toolchains))
	}
	for _, tc := range r.Toolchains {
		// Names become cache key components and artifact directories.
		if err := errors.ValidateToolchainName(tc.Name()); err != nil {
			return nil, err
		}
	}

	artifactRoot, err := r.artifactRoot()
	if err != nil {
		return nil, err
	}

	// Stage 1+2: build and canonicalize, one goroutine per toolchain.
	results := make([]sideResult, len(r.Toolchains))
	var wg sync.WaitGroup
	for i, tc := range r.Toolchains {
		wg.Add(1)
		go func(i int, tc toolchain.Toolchain) {
			defer wg.Done()
			results[i] = r.buildSide(ctx, project, tc, artifactRoot, opts)
		}(i, tc)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	comparison := &report.Comparison{
		RunID:           uuid.NewString(),
		Source:          project.Path(),
		SourceFormat:    project.Format(),
		CompareMode:     string(opts.CompareMode),
		ToleranceBudget: opts.ToleranceBudget,
		CreatedAt:       time.Now().UTC(),
	}

	failed := 0
	for i, tc := range r.Toolchains {
		comparison.Toolchains = append(comparison.Toolchains, tc.Name())
		res := results[i]
		if res.err != nil {
			if !errors.IsBuildFailure(res.err) && !errors.Is(res.err, errors.ErrCodeCacheMissDisallowed) {
				return nil, res.err
			}
			failed++
			comparison.Failures = append(comparison.Failures, report.BuildFailure{
				Toolchain: tc.Name(),
				Code:      string(errors.GetCode(res.err)),
				Message:   res.err.Error(),
			})
			logger.Error("toolchain failed", "toolchain", tc.Name(), "err", res.err)
			continue
		}
		comparison.Builds = append(comparison.Builds, report.BuildStat{
			Toolchain: tc.Name(),
			Duration:  res.artifact.Duration,
			Cached:    res.artifact.Cached,
		})
	}

	if failed == len(r.Toolchains) {
		msgs := make([]string, 0, len(comparison.Failures))
		for _, f := range comparison.Failures {
			msgs = append(msgs, f.Toolchain+": "+f.Message)
		}
		return nil, errors.New(errors.ErrCodeBuildError,
			"all toolchains failed: %s", strings.Join(msgs, "; "))
	}

	// Stage 3: diff. A failed side contributes an empty table set, so
	// every surviving table is reported as one-sided.
	setA, setB := results[0].set, results[1].set
	if setA == nil {
		setA = canonical.NewTableSet()
	}
	if setB == nil {
		setB = canonical.NewTableSet()
	}

	diffStart := time.Now()
	observability.Pipeline().OnDiffStart(ctx, setA.Len()+setB.Len())
	result, err := diff.Diff(setA, setB, diff.Options{
		ToleranceBudget: opts.ToleranceBudget,
		CompareMode:     opts.CompareMode,
		NumericTables:   r.NumericTables,
	})
	observability.Pipeline().OnDiffComplete(ctx, scoreOf(result), time.Since(diffStart), err)
	if err != nil {
		return nil, err
	}
	comparison.Score = result.Score
	comparison.Tables = result.Tables

	logger.Info("compared tables",
		"tables", len(result.Tables),
		"score", result.Score,
		"duration", time.Since(diffStart))

	if r.Store != nil {
		if err := r.Store.Append(ctx, comparison); err != nil {
			logger.Warn("could not record run history", "err", err)
		}
	}
	return comparison, nil
}

// buildSide produces one toolchain's canonical table set, using the
// build cache according to the rebuild mode. Canonical dumps are cached
// by artifact content, so a binary that did not change is never dumped
// twice, whichever way it was (re)built.
func (r *Runner) buildSide(ctx context.Context, project *source.Project, tc toolchain.Toolchain, artifactRoot string, opts Options) sideResult {
	artifact, err := r.getOrBuild(ctx, project, tc, artifactRoot, opts)
	if err != nil {
		return sideResult{err: err}
	}

	key := r.canonicalKey(artifact, opts)
	if key != "" {
		if set, ok := r.cachedCanonical(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, "canonical")
			return sideResult{artifact: artifact, set: set}
		}
		observability.Cache().OnCacheMiss(ctx, "canonical")
	}

	canonStart := time.Now()
	observability.Pipeline().OnCanonicalizeStart(ctx, tc.Name())
	set, err := r.Canon.Canonicalize(ctx, artifact)
	observability.Pipeline().OnCanonicalizeComplete(ctx, tc.Name(), lenOf(set), time.Since(canonStart), err)
	if err != nil {
		return sideResult{artifact: artifact, err: err}
	}
	if key != "" {
		r.storeCanonical(ctx, key, set)
	}
	return sideResult{artifact: artifact, set: set}
}

// canonicalEntry is the cached record of a canonical table dump.
type canonicalEntry struct {
	Tables []canonicalTable `json:"tables"`
}

type canonicalTable struct {
	Tag  canonical.Tag `json:"tag"`
	Text string        `json:"text"`
}

// canonicalKey derives the dump cache key from the binary's bytes.
// An unreadable artifact disables caching for this side rather than
// failing; the dump step will surface the real error.
func (r *Runner) canonicalKey(artifact toolchain.BuildArtifact, opts Options) string {
	data, err := os.ReadFile(artifact.FontPath)
	if err != nil {
		return ""
	}
	return r.Keyer.CanonicalKey(cache.Hash(data), cache.CanonicalKeyOpts{
		CompareMode: string(opts.CompareMode),
	})
}

func (r *Runner) cachedCanonical(ctx context.Context, key string) (*canonical.TableSet, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var entry canonicalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	set := canonical.NewTableSet()
	for _, table := range entry.Tables {
		if err := set.Add(table.Tag, table.Text); err != nil {
			_ = r.Cache.Delete(ctx, key)
			return nil, false
		}
	}
	return set, true
}

func (r *Runner) storeCanonical(ctx context.Context, key string, set *canonical.TableSet) {
	entry := canonicalEntry{Tables: make([]canonicalTable, 0, set.Len())}
	for _, tag := range set.Tags() {
		text, _ := set.Get(tag)
		entry.Tables = append(entry.Tables, canonicalTable{Tag: tag, Text: text})
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLCanonical); err == nil {
		observability.Cache().OnCacheSet(ctx, "canonical", len(data))
	}
}

// buildEntry is the cached record of a completed build.
type buildEntry struct {
	FontPath    string        `json:"font_path"`
	Duration    time.Duration `json:"duration"`
	Fingerprint string        `json:"fingerprint"`
	BuiltAt     time.Time     `json:"built_at"`
}

// getOrBuild returns a cached artifact when the rebuild mode allows it,
// otherwise runs the toolchain and caches the result.
func (r *Runner) getOrBuild(ctx context.Context, project *source.Project, tc toolchain.Toolchain, artifactRoot string, opts Options) (toolchain.BuildArtifact, error) {
	keyOpts := cache.BuildKeyOpts{
		ProductionNames: !opts.DisableProductionNames,
		KeepOverlaps:    !opts.RemoveOverlaps,
	}
	key := r.Keyer.BuildKey(project.Fingerprint(), tc.Name(), keyOpts)
	forced := opts.Rebuild == RebuildBoth || string(opts.Rebuild) == tc.Name()

	if !forced {
		if artifact, ok := r.cachedArtifact(ctx, key, tc.Name()); ok {
			observability.Cache().OnCacheHit(ctx, "build")
			return artifact, nil
		}
		observability.Cache().OnCacheMiss(ctx, "build")
		if opts.Rebuild == RebuildNone {
			return toolchain.BuildArtifact{}, errors.New(errors.ErrCodeCacheMissDisallowed,
				"no cached build for %s and rebuilding is disabled", tc.Name())
		}
	}

	outDir := filepath.Join(artifactRoot, tc.Name(), shortKey(key))
	buildStart := time.Now()
	observability.Pipeline().OnBuildStart(ctx, tc.Name(), project.Path())
	artifact, err := tc.Build(ctx, project, outDir, toolchain.Options{
		ProductionNames: keyOpts.ProductionNames,
		KeepOverlaps:    keyOpts.KeepOverlaps,
	})
	observability.Pipeline().OnBuildComplete(ctx, tc.Name(), time.Since(buildStart), false, err)
	if err != nil {
		return toolchain.BuildArtifact{}, err
	}

	entry := buildEntry{
		FontPath:    artifact.FontPath,
		Duration:    artifact.Duration,
		Fingerprint: project.Fingerprint(),
		BuiltAt:     time.Now().UTC(),
	}
	if data, err := json.Marshal(entry); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLBuild); err == nil {
			observability.Cache().OnCacheSet(ctx, "build", len(data))
		}
	}
	return artifact, nil
}

// cachedArtifact loads a build entry and verifies its binary still
// exists. A stale entry (binary gone) is evicted and treated as a miss.
func (r *Runner) cachedArtifact(ctx context.Context, key, toolchainName string) (toolchain.BuildArtifact, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return toolchain.BuildArtifact{}, false
	}

	var entry buildEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return toolchain.BuildArtifact{}, false
	}
	if _, err := os.Stat(entry.FontPath); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return toolchain.BuildArtifact{}, false
	}

	return toolchain.BuildArtifact{
		Toolchain: toolchainName,
		FontPath:  entry.FontPath,
		Cached:    true,
	}, true
}

// artifactRoot returns the build output root, creating it if needed.
func (r *Runner) artifactRoot() (string, error) {
	root := r.ArtifactRoot
	if root == "" {
		root = filepath.Join(os.TempDir(), "ttxdiff-builds")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create artifact dir %s", root)
	}
	return root, nil
}

// shortKey derives a filesystem-friendly directory name from a cache key.
func shortKey(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}
	if len(key) > 16 {
		key = key[:16]
	}
	return key
}

func lenOf(set *canonical.TableSet) int {
	if set == nil {
		return 0
	}
	return set.Len()
}

func scoreOf(result *diff.Result) float64 {
	if result == nil {
		return 0
	}
	return result.Score
}
