// Package report defines the comparison report produced by one
// pipeline run, its JSON form, and an optional persistent history of
// past runs for trend tracking across a CI fleet.
package report

import (
	"encoding/json"
	"time"

	"github.com/typetools/ttxdiff/pkg/diff"
	"github.com/typetools/ttxdiff/pkg/source"
)

// BuildFailure records one toolchain's failure, attached to the report
// rather than raised as a fatal error.
type BuildFailure struct {
	Toolchain string `json:"toolchain"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BuildStat records one toolchain's successful build.
type BuildStat struct {
	Toolchain string        `json:"toolchain"`
	Duration  time.Duration `json:"duration"`
	Cached    bool          `json:"cached"`
}

// Comparison is the terminal artifact of one invocation.
type Comparison struct {
	RunID           string           `json:"run_id"`
	Source          string           `json:"source"`
	SourceFormat    source.Format    `json:"source_format"`
	Toolchains      []string         `json:"toolchains"`
	CompareMode     string           `json:"compare_mode"`
	ToleranceBudget float64          `json:"tolerance_budget"`
	Score           float64          `json:"score"`
	Tables          []diff.TableDiff `json:"tables"`
	Failures        []BuildFailure   `json:"failures,omitempty"`
	Builds          []BuildStat      `json:"builds,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Identical reports whether the comparison found the two outputs
// equivalent: no build failures and every table identical or within the
// numeric budget. Kinds are authoritative; the score is a weighted
// summary and can round to 1.0 while a diff remains.
func (c *Comparison) Identical() bool {
	if len(c.Failures) > 0 {
		return false
	}
	for _, t := range c.Tables {
		if t.Kind != diff.KindIdentical && t.Kind != diff.KindNumeric {
			return false
		}
	}
	return true
}

// Partial reports whether only one side produced a comparable artifact.
func (c *Comparison) Partial() bool {
	return len(c.Failures) > 0 && len(c.Failures) < len(c.Toolchains)
}

// JSON renders the canonical machine-readable form.
func (c *Comparison) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
