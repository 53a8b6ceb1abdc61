// Package diff compares two canonical table sets and scores their
// similarity.
//
// Each table tag in the union of both sets yields one TableDiff. The
// default policy is exact textual equality of the canonical blocks; for
// coordinate-bearing tables (outlines and metrics) a numeric tolerance
// policy applies instead, so off-by-one rounding between toolchains is
// not reported as a regression.
//
// # Similarity scoring
//
// The overall score is byte-size weighted. Each table's weight is the
// larger of its two canonical text sizes; identical and within-budget
// tables contribute their full weight, a table present on only one side
// contributes nothing, and textually differing tables contribute weight
// scaled by their matching-line ratio. The score is the contribution
// sum over the weight sum, in [0, 1]. Two empty sets score 1.0.
package diff

import (
	"strings"

	"github.com/typetools/ttxdiff/pkg/canonical"
	"github.com/typetools/ttxdiff/pkg/errors"
)

// Kind classifies one table's comparison outcome.
type Kind string

// Table diff kinds.
const (
	KindIdentical  Kind = "identical"
	KindNumeric    Kind = "numeric-within-budget"
	KindTextual    Kind = "textual"
	KindMissingInA Kind = "missing-in-a"
	KindMissingInB Kind = "missing-in-b"
)

// Mode selects the comparison profile.
type Mode string

// Compare modes.
const (
	// ModeDefault compares the canonical sets as-is.
	ModeDefault Mode = "default"

	// ModeGFTools applies the gftools distribution pipeline's
	// post-processing profile to both sets before diffing.
	ModeGFTools Mode = "gftools"
)

// ParseMode validates a compare mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, ModeGFTools:
		return Mode(s), nil
	case "":
		return ModeDefault, nil
	}
	return "", errors.New(errors.ErrCodeInvalidOption,
		"invalid compare mode %q (must be default or gftools)", s)
}

// TableDiff is the comparison outcome for a single table.
type TableDiff struct {
	Tag        canonical.Tag `json:"tag"`
	Kind       Kind          `json:"kind"`
	Similarity float64       `json:"similarity"`
	Patch      string        `json:"patch,omitempty"`
	MaxDelta   float64       `json:"max_delta,omitempty"`
}

// Options configures a comparison.
type Options struct {
	// ToleranceBudget is the maximum absolute difference between paired
	// numeric values in numeric-policy tables. Zero means exact.
	ToleranceBudget float64

	// CompareMode selects the normalization profile.
	CompareMode Mode

	// NumericTables are the tables compared under the tolerance policy.
	// Nil means DefaultNumericTables.
	NumericTables map[canonical.Tag]bool
}

// DefaultNumericTables returns the tables whose values are rounded
// coordinates and therefore compared with the tolerance budget.
func DefaultNumericTables() map[canonical.Tag]bool {
	return map[canonical.Tag]bool{
		"glyf": true,
		"hmtx": true,
		"vmtx": true,
		"kern": true,
	}
}

// Result is the outcome of comparing two table sets.
type Result struct {
	Score  float64     `json:"score"`
	Tables []TableDiff `json:"tables"`
}

// Identical reports whether the two sets were equivalent under the
// comparison policy (every table identical or within budget).
func (r *Result) Identical() bool {
	for _, t := range r.Tables {
		if t.Kind != KindIdentical && t.Kind != KindNumeric {
			return false
		}
	}
	return true
}

// Diff compares two canonical table sets.
//
// The tag universe is the union of both sets: setA's tags in order,
// then setB-only tags in order. Tables present on one side only are
// reported as missing on the other, symmetrically.
func Diff(setA, setB *canonical.TableSet, opts Options) (*Result, error) {
	if err := errors.ValidateToleranceBudget(opts.ToleranceBudget); err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(opts.CompareMode))
	if err != nil {
		return nil, err
	}
	numeric := opts.NumericTables
	if numeric == nil {
		numeric = DefaultNumericTables()
	}

	if mode == ModeGFTools {
		// Applied to BOTH sides; asymmetric normalization would
		// invalidate the comparison.
		setA = ApplyGFToolsProfile(setA)
		setB = ApplyGFToolsProfile(setB)
	}

	result := &Result{}
	var weightSum, contribution float64

	for _, tag := range unionTags(setA, setB) {
		textA, inA := setA.Get(tag)
		textB, inB := setB.Get(tag)

		td := TableDiff{Tag: tag}
		var weight float64

		switch {
		case inA && !inB:
			td.Kind = KindMissingInB
			weight = float64(len(textA))
		case inB && !inA:
			td.Kind = KindMissingInA
			weight = float64(len(textB))
		case trimNL(textA) == trimNL(textB):
			// Trailing newlines are dumper formatting, not content.
			td.Kind = KindIdentical
			td.Similarity = 1.0
			weight = float64(len(textA))
		default:
			weight = float64(max(len(textA), len(textB)))
			if numeric[tag] {
				if match, maxDelta := compareNumeric(textA, textB); match && maxDelta <= opts.ToleranceBudget {
					td.Kind = KindNumeric
					td.Similarity = 1.0
					td.MaxDelta = maxDelta
					break
				}
			}
			td.Kind = KindTextual
			td.Patch, td.Similarity = lineDiff(textA, textB)
		}

		weightSum += weight
		contribution += weight * td.Similarity
		result.Tables = append(result.Tables, td)
	}

	if weightSum == 0 {
		result.Score = 1.0
	} else {
		result.Score = contribution / weightSum
	}
	return result, nil
}

func trimNL(s string) string { return strings.TrimRight(s, "\n") }

// unionTags returns setA's tags followed by setB-only tags, preserving
// each set's insertion order.
func unionTags(setA, setB *canonical.TableSet) []canonical.Tag {
	tags := setA.Tags()
	for _, tag := range setB.Tags() {
		if !setA.Has(tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}
