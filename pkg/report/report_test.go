package report

import (
	"testing"

	"github.com/typetools/ttxdiff/pkg/diff"
)

func TestIdenticalDerivesFromTableKinds(t *testing.T) {
	// A textual diff with full similarity still rounds the score to 1.0;
	// the kind is what decides equivalence.
	c := &Comparison{
		Score: 1.0,
		Tables: []diff.TableDiff{
			{Tag: "head", Kind: diff.KindIdentical, Similarity: 1.0},
			{Tag: "name", Kind: diff.KindTextual, Similarity: 1.0},
		},
	}
	if c.Identical() {
		t.Error("a textual table must not report Identical, whatever the score")
	}
}

func TestIdenticalAcceptsWithinBudgetTables(t *testing.T) {
	c := &Comparison{
		Score: 1.0,
		Tables: []diff.TableDiff{
			{Tag: "head", Kind: diff.KindIdentical, Similarity: 1.0},
			{Tag: "glyf", Kind: diff.KindNumeric, Similarity: 1.0, MaxDelta: 1},
		},
	}
	if !c.Identical() {
		t.Error("identical and within-budget tables should report Identical")
	}
}

func TestIdenticalFalseOnBuildFailure(t *testing.T) {
	c := &Comparison{
		Score:    1.0,
		Failures: []BuildFailure{{Toolchain: "fontmake", Code: "BUILD_ERROR"}},
	}
	if c.Identical() {
		t.Error("a build failure must not report Identical")
	}
	if c.Partial() {
		t.Error("Partial needs the toolchain list to compare against")
	}
	c.Toolchains = []string{"fontc", "fontmake"}
	if !c.Partial() {
		t.Error("one failure of two toolchains is a partial run")
	}
}
