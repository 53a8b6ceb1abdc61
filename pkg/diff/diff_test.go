package diff

import (
	"strings"
	"testing"

	"github.com/typetools/ttxdiff/pkg/canonical"
	"github.com/typetools/ttxdiff/pkg/errors"
)

func makeSet(t *testing.T, tables map[canonical.Tag]string, order ...canonical.Tag) *canonical.TableSet {
	t.Helper()
	set := canonical.NewTableSet()
	for _, tag := range order {
		if err := set.Add(tag, tables[tag]); err != nil {
			t.Fatal(err)
		}
	}
	return set
}

func TestDiffIdenticalSets(t *testing.T) {
	tables := map[canonical.Tag]string{
		"head": "<head>\n  <unitsPerEm value=\"1000\"/>\n</head>\n",
		"glyf": "<glyf>\n  <pt x=\"100\" y=\"200\"/>\n</glyf>\n",
	}
	set := makeSet(t, tables, "head", "glyf")

	result, err := Diff(set, set, Options{})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if result.Score != 1.0 {
		t.Errorf("Score = %g, want 1.0", result.Score)
	}
	if !result.Identical() {
		t.Error("Identical() should be true for a set diffed against itself")
	}
	for _, td := range result.Tables {
		if td.Kind != KindIdentical {
			t.Errorf("table %s kind = %s, want identical", td.Tag, td.Kind)
		}
	}
}

func TestDiffEmptySets(t *testing.T) {
	result, err := Diff(canonical.NewTableSet(), canonical.NewTableSet(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != 1.0 {
		t.Errorf("Score of empty comparison = %g, want 1.0", result.Score)
	}
	if len(result.Tables) != 0 {
		t.Errorf("Tables = %v, want none", result.Tables)
	}
}

func TestDiffTrailingNewlineOnly(t *testing.T) {
	a := makeSet(t, map[canonical.Tag]string{"name": "<namerecord/>\n"}, "name")
	b := makeSet(t, map[canonical.Tag]string{"name": "<namerecord/>\n\n"}, "name")

	result, err := Diff(a, b, Options{})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if kind := findTable(t, result, "name").Kind; kind != KindIdentical {
		t.Errorf("trailing-newline difference kind = %s, want identical", kind)
	}
	if !result.Identical() {
		t.Error("trailing-newline difference should not break Identical()")
	}
	if result.Score != 1.0 {
		t.Errorf("Score = %g, want 1.0", result.Score)
	}
}

func TestDiffMissingTableSymmetry(t *testing.T) {
	withGSUB := makeSet(t, map[canonical.Tag]string{
		"head": "h\n", "GSUB": "g\n",
	}, "head", "GSUB")
	without := makeSet(t, map[canonical.Tag]string{"head": "h\n"}, "head")

	forward, err := Diff(withGSUB, without, Options{})
	if err != nil {
		t.Fatal(err)
	}
	reverse, err := Diff(without, withGSUB, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if kind := findTable(t, forward, "GSUB").Kind; kind != KindMissingInB {
		t.Errorf("forward GSUB kind = %s, want missing-in-b", kind)
	}
	if kind := findTable(t, reverse, "GSUB").Kind; kind != KindMissingInA {
		t.Errorf("reverse GSUB kind = %s, want missing-in-a", kind)
	}
	if forward.Score != reverse.Score {
		t.Errorf("scores should be symmetric: %g vs %g", forward.Score, reverse.Score)
	}
	if forward.Score >= 1.0 {
		t.Errorf("a missing table must cost score, got %g", forward.Score)
	}
}

func TestDiffToleranceMonotonicity(t *testing.T) {
	a := makeSet(t, map[canonical.Tag]string{
		"glyf": "<glyf>\n  <pt x=\"100\" y=\"200\"/>\n</glyf>\n",
	}, "glyf")
	b := makeSet(t, map[canonical.Tag]string{
		"glyf": "<glyf>\n  <pt x=\"101\" y=\"200\"/>\n</glyf>\n",
	}, "glyf")

	// The values differ by d=1: within budget for any budget >= 1,
	// textual for any budget < 1.
	for _, tt := range []struct {
		budget float64
		want   Kind
	}{
		{0, KindTextual},
		{0.5, KindTextual},
		{1.0, KindNumeric},
		{2.0, KindNumeric},
	} {
		result, err := Diff(a, b, Options{ToleranceBudget: tt.budget})
		if err != nil {
			t.Fatal(err)
		}
		got := findTable(t, result, "glyf")
		if got.Kind != tt.want {
			t.Errorf("budget %g: kind = %s, want %s", tt.budget, got.Kind, tt.want)
		}
		if tt.want == KindNumeric {
			if result.Score != 1.0 {
				t.Errorf("budget %g: score = %g, want 1.0", tt.budget, result.Score)
			}
			if got.MaxDelta != 1.0 {
				t.Errorf("budget %g: MaxDelta = %g, want 1.0", tt.budget, got.MaxDelta)
			}
		}
	}
}

func TestDiffNumericPolicyRequiresStructuralMatch(t *testing.T) {
	a := makeSet(t, map[canonical.Tag]string{
		"glyf": "<glyf>\n  <pt x=\"100\" y=\"200\"/>\n</glyf>\n",
	}, "glyf")
	b := makeSet(t, map[canonical.Tag]string{
		"glyf": "<glyf>\n  <pt x=\"100\" y=\"200\" on=\"1\"/>\n</glyf>\n",
	}, "glyf")

	result, err := Diff(a, b, Options{ToleranceBudget: 100})
	if err != nil {
		t.Fatal(err)
	}
	got := findTable(t, result, "glyf")
	if got.Kind != KindTextual {
		t.Errorf("structural change should force a textual diff, got %s", got.Kind)
	}
	if got.Patch == "" {
		t.Error("textual diff should carry a patch")
	}
}

func TestDiffNumericPolicyOnlyForNumericTables(t *testing.T) {
	a := makeSet(t, map[canonical.Tag]string{"name": "Version 1\n"}, "name")
	b := makeSet(t, map[canonical.Tag]string{"name": "Version 2\n"}, "name")

	result, err := Diff(a, b, Options{ToleranceBudget: 10})
	if err != nil {
		t.Fatal(err)
	}
	if kind := findTable(t, result, "name").Kind; kind != KindTextual {
		t.Errorf("non-numeric table should not use the tolerance policy, got %s", kind)
	}
}

func TestDiffRejectsNegativeBudget(t *testing.T) {
	_, err := Diff(canonical.NewTableSet(), canonical.NewTableSet(), Options{ToleranceBudget: -1})
	if !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Fatalf("error code = %q, want INVALID_OPTION", errors.GetCode(err))
	}
}

func TestDiffGFToolsModeAppliedToBothSides(t *testing.T) {
	a := makeSet(t, map[canonical.Tag]string{
		"head": "h\n", "DSIG": "<DSIG/>\n",
	}, "head", "DSIG")
	b := makeSet(t, map[canonical.Tag]string{"head": "h\n"}, "head")

	// In default mode the DSIG mismatch counts against the score.
	plain, err := Diff(a, b, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Score >= 1.0 {
		t.Error("default mode should report the DSIG mismatch")
	}

	// In gftools mode DSIG is excluded from both sides and the sets match.
	gf, err := Diff(a, b, Options{CompareMode: ModeGFTools})
	if err != nil {
		t.Fatal(err)
	}
	if gf.Score != 1.0 {
		t.Errorf("gftools mode score = %g, want 1.0", gf.Score)
	}
	for _, td := range gf.Tables {
		if td.Tag == "DSIG" {
			t.Error("DSIG should be excluded from the gftools comparison")
		}
	}
}

func TestDiffInvalidMode(t *testing.T) {
	_, err := Diff(canonical.NewTableSet(), canonical.NewTableSet(), Options{CompareMode: "nightly"})
	if !errors.Is(err, errors.ErrCodeInvalidOption) {
		t.Fatalf("error code = %q, want INVALID_OPTION", errors.GetCode(err))
	}
}

func TestLineDiffRatioAndPatch(t *testing.T) {
	a := "one\ntwo\nthree\nfour\n"
	b := "one\ntwo\nTHREE\nfour\n"

	patch, ratio := lineDiff(a, b)
	if !strings.Contains(patch, "-three") || !strings.Contains(patch, "+THREE") {
		t.Errorf("patch should show the changed line:\n%s", patch)
	}
	if ratio != 0.75 {
		t.Errorf("ratio = %g, want 0.75 (3 of 4 lines common)", ratio)
	}
}

func TestCompareNumeric(t *testing.T) {
	match, delta := compareNumeric("x=10 y=-5", "x=12 y=-5")
	if !match {
		t.Fatal("same structure should match")
	}
	if delta != 2 {
		t.Errorf("delta = %g, want 2", delta)
	}

	if match, _ := compareNumeric("x=10", "y=10"); match {
		t.Error("different skeletons should not match")
	}
	if match, _ := compareNumeric("x=10", "x=10 y=2"); match {
		t.Error("different value counts should not match")
	}
	if match, _ := compareNumeric("a\nb", "a"); match {
		t.Error("different line counts should not match")
	}
}

func findTable(t *testing.T, r *Result, tag canonical.Tag) TableDiff {
	t.Helper()
	for _, td := range r.Tables {
		if td.Tag == tag {
			return td
		}
	}
	t.Fatalf("table %s not in result", tag)
	return TableDiff{}
}
