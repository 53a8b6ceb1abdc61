package canonical

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/typetools/ttxdiff/pkg/errors"
	"github.com/typetools/ttxdiff/pkg/toolchain"
)

const ttxFixture = `<?xml version="1.0" encoding="UTF-8"?>
<ttFont sfntVersion="\x00\x01\x00\x00" ttLibVersion="4.47">

  <GlyphOrder>
    <GlyphID id="0" name=".notdef"/>
    <GlyphID id="1" name="space"/>
  </GlyphOrder>

  <head>
    <checkSumAdjustment value="0x2c0a1b2e"/>
    <created value="Fri Jan  1 00:00:00 2021"/>
    <modified value="Mon Aug 24 12:00:00 2026"/>
    <unitsPerEm value="1000"/>
  </head>

  <hmtx>
    <mtx name=".notdef" width="500" lsb="100"/>
    <mtx name="space" width="250" lsb="0"/>
  </hmtx>

  <name>
    <namerecord nameID="5" platformID="3" platEncID="1" langID="0x409">
      Version 1.000;GOOG;built from /home/ci/work/MyFont.glyphs
    </namerecord>
  </name>

  <GSUB>
    <Version value="0x00010000"/>
  </GSUB>

</ttFont>
`

func TestSplitTTX(t *testing.T) {
	set, err := splitTTX([]byte(ttxFixture))
	if err != nil {
		t.Fatalf("splitTTX: %v", err)
	}

	wantTags := []Tag{"GlyphOrder", "head", "hmtx", "name", "GSUB"}
	gotTags := set.Tags()
	if len(gotTags) != len(wantTags) {
		t.Fatalf("Tags = %v, want %v", gotTags, wantTags)
	}
	for i, tag := range wantTags {
		if gotTags[i] != tag {
			t.Errorf("Tags[%d] = %q, want %q", i, gotTags[i], tag)
		}
	}

	head, ok := set.Get("head")
	if !ok {
		t.Fatal("head table missing")
	}
	if !strings.Contains(head, `<unitsPerEm value="1000"/>`) {
		t.Errorf("head block should contain its fields, got:\n%s", head)
	}
	if strings.Contains(head, "ttLibVersion") {
		t.Error("dump header noise leaked into a table block")
	}
}

func TestSplitTTXNotADump(t *testing.T) {
	_, err := splitTTX([]byte("this is not xml"))
	if !errors.Is(err, errors.ErrCodeDumpError) {
		t.Fatalf("error code = %q, want DUMP_ERROR", errors.GetCode(err))
	}
}

func TestSplitTTXTruncated(t *testing.T) {
	truncated := strings.SplitAfter(ttxFixture, "<hmtx>")[0]
	_, err := splitTTX([]byte(truncated))
	if !errors.Is(err, errors.ErrCodeDumpError) {
		t.Fatalf("error code = %q, want DUMP_ERROR", errors.GetCode(err))
	}
}

func TestDefaultStripRules(t *testing.T) {
	set, err := splitTTX([]byte(ttxFixture))
	if err != nil {
		t.Fatal(err)
	}

	head, _ := set.Get("head")
	head = applyStripRules("head", head, DefaultStripRules())
	if !strings.Contains(head, `<checkSumAdjustment value="0x00000000"/>`) {
		t.Errorf("checksum should be zeroed, got:\n%s", head)
	}
	if strings.Contains(head, "2026") || strings.Contains(head, "2021") {
		t.Errorf("timestamps should be stripped, got:\n%s", head)
	}
	if !strings.Contains(head, `<unitsPerEm value="1000"/>`) {
		t.Error("semantic fields must survive stripping")
	}

	name, _ := set.Get("name")
	name = applyStripRules("name", name, DefaultStripRules())
	if strings.Contains(name, "GOOG") || strings.Contains(name, "/home/ci") {
		t.Errorf("version build metadata should be stripped, got:\n%s", name)
	}
	if !strings.Contains(name, "Version 1.000") {
		t.Error("the version number itself must survive stripping")
	}

	// Rules scoped to head must not touch other tables.
	hmtx, _ := set.Get("hmtx")
	if got := applyStripRules("hmtx", hmtx, DefaultStripRules()); got != hmtx {
		t.Error("strip rules for other tables should leave hmtx untouched")
	}
}

// fakeTools stands in for ttx and otl-normalizer: both write their
// output to the path given by the third argument.
func fakeTools(dump, normalized string) func(context.Context, time.Duration, string, ...string) error {
	return func(ctx context.Context, timeout time.Duration, name string, args ...string) error {
		switch {
		case strings.Contains(name, "ttx"):
			return os.WriteFile(args[2], []byte(dump), 0644)
		default:
			return os.WriteFile(args[2], []byte(normalized), 0644)
		}
	}
}

func TestCanonicalizeDelegatesLayoutTables(t *testing.T) {
	c := New()
	c.runTool = fakeTools(ttxFixture, "# GSUB canonical form\nlookup.0 single: a -> a.alt\n")

	artifact := toolchain.BuildArtifact{Toolchain: "fontc", FontPath: "/fake/fontc.ttf"}
	set, err := c.Canonicalize(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}

	gsub, ok := set.Get("GSUB")
	if !ok {
		t.Fatal("GSUB missing from canonical set")
	}
	if !strings.Contains(gsub, "GSUB canonical form") {
		t.Errorf("GSUB should come from the normalizer, got:\n%s", gsub)
	}
	if strings.Contains(gsub, "<Version") {
		t.Error("raw GSUB dump should have been replaced")
	}

	// Non-layout tables come from the raw dump, stripped.
	head, _ := set.Get("head")
	if !strings.Contains(head, `<checkSumAdjustment value="0x00000000"/>`) {
		t.Errorf("head should be stripped, got:\n%s", head)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	c := New()
	c.runTool = fakeTools(ttxFixture, "normalized\n")
	artifact := toolchain.BuildArtifact{Toolchain: "fontmake", FontPath: "/fake/fontmake.ttf"}

	first, err := c.Canonicalize(context.Background(), artifact)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Canonicalize(context.Background(), artifact)
	if err != nil {
		t.Fatal(err)
	}

	firstTags, secondTags := first.Tags(), second.Tags()
	if len(firstTags) != len(secondTags) {
		t.Fatalf("table counts differ: %d vs %d", len(firstTags), len(secondTags))
	}
	for i := range firstTags {
		if firstTags[i] != secondTags[i] {
			t.Fatalf("tag order differs at %d: %q vs %q", i, firstTags[i], secondTags[i])
		}
		a, _ := first.Get(firstTags[i])
		b, _ := second.Get(secondTags[i])
		if a != b {
			t.Errorf("table %q not byte-identical across invocations", firstTags[i])
		}
	}
}

func TestCanonicalizeDumpError(t *testing.T) {
	c := New()
	c.runTool = func(ctx context.Context, timeout time.Duration, name string, args ...string) error {
		return errors.New(errors.ErrCodeDumpError, "ttx failed: not a sfnt file")
	}

	_, err := c.Canonicalize(context.Background(), toolchain.BuildArtifact{Toolchain: "fontc", FontPath: "/fake/corrupt.ttf"})
	if !errors.Is(err, errors.ErrCodeDumpError) {
		t.Fatalf("error code = %q, want DUMP_ERROR", errors.GetCode(err))
	}
}

func TestTableSetInvariants(t *testing.T) {
	set := NewTableSet()
	if err := set.Add("head", "a"); err != nil {
		t.Fatal(err)
	}
	if err := set.Add("head", "b"); err == nil {
		t.Error("duplicate tag should be rejected")
	}

	set.Replace("head", "c")
	if text, _ := set.Get("head"); text != "c" {
		t.Errorf("Replace should update text, got %q", text)
	}

	set.Remove("head")
	if set.Has("head") {
		t.Error("Remove should delete the table")
	}
	if set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}
}
