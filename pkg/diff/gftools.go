package diff

import (
	"regexp"

	"github.com/typetools/ttxdiff/pkg/canonical"
)

// The gftools distribution pipeline post-processes fonts before
// shipping, so a comparison meant for that pipeline must ignore the
// tables and fields its fixes rewrite. The profile is deliberately
// small and enumerated here; it is always applied to both sides.
var (
	// gftoolsExcludedTables are dropped entirely: DSIG is stripped by
	// gftools-fix, FFTM is a FontForge timestamp table.
	gftoolsExcludedTables = []canonical.Tag{"DSIG", "FFTM"}

	// gftoolsUniqueIDPattern scrubs nameID 3 (unique identifier)
	// records, which gftools rewrites with its own vendor string.
	gftoolsUniqueIDPattern = regexp.MustCompile(
		`(?s)<namerecord nameID="3"[^>]*>.*?</namerecord>\n?`)
)

// ApplyGFToolsProfile returns a copy of set with the gftools exclusions
// and transformations applied. The input set is not modified.
func ApplyGFToolsProfile(set *canonical.TableSet) *canonical.TableSet {
	out := set.Clone()
	for _, tag := range gftoolsExcludedTables {
		out.Remove(tag)
	}
	if name, ok := out.Get("name"); ok {
		out.Replace("name", gftoolsUniqueIDPattern.ReplaceAllString(name, ""))
	}
	return out
}
