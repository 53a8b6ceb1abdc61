package canonical

import "regexp"

// StripRule removes one class of build-environment noise from canonical
// text. The strip-list is data, not ad hoc string surgery: the default
// profile below is the single place run-varying fields are enumerated,
// and configuration can extend it.
type StripRule struct {
	// Table restricts the rule to one table tag. Empty applies everywhere.
	Table Tag

	// Pattern matches the noise to rewrite.
	Pattern *regexp.Regexp

	// Replace is the replacement text ($1-style group references allowed).
	Replace string
}

// DefaultStripRules returns the built-in noise profile:
//
//   - head checkSumAdjustment: recomputed per build, never semantic
//   - head created/modified: build wall-clock timestamps
//   - name version records: compiler name and build metadata after the
//     "Version x.yyy" prefix vary between toolchains
//   - absolute source paths embedded in name records
func DefaultStripRules() []StripRule {
	return []StripRule{
		{
			Table:   "head",
			Pattern: regexp.MustCompile(`<checkSumAdjustment value="[^"]*"/>`),
			Replace: `<checkSumAdjustment value="0x00000000"/>`,
		},
		{
			Table:   "head",
			Pattern: regexp.MustCompile(`<(created|modified) value="[^"]*"/>`),
			Replace: `<$1 value=""/>`,
		},
		{
			Table:   "name",
			Pattern: regexp.MustCompile(`(Version \d+\.\d+);[^<\n]*`),
			Replace: `$1`,
		},
		{
			Table:   "name",
			Pattern: regexp.MustCompile(`(/[\w][\w.-]*){2,}/[\w][\w.-]*\.(?:ufo|glyphs|designspace)`),
			Replace: `<source>`,
		},
	}
}

// applyStripRules rewrites one table's text with every applicable rule.
// Rules are applied in order; the result is deterministic for a given
// rule list and input.
func applyStripRules(tag Tag, text string, rules []StripRule) string {
	for _, r := range rules {
		if r.Table != "" && r.Table != tag {
			continue
		}
		text = r.Pattern.ReplaceAllString(text, r.Replace)
	}
	return text
}
