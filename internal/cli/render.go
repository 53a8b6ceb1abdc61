package cli

import (
	"fmt"
	"time"

	"github.com/typetools/ttxdiff/pkg/diff"
	"github.com/typetools/ttxdiff/pkg/report"
)

// renderComparison prints a human-readable comparison report.
func renderComparison(c *report.Comparison) {
	printNewline()
	fmt.Println(StyleTitle.Render("Comparison report"))
	printKeyValue("source", c.Source)
	printKeyValue("format", string(c.SourceFormat))
	printKeyValue("mode", c.CompareMode)
	if c.ToleranceBudget > 0 {
		printKeyValue("budget", fmt.Sprintf("%g", c.ToleranceBudget))
	}
	printKeyValue("run", c.RunID)
	printNewline()

	renderBuilds(c)
	renderFailures(c)
	renderTables(c.Tables, c.Toolchains)
	renderScore(c)
}

func renderBuilds(c *report.Comparison) {
	for _, b := range c.Builds {
		status := styleFresh.Render(iconFresh)
		detail := b.Duration.Round(time.Millisecond).String()
		if b.Cached {
			status = styleCached.Render(iconCached)
			detail = ""
		}
		line := "  " + StyleValue.Render(b.Toolchain) + " " + status
		if detail != "" {
			line += " " + StyleDim.Render(detail)
		}
		fmt.Println(line)
	}
	if len(c.Builds) > 0 {
		printNewline()
	}
}

func renderFailures(c *report.Comparison) {
	for _, f := range c.Failures {
		printError("%s failed: %s", f.Toolchain, f.Message)
	}
	if len(c.Failures) > 0 {
		printNewline()
	}
}

// renderTables prints one line per table. Identical tables are collapsed
// to a single summary line so diffs stand out in large fonts.
func renderTables(tables []diff.TableDiff, toolchains []string) {
	sideA, sideB := "first toolchain", "second toolchain"
	if len(toolchains) == 2 {
		sideA, sideB = toolchains[0], toolchains[1]
	}

	identical := 0
	for _, t := range tables {
		if t.Kind == diff.KindIdentical {
			identical++
			continue
		}
		switch t.Kind {
		case diff.KindNumeric:
			printDetail("%s %s within budget (max delta %g)", iconTilde, t.Tag, t.MaxDelta)
		case diff.KindMissingInA:
			fmt.Println("  " + styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf("%s only in %s output", t.Tag, sideB)))
		case diff.KindMissingInB:
			fmt.Println("  " + styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf("%s only in %s output", t.Tag, sideA)))
		default:
			fmt.Println("  " + styleIconError.Render(iconError) + " " + StyleValue.Render(string(t.Tag)) + " " + StyleDim.Render(fmt.Sprintf("%.2f%% similar", t.Similarity*100)))
		}
	}
	if identical > 0 {
		printDetail("%s %d tables identical", iconSuccess, identical)
	}
	if len(tables) > 0 {
		printNewline()
	}
}

func renderScore(c *report.Comparison) {
	score := fmt.Sprintf("%.4f%%", c.Score*100)
	switch {
	case c.Identical():
		printSuccess("Outputs are equivalent " + StyleDim.Render("("+score+")"))
	case len(c.Failures) > 0:
		printError("Comparison incomplete, similarity %s", StyleNumber.Render(score))
	default:
		printWarning("Outputs differ, similarity %s", StyleNumber.Render(score))
	}
}
