package diff

import (
	"fmt"
	"strings"
)

// maxLCSCells bounds the LCS table size. Outline tables can run to
// hundreds of thousands of lines; beyond this budget the diff degrades
// to a prefix/suffix summary rather than blowing up memory.
const maxLCSCells = 4_000_000

// lineDiff produces a unified-style patch between two text blocks and
// the matching-line ratio used for similarity scoring.
//
// The ratio is the number of common lines (longest common subsequence,
// including any shared prefix and suffix) over the larger line count,
// so it is symmetric and lands in [0, 1).
func lineDiff(a, b string) (patch string, ratio float64) {
	linesA := strings.Split(strings.TrimRight(a, "\n"), "\n")
	linesB := strings.Split(strings.TrimRight(b, "\n"), "\n")

	// Trim the common prefix and suffix; real table diffs are usually
	// a few changed lines in a large identical block.
	prefix := 0
	for prefix < len(linesA) && prefix < len(linesB) && linesA[prefix] == linesB[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(linesA)-prefix && suffix < len(linesB)-prefix &&
		linesA[len(linesA)-1-suffix] == linesB[len(linesB)-1-suffix] {
		suffix++
	}

	midA := linesA[prefix : len(linesA)-suffix]
	midB := linesB[prefix : len(linesB)-suffix]
	total := max(len(linesA), len(linesB))

	if len(midA)*len(midB) > maxLCSCells {
		common := prefix + suffix
		patch = fmt.Sprintf("@@ %d/%d lines differ (diff too large to render) @@\n", total-common, total)
		return patch, float64(common) / float64(total)
	}

	common := prefix + suffix + lcsLength(midA, midB)
	ratio = float64(common) / float64(total)

	var sb strings.Builder
	fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", prefix+1, len(midA), prefix+1, len(midB))
	for _, line := range backtrackDiff(midA, midB) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), ratio
}

// lcsLength computes the length of the longest common subsequence of
// two line slices with a rolling single-row table.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// backtrackDiff renders removed (-) and added (+) lines between a and b
// using a full LCS table. Context lines inside the changed region are
// emitted with a leading space.
func backtrackDiff(a, b []string) []string {
	m, n := len(a), len(b)
	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}

	var out []string
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			out = append(out, " "+a[i-1])
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			out = append(out, "+"+b[j-1])
			j--
		default:
			out = append(out, "-"+a[i-1])
			i--
		}
	}

	// Reverse into forward order.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
