package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches signed integers and decimals as they appear in
// table dumps (coordinates, advances, deltas).
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// compareNumeric checks whether a and b differ only in paired numeric
// fields. It returns whether the non-numeric structure matches exactly
// and, if so, the maximum absolute difference across all value pairs.
//
// A structural mismatch (different line counts, different text around
// the numbers, or a different number of values on a line) means the
// tables differ in more than rounding and must get a full textual diff.
func compareNumeric(a, b string) (structuralMatch bool, maxDelta float64) {
	linesA := strings.Split(a, "\n")
	linesB := strings.Split(b, "\n")
	if len(linesA) != len(linesB) {
		return false, 0
	}

	for i := range linesA {
		la, lb := linesA[i], linesB[i]
		if la == lb {
			continue
		}

		numsA := numberPattern.FindAllString(la, -1)
		numsB := numberPattern.FindAllString(lb, -1)
		if len(numsA) != len(numsB) {
			return false, 0
		}
		if numberPattern.ReplaceAllString(la, "#") != numberPattern.ReplaceAllString(lb, "#") {
			return false, 0
		}

		for j := range numsA {
			va, errA := strconv.ParseFloat(numsA[j], 64)
			vb, errB := strconv.ParseFloat(numsB[j], 64)
			if errA != nil || errB != nil {
				return false, 0
			}
			if delta := abs(va - vb); delta > maxDelta {
				maxDelta = delta
			}
		}
	}
	return true, maxDelta
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
