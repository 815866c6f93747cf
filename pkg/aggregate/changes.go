package aggregate

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Changes compares two encoded tables line by line and returns the rows that
// were removed ("- ") or added ("+ "), in table order.
func Changes(previous, current string) []string {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(previous, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []string

	for _, d := range diffs {
		var mark string

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			mark = "- "
		case diffmatchpatch.DiffInsert:
			mark = "+ "
		case diffmatchpatch.DiffEqual:
			continue
		}

		for row := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, mark+row)
		}
	}

	return out
}
