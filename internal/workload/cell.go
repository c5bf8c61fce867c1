package workload

import (
	"regexp"
	"strconv"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

var digitRun = regexp.MustCompile(`\d+`)

// ParseInt returns the first run of decimal digits in the cell, or def when
// the cell is absent or holds no digits. A run too large for int also
// yields def.
func ParseInt(c convert.Cell, def int) int {
	if !c.Present {
		return def
	}
	run := digitRun.FindString(c.Text)
	if run == "" {
		return def
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return def
	}
	return n
}

// ParsePair reads a full-time/part-time cell such as "34/12" or "34 12".
// Missing runs, and runs too large for int, read as 0.
func ParsePair(c convert.Cell) (first, second int) {
	if !c.Present {
		return 0, 0
	}
	runs := digitRun.FindAllString(c.Text, 2)
	if len(runs) > 0 {
		first = atoiOrZero(runs[0])
	}
	if len(runs) > 1 {
		second = atoiOrZero(runs[1])
	}
	return first, second
}

func atoiOrZero(run string) int {
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0
	}
	return n
}
