package workload

import (
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

// RowKind is the outcome of classifying a table row.
type RowKind int

const (
	RowCandidate RowKind = iota
	RowBoundary
	RowNoise
)

func (k RowKind) String() string {
	switch k {
	case RowBoundary:
		return "boundary"
	case RowNoise:
		return "noise"
	default:
		return "candidate"
	}
}

// classify checks boundary before noise. A boundary row may also contain
// noise keywords.
func (c *compiled) classify(row convert.Row) RowKind {
	blob := row.Blob()
	if c.isBoundary(blob) {
		return RowBoundary
	}
	for _, kw := range c.noise {
		if kw != "" && strings.Contains(blob, kw) {
			return RowNoise
		}
	}
	return RowCandidate
}

func (c *compiled) isBoundary(blob string) bool {
	if !strings.Contains(blob, c.boundary.Required) {
		return false
	}
	for _, tok := range c.boundary.AnyOf {
		if tok != "" && strings.Contains(blob, tok) {
			return true
		}
	}
	upper := strings.ToUpper(blob)
	for _, tok := range c.boundary.AnyOfUpper {
		if tok != "" && strings.Contains(upper, tok) {
			return true
		}
	}
	return false
}
