package workload

import (
	"log/slog"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

// walk visits tables and rows in document order. Semester state carries
// across table boundaries.
func (c *compiled) walk(tables []convert.Table, logger *slog.Logger) []Discipline {
	out := make([]Discipline, 0)
	state := newSemesterState()

	for ti, table := range tables {
		logger.Debug("walking table", "table", ti+1, "rows", len(table.Rows), "cols", table.Width())

		for _, row := range table.Rows {
			switch c.classify(row) {
			case RowBoundary:
				if state.advance() {
					logger.Debug("semester boundary", "table", ti+1, "semester", int(state.current))
				}
				continue
			case RowNoise:
				continue
			}

			d, ok := c.parseRow(row, state.current)
			if !ok {
				continue
			}
			logger.Debug("discipline",
				"name", d.Name, "specialty", d.Specialty, "course", d.Course, "semester", d.Semester)
			out = append(out, d)
		}
	}
	return out
}
