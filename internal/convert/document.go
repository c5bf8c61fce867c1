package convert

import "strings"

// Cell is one table cell. Present is false when the source had no value.
type Cell struct {
	Text    string
	Present bool
}

// Row is an ordered sequence of cells.
type Row []Cell

// Table is an ordered sequence of rows. Rows may differ in length.
type Table struct {
	Rows []Row
}

// Document is what every converter hands to the workload parser.
type Document struct {
	FullText string
	Tables   []Table
	Format   string
	Metadata map[string]string
}

// TextCell builds a cell from raw text; blank text yields an absent cell.
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Text: s, Present: true}
}

// RowFromStrings converts plain strings into a row using TextCell.
func RowFromStrings(values []string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = TextCell(v)
	}
	return row
}

// TableFromStrings converts a string grid into a table, dropping rows with
// no present cells.
func TableFromStrings(grid [][]string) Table {
	t := Table{Rows: make([]Row, 0, len(grid))}
	for _, values := range grid {
		row := RowFromStrings(values)
		if row.Empty() {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Empty reports whether the row has no present cells.
func (r Row) Empty() bool {
	for _, c := range r {
		if c.Present {
			return false
		}
	}
	return true
}

// Blob joins all present cells with single spaces.
func (r Row) Blob() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		if c.Present {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// At returns the cell at idx, or an absent cell when idx is out of range.
func (r Row) At(idx int) Cell {
	if idx < 0 || idx >= len(r) {
		return Cell{}
	}
	return r[idx]
}

// Width returns the widest row length.
func (t Table) Width() int {
	w := 0
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Markdown renders the table as a pipe table, padding short rows.
func (t Table) Markdown() string {
	if len(t.Rows) == 0 {
		return ""
	}
	width := t.Width()
	line := func(r Row) string {
		cells := make([]string, width)
		for i := range cells {
			cells[i] = strings.ReplaceAll(r.At(i).Text, "|", "\\|")
		}
		return "| " + strings.Join(cells, " | ") + " |\n"
	}

	var sb strings.Builder
	sb.WriteString(line(t.Rows[0]))
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range t.Rows[1:] {
		sb.WriteString(line(r))
	}
	return sb.String()
}

// BuildCounts returns word and rune counts for text.
func BuildCounts(text string) (wordCount int, charCount int) {
	charCount = len([]rune(text))
	wordCount = 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if inWord {
				wordCount++
				inWord = false
			}
			continue
		}
		inWord = true
	}
	if inWord {
		wordCount++
	}
	return
}
