package structured

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

type CSVConverter struct {
	maxBytes int64
}

func NewCSV(maxBytes int64) *CSVConverter { return &CSVConverter{maxBytes: maxBytes} }

func (c *CSVConverter) Name() string       { return "structured/csv" }
func (c *CSVConverter) MaxFileSize() int64 { return c.maxBytes }
func (c *CSVConverter) SupportedTypes() []string {
	return []string{"text/csv", "text/tab-separated-values"}
}
func (c *CSVConverter) SupportedExtensions() []string { return []string{".csv", ".tsv"} }

// Convert reads the whole file as a single table. Files that do not parse as
// delimited records still produce a document with text and no tables.
func (c *CSVConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	select {
	case <-ctx.Done():
		return convert.Document{}, ctx.Err()
	default:
	}

	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	recs, delim, err := readRecords(b)
	if err != nil {
		return convert.Document{FullText: strings.TrimSpace(string(b)), Format: c.Name()}, nil
	}

	t := convert.TableFromStrings(recs)
	return convert.Document{
		FullText: strings.TrimSpace(string(b)),
		Tables:   []convert.Table{t},
		Format:   c.Name(),
		Metadata: map[string]string{
			"rows":      fmt.Sprintf("%d", len(t.Rows)),
			"columns":   fmt.Sprintf("%d", t.Width()),
			"delimiter": string(delim),
		},
	}, nil
}

// readRecords tries common delimiters and keeps the first that yields more
// than one column.
func readRecords(b []byte) ([][]string, rune, error) {
	for _, d := range []rune{',', '\t', ';', '|'} {
		r := csv.NewReader(bytes.NewReader(b))
		r.Comma = d
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		recs, err := r.ReadAll()
		if err == nil && len(recs) > 0 && maxCols(recs) > 1 {
			return recs, d, nil
		}
	}
	return nil, ',', fmt.Errorf("unable to parse CSV/TSV")
}

func maxCols(recs [][]string) int {
	m := 0
	for _, row := range recs {
		if len(row) > m {
			m = len(row)
		}
	}
	return m
}
