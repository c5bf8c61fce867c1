package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/xuri/excelize/v2"
)

type XLSXConverter struct {
	maxBytes int64
}

func NewXLSX(maxBytes int64) *XLSXConverter {
	return &XLSXConverter{maxBytes: maxBytes}
}

func (c *XLSXConverter) Name() string       { return "document/xlsx" }
func (c *XLSXConverter) MaxFileSize() int64 { return c.maxBytes }
func (c *XLSXConverter) SupportedTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
}
func (c *XLSXConverter) SupportedExtensions() []string { return []string{".xlsx"} }

// Convert turns every non-empty sheet into one table. Cells covered by a
// merge are empty in excelize output and so become absent cells.
func (c *XLSXConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	select {
	case <-ctx.Done():
		return convert.Document{}, ctx.Err()
	default:
	}

	f, err := excelize.OpenFile(job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var tables []convert.Table
	var sections []string
	totalRows := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		t := convert.TableFromStrings(rows)
		if len(t.Rows) == 0 {
			continue
		}
		totalRows += len(t.Rows)
		tables = append(tables, t)
		sections = append(sections, "## Sheet: "+sheet+"\n\n"+t.Markdown())
	}

	return convert.Document{
		FullText: strings.Join(sections, "\n\n"),
		Tables:   tables,
		Format:   c.Name(),
		Metadata: map[string]string{
			"sheets":    fmt.Sprintf("%d", len(sheets)),
			"totalRows": fmt.Sprintf("%d", totalRows),
		},
	}, nil
}
