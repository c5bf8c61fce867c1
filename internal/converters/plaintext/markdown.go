package plaintext

import (
	"context"
	"os"
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var gfm = goldmark.New(goldmark.WithExtensions(extension.Table))

type MarkdownConverter struct {
	maxBytes int64
}

func NewMarkdown(maxBytes int64) *MarkdownConverter { return &MarkdownConverter{maxBytes: maxBytes} }

func (c *MarkdownConverter) Name() string       { return "document/markdown" }
func (c *MarkdownConverter) MaxFileSize() int64 { return c.maxBytes }
func (c *MarkdownConverter) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown", "text/plain"}
}
func (c *MarkdownConverter) SupportedExtensions() []string { return []string{".md", ".markdown", ".txt"} }

// Convert keeps the source as full text and lifts GFM pipe tables.
func (c *MarkdownConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	select {
	case <-ctx.Done():
		return convert.Document{}, ctx.Err()
	default:
	}
	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}
	return convert.Document{
		FullText: strings.TrimSpace(string(b)),
		Tables:   MarkdownTables(b),
		Format:   c.Name(),
	}, nil
}

// MarkdownTables parses src as GitHub-flavoured markdown and returns its
// pipe tables in document order. The header row is the first row.
func MarkdownTables(src []byte) []convert.Table {
	doc := gfm.Parser().Parse(text.NewReader(src))

	var tables []convert.Table
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		tbl, ok := n.(*east.Table)
		if !ok {
			return ast.WalkContinue, nil
		}
		var t convert.Table
		for r := tbl.FirstChild(); r != nil; r = r.NextSibling() {
			var row convert.Row
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				if _, ok := cell.(*east.TableCell); ok {
					row = append(row, convert.TextCell(inlineText(cell, src)))
				}
			}
			if !row.Empty() {
				t.Rows = append(t.Rows, row)
			}
		}
		if len(t.Rows) > 0 {
			tables = append(tables, t)
		}
		return ast.WalkSkipChildren, nil
	})
	return tables
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
