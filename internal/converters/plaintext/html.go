package plaintext

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/toricodesthings/workload-parser/internal/convert"
	"golang.org/x/net/html"
)

const (
	maxColspan = 64
	maxRowspan = 1024
)

type HTMLConverter struct {
	maxBytes int64
	md       *converter.Converter
}

func NewHTML(maxBytes int64) *HTMLConverter {
	return &HTMLConverter{
		maxBytes: maxBytes,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (c *HTMLConverter) Name() string             { return "document/html" }
func (c *HTMLConverter) MaxFileSize() int64       { return c.maxBytes }
func (c *HTMLConverter) SupportedTypes() []string { return []string{"text/html", "application/xhtml+xml"} }
func (c *HTMLConverter) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

func (c *HTMLConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	select {
	case <-ctx.Done():
		return convert.Document{}, ctx.Err()
	default:
	}
	b, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}

	node, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return convert.Document{}, err
	}

	meta := map[string]string{}
	tables := htmlTables(node, meta)

	text, err := c.md.ConvertString(string(b))
	if err != nil {
		text = htmlNodeText(node)
	}

	return convert.Document{
		FullText: strings.TrimSpace(text),
		Tables:   tables,
		Format:   c.Name(),
		Metadata: meta,
	}, nil
}

// htmlTables returns every <table> in document order. Nested tables are
// returned separately and do not contribute rows to their parent.
func htmlTables(root *html.Node, meta map[string]string) []convert.Table {
	var tables []convert.Table
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if t := strings.TrimSpace(htmlNodeText(n)); t != "" {
					meta["title"] = t
				}
			case "table":
				if t := htmlTable(n); len(t.Rows) > 0 {
					tables = append(tables, t)
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(root)
	return tables
}

func htmlTable(tbl *html.Node) convert.Table {
	var t convert.Table
	var carry []int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			switch ch.Data {
			case "table":
				continue
			case "tr":
				var row convert.Row
				row, carry = htmlRow(ch, carry)
				if !row.Empty() {
					t.Rows = append(t.Rows, row)
				}
			default:
				walk(ch)
			}
		}
	}
	walk(tbl)
	return t
}

// htmlRow reads the td/th children of a <tr>. A colspan keeps the text in
// the first column and pads the rest with absent cells. carry holds, per
// column, how many more rows a rowspan above still covers; those columns
// are absent in this row. The updated carry is returned.
func htmlRow(tr *html.Node, carry []int) (convert.Row, []int) {
	var row convert.Row
	covered := func() {
		for len(row) < len(carry) && carry[len(row)] > 0 {
			carry[len(row)]--
			row = append(row, convert.Cell{})
		}
	}

	for ch := tr.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode || (ch.Data != "td" && ch.Data != "th") {
			continue
		}
		covered()

		colspan := spanAttr(ch, "colspan", maxColspan)
		rowspan := spanAttr(ch, "rowspan", maxRowspan)
		for i := 0; i < colspan; i++ {
			if i == 0 {
				row = append(row, convert.TextCell(strings.Join(strings.Fields(htmlNodeText(ch)), " ")))
			} else {
				row = append(row, convert.Cell{})
			}
			col := len(row) - 1
			for len(carry) <= col {
				carry = append(carry, 0)
			}
			carry[col] = rowspan - 1
		}
	}

	// Rowspans reaching past the last cell of this row.
	for col := len(row); col < len(carry); col++ {
		if carry[col] > 0 {
			for len(row) < col {
				row = append(row, convert.Cell{})
			}
			covered()
		}
	}
	return row, carry
}

// spanAttr reads a colspan/rowspan value, clamped to [1, limit].
func spanAttr(n *html.Node, key string, limit int) int {
	v, err := strconv.Atoi(htmlAttr(n, key))
	if err != nil || v < 1 {
		return 1
	}
	return min(v, limit)
}

func htmlAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func htmlNodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(htmlNodeText(c))
		if c.Type == html.ElementNode && (c.Data == "br" || c.Data == "p" || c.Data == "div") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
