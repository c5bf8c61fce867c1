package office

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

// maxSpan bounds gridSpan expansion so a corrupt file cannot blow up a row.
const maxSpan = 64

type DOCXConverter struct {
	maxBytes int64
}

func NewDOCX(maxBytes int64) *DOCXConverter {
	return &DOCXConverter{maxBytes: maxBytes}
}

func (c *DOCXConverter) Name() string       { return "document/docx" }
func (c *DOCXConverter) MaxFileSize() int64 { return c.maxBytes }
func (c *DOCXConverter) SupportedTypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
}
func (c *DOCXConverter) SupportedExtensions() []string { return []string{".docx"} }

func (c *DOCXConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	select {
	case <-ctx.Done():
		return convert.Document{}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}
	defer zr.Close()

	body, err := readZipFile(&zr.Reader, "word/document.xml", maxZipEntryBytes)
	if err != nil {
		return convert.Document{}, err
	}

	text, tables := docxDocument(body)
	return convert.Document{
		FullText: text,
		Tables:   tables,
		Format:   c.Name(),
		Metadata: parseCoreMetadata(&zr.Reader),
	}, nil
}

// docxDocument walks word/document.xml. Paragraphs become text lines and
// every top-level w:tbl becomes a table; tables are also rendered into the
// text so signature lines inside layout tables are still searchable.
func docxDocument(b []byte) (string, []convert.Table) {
	dec := xml.NewDecoder(bytes.NewReader(b))

	var blocks []string
	var tables []convert.Table
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			if p := docxParagraph(dec); p != "" {
				blocks = append(blocks, p)
			}
		case "tbl":
			t := docxTable(dec)
			if len(t.Rows) == 0 {
				continue
			}
			tables = append(tables, t)
			blocks = append(blocks, strings.TrimSpace(t.Markdown()))
		}
	}
	return strings.Join(blocks, "\n\n"), tables
}

// docxParagraph reads one <w:p> and returns it as a markdown line.
func docxParagraph(dec *xml.Decoder) string {
	var style, numID string
	var sb strings.Builder
	inText := false
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				style = attr(t, "val")
			case "numId":
				numID = attr(t, "val")
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return ""
	}
	if h := headingLevel(style); h > 0 {
		return strings.Repeat("#", h) + " " + text
	}
	if numID != "" && numID != "0" {
		return "- " + text
	}
	return text
}

// headingLevel returns the markdown heading level for OOXML paragraph styles.
func headingLevel(style string) int {
	s := strings.ToLower(style)
	if s == "title" {
		return 1
	}
	if s == "subtitle" {
		return 2
	}
	if strings.HasPrefix(s, "heading") {
		n := strings.TrimPrefix(s, "heading")
		if len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
			return int(n[0] - '0')
		}
	}
	return 0
}

// docxTable reads one <w:tbl>. Horizontally merged cells (gridSpan) keep
// their text in the first column and add absent cells for the rest;
// vertically merged continuation cells are absent.
func docxTable(dec *xml.Decoder) convert.Table {
	var t convert.Table
	for {
		tok, err := dec.Token()
		if err != nil {
			return t
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "tr" {
				if row := docxRow(dec); !row.Empty() {
					t.Rows = append(t.Rows, row)
				}
				continue
			}
			_ = dec.Skip()
		case xml.EndElement:
			return t
		}
	}
}

func docxRow(dec *xml.Decoder) convert.Row {
	var row convert.Row
	for {
		tok, err := dec.Token()
		if err != nil {
			return row
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "tc" {
				cell, span := docxCell(dec)
				row = append(row, cell)
				for i := 1; i < span; i++ {
					row = append(row, convert.Cell{})
				}
				continue
			}
			_ = dec.Skip()
		case xml.EndElement:
			return row
		}
	}
}

func docxCell(dec *xml.Decoder) (convert.Cell, int) {
	span := 1
	continued := false
	var parts []string

loop:
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tcPr":
				span, continued = docxCellProps(dec)
			case "p", "tbl":
				if s := collectRunText(dec); s != "" {
					parts = append(parts, s)
				}
			default:
				_ = dec.Skip()
			}
		case xml.EndElement:
			break loop
		}
	}

	if continued {
		return convert.Cell{}, span
	}
	return convert.TextCell(strings.Join(parts, " ")), span
}

func docxCellProps(dec *xml.Decoder) (span int, continued bool) {
	span = 1
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch el.Name.Local {
			case "gridSpan":
				if n, err := strconv.Atoi(attr(el, "val")); err == nil && n > 1 {
					span = min(n, maxSpan)
				}
			case "vMerge":
				v := attr(el, "val")
				continued = v == "" || v == "continue"
			}
		case xml.EndElement:
			depth--
		}
	}
	return span, continued
}

// collectRunText gathers w:t text until the end of the current element.
func collectRunText(dec *xml.Decoder) string {
	var sb strings.Builder
	inText := false
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab", "br", "cr":
				sb.WriteString(" ")
			}
		case xml.EndElement:
			depth--
			if el.Name.Local == "t" {
				inText = false
			}
			if el.Name.Local == "p" && depth > 0 {
				sb.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// parseCoreMetadata extracts title, author and dates from docProps/core.xml.
func parseCoreMetadata(zr *zip.Reader) map[string]string {
	b, err := readZipFile(zr, "docProps/core.xml", 1<<20)
	if err != nil {
		return nil
	}

	meta := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(b))
	var currentTag string

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			currentTag = t.Name.Local
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			switch currentTag {
			case "title":
				meta["title"] = val
			case "creator":
				meta["author"] = val
			case "created":
				meta["created"] = val
			case "modified":
				meta["modified"] = val
			}
		case xml.EndElement:
			currentTag = ""
		}
	}

	if len(meta) == 0 {
		return nil
	}
	return meta
}
