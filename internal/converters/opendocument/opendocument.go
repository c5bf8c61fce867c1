package opendocument

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

const (
	nsText  = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsTable = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"

	maxContentBytes = 64 << 20
	// Spreadsheets pad rows with huge repeat counts; expansion stops here.
	maxRepeat = 256
)

type Converter struct {
	maxBytes int64
}

func New(maxBytes int64) *Converter { return &Converter{maxBytes: maxBytes} }

func (c *Converter) Name() string       { return "document/opendocument" }
func (c *Converter) MaxFileSize() int64 { return c.maxBytes }
func (c *Converter) SupportedTypes() []string {
	return []string{"application/vnd.oasis.opendocument.text", "application/vnd.oasis.opendocument.spreadsheet"}
}
func (c *Converter) SupportedExtensions() []string { return []string{".odt", ".ods"} }

func (c *Converter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
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

	content, err := readEntry(&zr.Reader, "content.xml", maxContentBytes)
	if err != nil {
		return convert.Document{}, err
	}

	text, tables := odfDocument(content)
	return convert.Document{
		FullText: text,
		Tables:   tables,
		Format:   c.Name(),
		Metadata: odfParseMetadata(&zr.Reader),
	}, nil
}

func readEntry(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(b)) > limit {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, limit)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

// odfDocument walks content.xml, returning markdown text and every table.
func odfDocument(b []byte) (string, []convert.Table) {
	dec := xml.NewDecoder(strings.NewReader(string(b)))
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

		switch {
		case se.Name.Local == "h" && se.Name.Space == nsText:
			level := 1
			if v := odfAttr(se, "outline-level"); len(v) == 1 && v[0] >= '1' && v[0] <= '6' {
				level = int(v[0] - '0')
			}
			if text := odfCollectText(dec); text != "" {
				blocks = append(blocks, strings.Repeat("#", level)+" "+text)
			}

		case se.Name.Local == "p" && se.Name.Space == nsText:
			if text := odfCollectText(dec); text != "" {
				blocks = append(blocks, text)
			}

		case se.Name.Local == "table" && se.Name.Space == nsTable:
			t := odfCollectTable(dec)
			if len(t.Rows) == 0 {
				continue
			}
			tables = append(tables, t)
			blocks = append(blocks, strings.TrimSpace(t.Markdown()))
		}
	}

	return strings.Join(blocks, "\n\n"), tables
}

// odfCollectText reads all text inside an element until its closing tag.
func odfCollectText(dec *xml.Decoder) string {
	var sb strings.Builder
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
			case "tab":
				sb.WriteString("\t")
			case "line-break":
				sb.WriteString("\n")
			case "s":
				n, _ := strconv.Atoi(odfAttr(t, "c"))
				sb.WriteString(strings.Repeat(" ", max(n, 1)))
			case "p", "h":
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return strings.TrimSpace(sb.String())
}

func odfCollectTable(dec *xml.Decoder) convert.Table {
	var t convert.Table
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local != "table-row" {
				depth++
				continue
			}
			row := odfCollectTableRow(dec)
			if row.Empty() {
				continue
			}
			for i := 0; i < repeatCount(el, "number-rows-repeated"); i++ {
				t.Rows = append(t.Rows, row)
			}
		case xml.EndElement:
			depth--
		}
	}
	return t
}

// odfCollectTableRow reads one table-row. Covered cells produced by spans
// are absent, and trailing absent cells are trimmed.
func odfCollectTableRow(dec *xml.Decoder) convert.Row {
	var row convert.Row
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "table-cell":
				cell := convert.TextCell(odfCollectText(dec))
				for i := 0; i < repeatCount(el, "number-columns-repeated"); i++ {
					row = append(row, cell)
				}
			case "covered-table-cell":
				_ = dec.Skip()
				for i := 0; i < repeatCount(el, "number-columns-repeated"); i++ {
					row = append(row, convert.Cell{})
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	for len(row) > 0 && !row[len(row)-1].Present {
		row = row[:len(row)-1]
	}
	return row
}

func repeatCount(se xml.StartElement, name string) int {
	n, err := strconv.Atoi(odfAttr(se, name))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxRepeat)
}

func odfAttr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// odfParseMetadata reads meta.xml and extracts title, author and dates.
func odfParseMetadata(zr *zip.Reader) map[string]string {
	b, err := readEntry(zr, "meta.xml", 1<<20)
	if err != nil {
		return nil
	}

	meta := map[string]string{}
	dec := xml.NewDecoder(strings.NewReader(string(b)))
	var tag string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			tag = t.Name.Local
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" {
				continue
			}
			switch tag {
			case "title":
				meta["title"] = val
			case "initial-creator", "creator":
				meta["author"] = val
			case "creation-date":
				meta["created"] = val
			case "date":
				meta["modified"] = val
			case "subject":
				meta["subject"] = val
			}
		case xml.EndElement:
			tag = ""
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
