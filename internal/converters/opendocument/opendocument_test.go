package opendocument

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

const contentXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0">
<office:body><office:text>
<text:h text:outline-level="2">Навантаження</text:h>
<table:table table:name="T1">
<table:table-column table:number-columns-repeated="4"/>
<table:table-row>
<table:table-cell table:number-columns-spanned="2"><text:p>Дисципліни</text:p></table:table-cell>
<table:covered-table-cell/>
<table:table-cell><text:p>Шифр</text:p></table:table-cell>
</table:table-row>
<table:table-row>
<table:table-cell><text:p>Бази<text:s/>даних</text:p></table:table-cell>
<table:table-cell/>
<table:table-cell><text:p>205-1</text:p></table:table-cell>
<table:table-cell table:number-columns-repeated="1020"/>
</table:table-row>
<table:table-row table:number-rows-repeated="1000"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
</table:table>
<text:p>Декан факультету доц. В.М. Теслюк</text:p>
</office:text></office:body>
</office:document-content>`

const metaXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<office:meta><dc:title>Навантаження</dc:title><meta:initial-creator>Кафедра</meta:initial-creator></office:meta>
</office:document-meta>`

func writeODF(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "load.odt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestConvertTables(t *testing.T) {
	path := writeODF(t, map[string]string{"content.xml": contentXML, "meta.xml": metaXML})

	doc, err := New(0).Convert(context.Background(), convert.Job{LocalPath: path, FileName: "load.odt"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}

	rows := doc.Tables[0].Rows
	if len(rows) != 2 {
		t.Fatalf("expected repeated empty rows dropped, got %d rows", len(rows))
	}
	if len(rows[0]) != 3 || rows[0][1].Present || rows[0][2].Text != "Шифр" {
		t.Fatalf("covered cell should be absent: %+v", rows[0])
	}
	if len(rows[1]) != 3 {
		t.Fatalf("expected trailing repeated cells trimmed, got %d cells", len(rows[1]))
	}
	if rows[1][0].Text != "Бази даних" || rows[1][1].Present || rows[1][2].Text != "205-1" {
		t.Fatalf("unexpected row %+v", rows[1])
	}

	if !strings.HasPrefix(doc.FullText, "## Навантаження") {
		t.Fatalf("expected heading first, got %q", doc.FullText)
	}
	if !strings.Contains(doc.FullText, "доц. В.М. Теслюк") {
		t.Fatalf("expected paragraph text, got %q", doc.FullText)
	}
	if doc.Metadata["title"] != "Навантаження" || doc.Metadata["author"] != "Кафедра" {
		t.Fatalf("unexpected metadata %v", doc.Metadata)
	}
}

func TestConvertMissingContent(t *testing.T) {
	path := writeODF(t, map[string]string{"meta.xml": metaXML})
	if _, err := New(0).Convert(context.Background(), convert.Job{LocalPath: path}); err == nil {
		t.Fatalf("expected error without content.xml")
	}
}

func TestRepeatCountIsCapped(t *testing.T) {
	row := odfCollectTableRowFrom(t, `<table:table-row xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"><table:table-cell table:number-columns-repeated="100000"><text:p>x</text:p></table:table-cell></table:table-row>`)
	if len(row) != maxRepeat {
		t.Fatalf("expected %d cells, got %d", maxRepeat, len(row))
	}
}

func odfCollectTableRowFrom(t *testing.T, src string) convert.Row {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(src))
	if _, err := dec.Token(); err != nil {
		t.Fatalf("token: %v", err)
	}
	return odfCollectTableRow(dec)
}
