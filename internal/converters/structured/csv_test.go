package structured

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

func convertCSV(t *testing.T, body string) convert.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "load.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := NewCSV(0).Convert(context.Background(), convert.Job{LocalPath: path, FileName: "load.csv"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return doc
}

func TestCSVConvertSemicolonDelimited(t *testing.T) {
	doc := convertCSV(t, "\xef\xbb\xbfДисципліни;Шифр;К-ть\n\nБази даних;205-1;25\nОС;;\n")

	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	rows := doc.Tables[0].Rows
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].At(0).Text != "Дисципліни" {
		t.Fatalf("expected BOM stripped, got %q", rows[0].At(0).Text)
	}
	if rows[1].At(1).Text != "205-1" || rows[2].At(1).Present {
		t.Fatalf("unexpected cells %+v %+v", rows[1], rows[2])
	}
	if doc.Metadata["delimiter"] != ";" || doc.Metadata["columns"] != "3" {
		t.Fatalf("unexpected metadata %v", doc.Metadata)
	}
}

func TestCSVConvertTabDelimited(t *testing.T) {
	doc := convertCSV(t, "Бази даних\t205-1\t25\n")
	if doc.Metadata["delimiter"] != "\t" {
		t.Fatalf("expected tab delimiter, got %q", doc.Metadata["delimiter"])
	}
}

func TestCSVConvertSingleColumnHasNoTables(t *testing.T) {
	doc := convertCSV(t, "просто текст\nще рядок\n")
	if len(doc.Tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(doc.Tables))
	}
	if doc.FullText != "просто текст\nще рядок" {
		t.Fatalf("unexpected text %q", doc.FullText)
	}
}
