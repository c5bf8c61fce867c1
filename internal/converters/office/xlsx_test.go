package office

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/xuri/excelize/v2"
)

func TestXLSXConvertOneTablePerSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load.xlsx")

	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"Дисципліни", "Шифр", "К-ть"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]any{"Бази даних", "205-1", 25})
	if _, err := f.NewSheet("Другий"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	_ = f.SetSheetRow("Другий", "A1", &[]any{"Операційні системи", "", "205-2"})
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	doc, err := NewXLSX(0).Convert(context.Background(), convert.Job{LocalPath: path, FileName: "load.xlsx"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(doc.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(doc.Tables))
	}
	if len(doc.Tables[0].Rows) != 2 {
		t.Fatalf("expected blank row dropped, got %d rows", len(doc.Tables[0].Rows))
	}
	if got := doc.Tables[0].Rows[1].At(2).Text; got != "25" {
		t.Fatalf("expected numeric cell as text, got %q", got)
	}
	if doc.Tables[1].Rows[0].At(1).Present {
		t.Fatalf("expected blank cell to be absent")
	}
	if doc.Metadata["sheets"] != "3" || doc.Metadata["totalRows"] != "3" {
		t.Fatalf("unexpected metadata %v", doc.Metadata)
	}
}
