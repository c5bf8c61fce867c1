package office

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

func TestLegacyTarget(t *testing.T) {
	cases := []struct {
		job  convert.Job
		want string
	}{
		{convert.Job{FileName: "load.doc"}, "docx"},
		{convert.Job{FileName: "load.RTF"}, "docx"},
		{convert.Job{FileName: "load.xls"}, "xlsx"},
		{convert.Job{LocalPath: "/tmp/x/input.xls"}, "xlsx"},
		{convert.Job{FileName: "upload", MIMEType: "application/vnd.ms-excel"}, "xlsx"},
	}
	for _, c := range cases {
		if got := legacyTarget(c.job); got != c.want {
			t.Fatalf("legacyTarget(%+v) = %q, want %q", c.job, got, c.want)
		}
	}
}

func TestLegacyConvertMissingBinary(t *testing.T) {
	c := NewLegacy(filepath.Join(t.TempDir(), "no-soffice"), time.Second, 0)
	_, err := c.Convert(context.Background(), convert.Job{LocalPath: filepath.Join(t.TempDir(), "a.doc"), FileName: "a.doc"})
	if err == nil {
		t.Fatalf("expected error when libreoffice is unavailable")
	}
}
