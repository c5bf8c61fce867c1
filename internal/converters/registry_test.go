package converters

import (
	"testing"

	"github.com/toricodesthings/workload-parser/internal/config"
)

func TestNewRegistryResolvesSupportedFormats(t *testing.T) {
	reg := NewRegistry(config.Load(), nil)

	cases := []struct {
		mime, ext, want string
	}{
		{"application/pdf", ".pdf", "document/pdf"},
		{"application/zip", ".docx", "document/docx"},
		{"application/zip", ".xlsx", "document/xlsx"},
		{"application/msword", ".doc", "document/legacy-office"},
		{"application/vnd.ms-excel", "", "document/legacy-office"},
		{"application/zip", ".ods", "document/opendocument"},
		{"text/html; charset=utf-8", "", "document/html"},
		{"text/plain; charset=utf-8", ".csv", "structured/csv"},
		{"text/plain; charset=utf-8", "", "document/markdown"},
	}
	for _, c := range cases {
		conv, err := reg.Resolve(c.mime, c.ext)
		if err != nil {
			t.Fatalf("resolve(%q, %q): %v", c.mime, c.ext, err)
		}
		if conv.Name() != c.want {
			t.Fatalf("resolve(%q, %q) = %s, want %s", c.mime, c.ext, conv.Name(), c.want)
		}
	}

	if _, err := reg.Resolve("image/png", ".png"); err == nil {
		t.Fatalf("expected images to be unsupported")
	}
}
