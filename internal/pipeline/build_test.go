package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/toricodesthings/workload-parser/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Load()
	cfg.PatternsFile = ""
	cfg.MistralAPIKey = ""

	p, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}

	path := filepath.Join(t.TempDir(), "load.md")
	body := "| Дисципліни | Шифр | К-ть |\n|---|---|---|\n| Бази даних | 205-4 | 18 |\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(res.Disciplines) != 1 || res.Disciplines[0].Course != 4 || res.Disciplines[0].Students != 18 {
		t.Fatalf("unexpected result %+v", res.Disciplines)
	}
}

func TestFromConfigRejectsBadPatterns(t *testing.T) {
	cfg := config.Load()
	cfg.PatternsFile = filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(cfg.PatternsFile, []byte("anchor: \"(\\\\d+\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := FromConfig(cfg, nil); err == nil {
		t.Fatalf("expected pattern compile error")
	}
}
