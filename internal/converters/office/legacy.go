package office

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

// LegacyConverter upgrades binary office formats with LibreOffice and hands
// the result to the matching OOXML converter.
type LegacyConverter struct {
	binary  string
	timeout time.Duration
	maxSize int64
	docx    *DOCXConverter
	xlsx    *XLSXConverter
}

func NewLegacy(binary string, timeout time.Duration, maxSize int64) *LegacyConverter {
	if strings.TrimSpace(binary) == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LegacyConverter{
		binary:  binary,
		timeout: timeout,
		maxSize: maxSize,
		docx:    NewDOCX(maxSize),
		xlsx:    NewXLSX(maxSize),
	}
}

func (c *LegacyConverter) Name() string       { return "document/legacy-office" }
func (c *LegacyConverter) MaxFileSize() int64 { return c.maxSize }
func (c *LegacyConverter) SupportedTypes() []string {
	return []string{"application/msword", "application/vnd.ms-excel", "application/rtf", "text/rtf"}
}
func (c *LegacyConverter) SupportedExtensions() []string { return []string{".doc", ".xls", ".rtf"} }

func (c *LegacyConverter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	target := legacyTarget(job)

	localCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outDir := filepath.Dir(job.LocalPath)
	cmd := exec.CommandContext(localCtx, c.binary, "--headless", "--convert-to", target, "--outdir", outDir, job.LocalPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return convert.Document{}, fmt.Errorf("libreoffice conversion failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	converted := job
	converted.LocalPath = strings.TrimSuffix(job.LocalPath, filepath.Ext(job.LocalPath)) + "." + target
	converted.FileName = strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName)) + "." + target

	var (
		doc convert.Document
		err error
	)
	if target == "xlsx" {
		doc, err = c.xlsx.Convert(ctx, converted)
	} else {
		doc, err = c.docx.Convert(ctx, converted)
	}
	if err != nil {
		return convert.Document{}, err
	}
	doc.Format = c.Name()
	return doc, nil
}

// legacyTarget picks the OOXML format LibreOffice should produce.
func legacyTarget(job convert.Job) string {
	ext := strings.ToLower(filepath.Ext(job.FileName))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(job.LocalPath))
	}
	if ext == ".xls" || strings.HasPrefix(job.MIMEType, "application/vnd.ms-excel") {
		return "xlsx"
	}
	return "docx"
}
