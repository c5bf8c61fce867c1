// Package converters assembles the converter registry used by the server
// and the CLI.
package converters

import (
	"log/slog"

	"github.com/toricodesthings/workload-parser/internal/config"
	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/toricodesthings/workload-parser/internal/converters/office"
	"github.com/toricodesthings/workload-parser/internal/converters/opendocument"
	"github.com/toricodesthings/workload-parser/internal/converters/pdf"
	"github.com/toricodesthings/workload-parser/internal/converters/plaintext"
	"github.com/toricodesthings/workload-parser/internal/converters/structured"
	"github.com/toricodesthings/workload-parser/internal/ocr"
	"github.com/toricodesthings/workload-parser/internal/poppler"
)

// NewRegistry registers every supported format. Later registrations win
// for a shared extension or MIME type.
func NewRegistry(cfg config.Config, logger *slog.Logger) *convert.Registry {
	if logger == nil {
		logger = slog.Default()
	}

	ocrClient := ocr.New(ocr.Config{
		APIKey:        cfg.MistralAPIKey,
		URL:           cfg.OCRURL,
		Model:         cfg.OCRModel,
		Timeout:       cfg.OCRTimeout,
		MaxConcurrent: cfg.MaxOCRConcurrent,
		RetryDelay:    cfg.OCRRetryBackoff,
		Logger:        logger.With("component", "ocr"),
	})
	runner := poppler.New(poppler.Config{
		PDFInfoTimeout:   cfg.PDFInfoTimeout,
		PDFToTextTimeout: cfg.PDFToTextTimeout,
	}, logger.With("component", "poppler"))

	registry := convert.NewRegistry()
	registry.Register(pdf.New(runner, ocrClient, pdf.Options{
		MaxBytes: cfg.MaxPDFBytes,
		MinWords: cfg.MinWords,
		Logger:   logger.With("component", "pdf"),
	}))
	registry.Register(plaintext.NewMarkdown(cfg.MaxUploadBytes))
	registry.Register(plaintext.NewHTML(cfg.MaxUploadBytes))
	registry.Register(structured.NewCSV(cfg.MaxUploadBytes))
	registry.Register(office.NewDOCX(cfg.MaxUploadBytes))
	registry.Register(office.NewXLSX(cfg.MaxUploadBytes))
	registry.Register(office.NewLegacy(cfg.LibreOfficeBinary, cfg.LibreOfficeTimeout, cfg.MaxUploadBytes))
	registry.Register(opendocument.New(cfg.MaxUploadBytes))
	return registry
}
