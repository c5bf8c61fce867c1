package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Engine resolves a converter for a job and runs it. It holds no per-call
// state and is shared by all requests once built.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Convert turns the job's file into a Document.
func (e *Engine) Convert(ctx context.Context, job Job) (Document, error) {
	name := job.FileName
	if strings.TrimSpace(name) == "" {
		name = job.LocalPath
	}
	ext := strings.ToLower(filepath.Ext(name))

	conv, err := e.registry.Resolve(job.MIMEType, ext)
	if err != nil {
		return Document{}, err
	}

	if max := conv.MaxFileSize(); max > 0 && job.FileSize > max {
		return Document{}, fmt.Errorf("%w: file exceeds converter limit (%dMB)", ErrTooLarge, max/(1<<20))
	}

	e.logger.Debug("converting document", "file", name, "mime", job.MIMEType, "converter", conv.Name())

	doc, err := conv.Convert(ctx, job)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", conv.Name(), err)
	}
	if doc.Format == "" {
		doc.Format = conv.Name()
	}

	e.logger.Info("document converted", "file", name, "converter", conv.Name(), "tables", len(doc.Tables))
	return doc, nil
}

// ConvertFile converts a file already on disk, sniffing its MIME type.
func (e *Engine) ConvertFile(ctx context.Context, path string) (Document, error) {
	job, err := FileJob(path)
	if err != nil {
		return Document{}, err
	}
	return e.Convert(ctx, job)
}

// FileJob describes a local file as a conversion job.
func FileJob(path string) (Job, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Job{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Job{}, errors.New("path is a directory")
	}
	return Job{
		LocalPath: path,
		FileName:  filepath.Base(path),
		MIMEType:  sniffMIMEType(path),
		FileSize:  info.Size(),
	}, nil
}
