// Package pipeline converts a document and runs the workload parser over it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/toricodesthings/workload-parser/internal/workload"
)

// ErrDocument marks failures caused by the document itself rather than the
// request that carried it.
var ErrDocument = errors.New("document could not be parsed")

// SuccessHook observes every successfully parsed document.
type SuccessHook func(format string, fileSize int64, disciplines int, duration time.Duration)

// Config holds the collaborators of a Pipeline.
type Config struct {
	Engine          *convert.Engine
	Parser          *workload.Parser
	MaxFileBytes    int64
	DownloadTimeout time.Duration
	Logger          *slog.Logger
}

// Pipeline turns uploads, URLs and local files into workload results.
// It is safe for concurrent use.
type Pipeline struct {
	engine          *convert.Engine
	parser          *workload.Parser
	maxFileBytes    int64
	downloadTimeout time.Duration
	logger          *slog.Logger

	hookMu sync.RWMutex
	onDone SuccessHook
}

// New builds a Pipeline; a nil Logger falls back to slog.Default.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		engine:          cfg.Engine,
		parser:          cfg.Parser,
		maxFileBytes:    cfg.MaxFileBytes,
		downloadTimeout: cfg.DownloadTimeout,
		logger:          cfg.Logger,
	}
}

// SetSuccessHook registers h to run after each successfully parsed document.
func (p *Pipeline) SetSuccessHook(h SuccessHook) {
	p.hookMu.Lock()
	p.onDone = h
	p.hookMu.Unlock()
}

// Process converts the file described by job and parses the result.
func (p *Pipeline) Process(ctx context.Context, job convert.Job) (res workload.Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while parsing document", "file", job.FileName, "panic", r, "stack", string(debug.Stack()))
			res = workload.Result{}
			err = fmt.Errorf("%w: internal error: %v", ErrDocument, r)
		}
	}()

	doc, err := p.engine.Convert(ctx, job)
	if err != nil {
		if errors.Is(err, convert.ErrUnsupported) || errors.Is(err, convert.ErrTooLarge) || ctx.Err() != nil {
			return workload.Result{}, err
		}
		return workload.Result{}, fmt.Errorf("%w: %w", ErrDocument, err)
	}

	res = p.parser.Parse(doc)
	p.logger.Info("document parsed",
		"file", job.FileName,
		"format", doc.Format,
		"tables", len(doc.Tables),
		"disciplines", len(res.Disciplines),
		"signatures", len(res.Metadata),
		"duration", time.Since(start))

	p.hookMu.RLock()
	hook := p.onDone
	p.hookMu.RUnlock()
	if hook != nil {
		hook(doc.Format, job.FileSize, len(res.Disciplines), time.Since(start))
	}
	return res, nil
}

// ProcessUpload stores body in a private temp dir and processes it.
func (p *Pipeline) ProcessUpload(ctx context.Context, body io.Reader, fileName string) (workload.Result, error) {
	tmp, err := convert.SaveBodyToTemp(body, fileName, p.maxFileBytes)
	if err != nil {
		return workload.Result{}, err
	}
	defer tmp.Cleanup()
	return p.Process(ctx, tmp.Job())
}

// URLRequest is the JSON body of a parse-by-URL request.
type URLRequest struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// ProcessURL downloads the document over HTTPS and processes it.
func (p *Pipeline) ProcessURL(ctx context.Context, req URLRequest) (workload.Result, error) {
	if strings.TrimSpace(req.URL) == "" {
		return workload.Result{}, errors.New("url required")
	}

	dl, err := convert.DownloadToTemp(ctx, req.URL, strings.TrimSpace(req.FileName), p.maxFileBytes, p.downloadTimeout)
	if err != nil {
		return workload.Result{}, err
	}
	defer dl.Cleanup()
	return p.Process(ctx, dl.Job())
}

// ProcessFile processes a document already on disk.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (workload.Result, error) {
	job, err := convert.FileJob(path)
	if err != nil {
		return workload.Result{}, err
	}
	return p.Process(ctx, job)
}
