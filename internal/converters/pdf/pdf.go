package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/toricodesthings/workload-parser/internal/converters/plaintext"
	"github.com/toricodesthings/workload-parser/internal/ocr"
	"github.com/toricodesthings/workload-parser/internal/poppler"
)

// columnGap separates columns in pdftotext -layout output.
var columnGap = regexp.MustCompile(`\s{2,}`)

type textSource interface {
	Info(ctx context.Context, pdfPath string) (poppler.PDFInfo, error)
	LayoutText(ctx context.Context, pdfPath string) (string, error)
}

type ocrSource interface {
	Enabled() bool
	OCRDocument(ctx context.Context, pdf []byte) (ocr.Response, error)
}

type Options struct {
	MaxBytes int64
	// MinWords below which the text layer is considered missing and OCR
	// is attempted.
	MinWords int
	Logger   *slog.Logger
}

type Converter struct {
	text     textSource
	ocr      ocrSource
	maxBytes int64
	minWords int
	logger   *slog.Logger
}

func New(text *poppler.Runner, ocrClient *ocr.Client, opts Options) *Converter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Converter{text: text, maxBytes: opts.MaxBytes, minWords: opts.MinWords, logger: opts.Logger}
	if ocrClient != nil {
		c.ocr = ocrClient
	}
	return c
}

func (c *Converter) Name() string                  { return "document/pdf" }
func (c *Converter) MaxFileSize() int64            { return c.maxBytes }
func (c *Converter) SupportedTypes() []string      { return []string{"application/pdf"} }
func (c *Converter) SupportedExtensions() []string { return []string{".pdf"} }

func (c *Converter) Convert(ctx context.Context, job convert.Job) (convert.Document, error) {
	meta, err := c.inspect(ctx, job.LocalPath)
	if err != nil {
		return convert.Document{}, err
	}

	raw, textErr := c.text.LayoutText(ctx, job.LocalPath)
	doc := layoutDocument(raw)
	doc.Metadata = meta

	words, _ := convert.BuildCounts(doc.FullText)
	if textErr == nil && words >= c.minWords {
		doc.Metadata["method"] = "native"
		return doc, nil
	}

	if c.ocr == nil || !c.ocr.Enabled() {
		if textErr != nil {
			return convert.Document{}, textErr
		}
		doc.Metadata["method"] = "native"
		return doc, nil
	}

	c.logger.Info("pdf text layer too thin, using ocr", "file", job.FileName, "words", words, "textErr", textErr)
	ocrDoc, err := c.ocrDocument(ctx, job.LocalPath)
	if err != nil {
		if textErr != nil {
			return convert.Document{}, errors.Join(textErr, err)
		}
		c.logger.Warn("ocr failed, keeping native text", "file", job.FileName, "err", err)
		doc.Metadata["method"] = "native"
		return doc, nil
	}
	for k, v := range meta {
		ocrDoc.Metadata[k] = v
	}
	ocrDoc.Metadata["method"] = "ocr"
	return ocrDoc, nil
}

// inspect validates the file with pdfcpu and falls back to pdfinfo for
// files pdfcpu cannot read.
func (c *Converter) inspect(ctx context.Context, path string) (map[string]string, error) {
	meta := map[string]string{}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pctx, perr := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if perr == nil {
		meta["pages"] = strconv.Itoa(pctx.PageCount)
		if t := strings.TrimSpace(pctx.Title); t != "" {
			meta["title"] = t
		}
		if a := strings.TrimSpace(pctx.Author); a != "" {
			meta["author"] = a
		}
		return meta, nil
	}

	info, err := c.text.Info(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", errors.Join(perr, err))
	}
	if info.Encrypted {
		c.logger.Warn("pdf is encrypted", "path", path)
	}
	meta["pages"] = strconv.Itoa(info.Pages)
	return meta, nil
}

func (c *Converter) ocrDocument(ctx context.Context, path string) (convert.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return convert.Document{}, err
	}
	res, err := c.ocr.OCRDocument(ctx, b)
	if err != nil {
		return convert.Document{}, err
	}

	doc := convert.Document{Metadata: map[string]string{}}
	parts := make([]string, 0, len(res.Pages))
	for _, p := range res.Pages {
		md := strings.TrimSpace(p.Markdown)
		if md == "" {
			continue
		}
		parts = append(parts, md)
		doc.Tables = append(doc.Tables, plaintext.MarkdownTables([]byte(md))...)
	}
	doc.FullText = strings.Join(parts, "\n\n")
	if res.Model != "" {
		doc.Metadata["ocrModel"] = res.Model
	}
	return doc, nil
}

// layoutDocument turns pdftotext -layout output into one table per page.
// Lines that split into fewer than two columns are treated as prose. The
// line with the most columns on a page fixes the column grid; shorter lines
// are placed on it by column position, so a blank cell stays an absent cell
// instead of pulling later values left.
func layoutDocument(raw string) convert.Document {
	var doc convert.Document
	pages := strings.Split(raw, "\f")
	texts := make([]string, 0, len(pages))

	for _, page := range pages {
		page = strings.TrimRight(page, " \n\r\t")
		if strings.TrimSpace(page) == "" {
			continue
		}
		texts = append(texts, cleanText(page))

		var lines [][]segment
		var grid []segment
		for _, line := range strings.Split(page, "\n") {
			segs := splitColumns(line)
			if len(segs) < 2 {
				continue
			}
			lines = append(lines, segs)
			if len(segs) > len(grid) {
				grid = segs
			}
		}

		var t convert.Table
		for _, segs := range lines {
			t.Rows = append(t.Rows, alignRow(segs, grid))
		}
		if len(t.Rows) > 0 {
			doc.Tables = append(doc.Tables, t)
		}
	}
	doc.FullText = strings.Join(texts, "\n\n")
	return doc
}

// segment is one column of a layout line; center is in runes from the
// start of the line.
type segment struct {
	text   string
	center int
}

func splitColumns(line string) []segment {
	var segs []segment
	add := func(from, to int) {
		text := line[from:to]
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return
		}
		lead := len(text) - len(strings.TrimLeft(text, " \t"))
		startRune := utf8.RuneCountInString(line[:from+lead])
		segs = append(segs, segment{
			text:   trimmed,
			center: startRune + utf8.RuneCountInString(trimmed)/2,
		})
	}

	prev := 0
	for _, gap := range columnGap.FindAllStringIndex(line, -1) {
		add(prev, gap[0])
		prev = gap[1]
	}
	add(prev, len(line))
	return segs
}

// alignRow places segs on the page grid, keeping their order and leaving
// room for the segments still to come. Each segment takes the free grid
// column whose center is nearest.
func alignRow(segs, grid []segment) convert.Row {
	if len(segs) >= len(grid) {
		row := make(convert.Row, len(segs))
		for i, s := range segs {
			row[i] = convert.TextCell(s.text)
		}
		return row
	}

	row := make(convert.Row, len(grid))
	next := 0
	for i, s := range segs {
		last := len(grid) - (len(segs) - i)
		best := next
		for j := next + 1; j <= last; j++ {
			if abs(s.center-grid[j].center) < abs(s.center-grid[best].center) {
				best = j
			}
		}
		row[best] = convert.TextCell(s.text)
		next = best + 1
	}
	return row
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// cleanText drops trailing blanks and collapses runs of empty lines.
func cleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
