// Package poppler runs the poppler command-line tools against PDFs on disk.
package poppler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	PDFInfoTimeout   time.Duration
	PDFToTextTimeout time.Duration
	// MaxTextBytes caps pdftotext output for a whole document.
	MaxTextBytes int64
}

func (c Config) withDefaults() Config {
	out := c
	if out.PDFInfoTimeout <= 0 {
		out.PDFInfoTimeout = 5 * time.Second
	}
	if out.PDFToTextTimeout <= 0 {
		out.PDFToTextTimeout = 30 * time.Second
	}
	if out.MaxTextBytes <= 0 {
		out.MaxTextBytes = 50 << 20
	}
	return out
}

// Runner invokes pdfinfo and pdftotext. Binary names can be overridden
// for tests.
type Runner struct {
	cfg       Config
	logger    *slog.Logger
	pdfinfo   string
	pdftotext string
}

func New(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg.withDefaults(), logger: logger, pdfinfo: "pdfinfo", pdftotext: "pdftotext"}
}

type PDFInfo struct {
	Pages     int
	Encrypted bool
}

var (
	pageCountRegex = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)
	encryptedRegex = regexp.MustCompile(`(?mi)^Encrypted:\s+yes`)
)

// Info runs pdfinfo and extracts the page count and encryption flag.
func (r *Runner) Info(ctx context.Context, pdfPath string) (PDFInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PDFInfoTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.pdfinfo, pdfPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return PDFInfo{}, r.classify("pdfinfo", err, ctx, stderr.String())
	}

	out := stdout.String()
	pages, err := parsePages(out)
	if err != nil {
		return PDFInfo{}, err
	}
	return PDFInfo{Pages: pages, Encrypted: encryptedRegex.MatchString(out)}, nil
}

// LayoutText extracts the whole document with -layout. Pages are separated
// by form feeds.
func (r *Runner) LayoutText(ctx context.Context, pdfPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PDFToTextTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.pdftotext, "-layout", "-enc", "UTF-8", pdfPath, "-")

	text, stderr, err := runCommandCaptureLimited(cmd, r.cfg.MaxTextBytes+1)
	if err != nil {
		if errors.Is(err, errOutputLimit) {
			return "", fmt.Errorf("extracted text too large")
		}
		return "", r.classify("pdftotext", err, ctx, stderr)
	}
	return text, nil
}

func parsePages(out string) (int, error) {
	if m := pageCountRegex.FindStringSubmatch(out); len(m) == 2 {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
		}
		return validatePages(n)
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(strings.ToLower(line), "pages:") {
			continue
		}
		fields := strings.Fields(line[len("pages:"):])
		if len(fields) == 0 {
			break
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
		}
		return validatePages(n)
	}
	return 0, fmt.Errorf("pdfinfo: pages field not found in output")
}

func validatePages(count int) (int, error) {
	if count <= 0 || count > 50000 {
		return 0, fmt.Errorf("pdfinfo: unreasonable page count: %d", count)
	}
	return count, nil
}

var errOutputLimit = errors.New("output exceeds limit")

// runCommandCaptureLimited captures stdout up to maxBytes and all of stderr.
func runCommandCaptureLimited(cmd *exec.Cmd, maxBytes int64) (string, string, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}

	out, readErr := io.ReadAll(io.LimitReader(stdoutPipe, maxBytes))
	if int64(len(out)) >= maxBytes {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()
	stderrStr := strings.TrimSpace(stderr.String())

	switch {
	case readErr != nil:
		return "", stderrStr, fmt.Errorf("read stdout: %w", readErr)
	case int64(len(out)) >= maxBytes:
		return "", stderrStr, errOutputLimit
	case waitErr != nil:
		return "", stderrStr, waitErr
	}
	return string(out), stderrStr, nil
}

// isHelpOrUsageOutput reports whether stderr is a poppler usage dump.
func isHelpOrUsageOutput(stderr string) bool {
	return strings.Contains(stderr, "version ") && strings.Contains(stderr, "Usage:")
}

func (r *Runner) classify(tool string, err error, ctx context.Context, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timeout: %w", tool, ctx.Err())
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s canceled", tool)
	}

	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	r.logger.Warn("poppler error", "tool", tool, "stderr", truncate(stderr, 500))

	switch {
	case isHelpOrUsageOutput(stderr):
		return fmt.Errorf("%s failed (bad invocation)", tool)
	case containsAny(stderr, "Incorrect password"):
		return fmt.Errorf("PDF is password protected")
	case containsAny(stderr, "PDF file is damaged", "Syntax Error", "Couldn't find trailer dictionary", "May not be a PDF file"):
		return fmt.Errorf("PDF appears to be damaged or invalid")
	case strings.Contains(stderr, "I/O Error") && strings.Contains(stderr, "Couldn't open file"):
		return fmt.Errorf("unable to open PDF")
	}
	return fmt.Errorf("%s failed: %s", tool, truncate(stderr, 200))
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
