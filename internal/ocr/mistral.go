// Package ocr calls the Mistral OCR API for scanned documents.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultURL   = "https://api.mistral.ai/v1/ocr"
	DefaultModel = "mistral-ocr-latest"

	maxRetries = 2
)

type Page struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type Response struct {
	Pages     []Page    `json:"pages"`
	Model     string    `json:"model"`
	UsageInfo UsageInfo `json:"usage_info"`
}

type UsageInfo struct {
	PagesProcessed int  `json:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type Config struct {
	APIKey        string
	URL           string
	Model         string
	Timeout       time.Duration
	MaxConcurrent int64
	RetryDelay    time.Duration
	Logger        *slog.Logger
}

// Client is safe for concurrent use. A nil limiter means unlimited.
type Client struct {
	apiKey     string
	url        string
	model      string
	retryDelay time.Duration
	http       *http.Client
	limiter    *semaphore.Weighted
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		url:        cfg.URL,
		model:      cfg.Model,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	if cfg.MaxConcurrent > 0 {
		c.limiter = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// OCRDocument sends a PDF inline as a base64 data URL.
func (c *Client) OCRDocument(ctx context.Context, pdf []byte) (Response, error) {
	if !c.Enabled() {
		return Response{}, errors.New("MISTRAL_API_KEY not configured")
	}
	if len(pdf) == 0 {
		return Response{}, errors.New("empty document")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"document": map[string]any{
			"type":         "document_url",
			"document_url": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return Response{}, err
		}
		defer c.limiter.Release(1)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		res, err := c.do(ctx, body)
		if err == nil {
			c.logger.Info("ocr completed", "pages", len(res.Pages), "model", res.Model, "attempt", attempt+1)
			return res, nil
		}
		lastErr = err
		c.logger.Warn("ocr attempt failed", "attempt", attempt+1, "err", err)

		if isClientError(err) {
			break
		}
	}
	return Response{}, fmt.Errorf("OCR failed after retries: %w", lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "workload-parser/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, parseErrorResponse(resp)
	}

	var result Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 100<<20)).Decode(&result); err != nil {
		return Response{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Pages) == 0 {
		return Response{}, errors.New("OCR returned no pages")
	}
	for i, page := range result.Pages {
		if page.Index < 0 {
			return Response{}, fmt.Errorf("invalid page index at %d: %d", i, page.Index)
		}
	}
	return result, nil
}

func parseErrorResponse(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp mistralErrorResponse
	if json.Unmarshal(b, &errResp) == nil && errResp.Error.Message != "" {
		return &Error{StatusCode: resp.StatusCode, Message: errResp.Error.Message, Type: errResp.Error.Type}
	}
	return &Error{StatusCode: resp.StatusCode, Message: string(b), Type: "unknown"}
}

type Error struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mistral OCR %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

func isClientError(err error) bool {
	var ocrErr *Error
	if errors.As(err, &ocrErr) {
		return ocrErr.StatusCode >= 400 && ocrErr.StatusCode < 500
	}
	return false
}
