package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOCRDocumentRequiresKey(t *testing.T) {
	c := New(Config{})
	if c.Enabled() {
		t.Fatalf("expected client without key to be disabled")
	}
	if _, err := c.OCRDocument(context.Background(), []byte("%PDF")); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestOCRDocumentSendsDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Document struct {
				Type string `json:"type"`
				URL  string `json:"document_url"`
			} `json:"document"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != DefaultModel || body.Document.Type != "document_url" {
			t.Errorf("unexpected body %+v", body)
		}
		if body.Document.URL != "data:application/pdf;base64,JVBERg==" {
			t.Errorf("unexpected document url %q", body.Document.URL)
		}
		_, _ = w.Write([]byte(`{"model":"m","pages":[{"index":0,"markdown":"| a | b |\n|---|---|\n| 1 | 2 |"}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL})
	res, err := c.OCRDocument(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("ocr: %v", err)
	}
	if len(res.Pages) != 1 || !strings.HasPrefix(res.Pages[0].Markdown, "| a | b |") {
		t.Fatalf("unexpected response %+v", res)
	}
}

func TestOCRDocumentDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL, RetryDelay: time.Millisecond})
	_, err := c.OCRDocument(context.Background(), []byte("%PDF"))

	var ocrErr *Error
	if !errors.As(err, &ocrErr) || ocrErr.StatusCode != http.StatusUnauthorized || ocrErr.Message != "bad key" {
		t.Fatalf("expected wrapped 401 error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestOCRDocumentRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"pages":[{"index":0,"markdown":"ok"}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL, RetryDelay: time.Millisecond})
	if _, err := c.OCRDocument(context.Background(), []byte("%PDF")); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestOCRDocumentRejectsEmptyPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pages":[]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL, RetryDelay: time.Millisecond})
	if _, err := c.OCRDocument(context.Background(), []byte("%PDF")); err == nil {
		t.Fatalf("expected error for empty page list")
	}
}
