package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port     string
	LogLevel slog.Level

	// Secrets
	MistralAPIKey string

	// Limits
	MaxJSONBodyBytes int64
	MaxUploadBytes   int64
	MaxPDFBytes      int64

	// Concurrency
	MaxConcurrentRequests int64
	MaxOCRConcurrent      int64

	// Server timeouts
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// Request timeouts
	ParseTimeout    time.Duration
	DownloadTimeout time.Duration

	// Poppler timeouts
	PDFInfoTimeout   time.Duration
	PDFToTextTimeout time.Duration

	// rate limiting (per IP)
	RateLimitEvery time.Duration
	RateLimitBurst int

	// housekeeping
	CleanupInterval time.Duration

	// http
	MaxHeaderBytes int

	// PDF text layer / OCR
	MinWords        int
	OCRModel        string
	OCRURL          string
	OCRTimeout      time.Duration
	OCRRetryBackoff time.Duration

	// Conversion binaries
	LibreOfficeTimeout time.Duration
	LibreOfficeBinary  string

	// Institution patterns; empty means built-in defaults.
	PatternsFile string
}

func Load() Config {
	return Config{
		Port:     envStr("PORT", "8080"),
		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),

		MistralAPIKey: envStr("MISTRAL_API_KEY", ""),

		MaxJSONBodyBytes: int64(envInt("MAX_JSON_BODY_BYTES", 1<<20)),
		MaxUploadBytes:   int64(envInt("MAX_UPLOAD_BYTES", int(50<<20))),
		MaxPDFBytes:      int64(envInt("MAX_PDF_BYTES", int(100<<20))),

		MaxConcurrentRequests: int64(envInt("MAX_CONCURRENT_REQUESTS", 8)),
		MaxOCRConcurrent:      int64(envInt("MAX_OCR_CONCURRENT", 2)),

		ReadHeaderTimeout: envDur("READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:       envDur("READ_TIMEOUT", 60*time.Second),
		WriteTimeout:      envDur("WRITE_TIMEOUT", 180*time.Second),
		IdleTimeout:       envDur("IDLE_TIMEOUT", 60*time.Second),

		ParseTimeout:    envDur("PARSE_TIMEOUT", 150*time.Second),
		DownloadTimeout: envDur("DOWNLOAD_TIMEOUT", 25*time.Second),

		PDFInfoTimeout:   envDur("PDFINFO_TIMEOUT", 5*time.Second),
		PDFToTextTimeout: envDur("PDFTOTEXT_TIMEOUT", 30*time.Second),

		RateLimitEvery: envDur("RATE_LIMIT_EVERY", 600*time.Millisecond),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 20),

		CleanupInterval: envDur("CLEANUP_INTERVAL", 5*time.Minute),

		MaxHeaderBytes: envInt("MAX_HEADER_BYTES", 1<<20),

		MinWords:        envInt("MIN_WORDS", 20),
		OCRModel:        envStr("OCR_MODEL", "mistral-ocr-latest"),
		OCRURL:          envStr("OCR_URL", "https://api.mistral.ai/v1/ocr"),
		OCRTimeout:      envDur("OCR_TIMEOUT", 120*time.Second),
		OCRRetryBackoff: envDur("OCR_RETRY_BACKOFF", 2*time.Second),

		LibreOfficeTimeout: envDur("LIBREOFFICE_TIMEOUT", 60*time.Second),
		LibreOfficeBinary:  envStr("LIBREOFFICE_BINARY", "soffice"),

		PatternsFile: envStr("PATTERNS_FILE", ""),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.MaxUploadBytes < c.MaxPDFBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES (%d) must be at least MAX_PDF_BYTES (%d)", c.MaxUploadBytes, c.MaxPDFBytes)
	}
	if c.WriteTimeout <= c.ParseTimeout {
		return fmt.Errorf("WRITE_TIMEOUT (%s) must exceed PARSE_TIMEOUT (%s)", c.WriteTimeout, c.ParseTimeout)
	}
	if c.PatternsFile != "" {
		if _, err := os.Stat(c.PatternsFile); err != nil {
			return fmt.Errorf("PATTERNS_FILE: %w", err)
		}
	}
	return nil
}

// OCREnabled reports whether scanned PDFs can fall back to OCR.
func (c Config) OCREnabled() bool {
	return c.MistralAPIKey != ""
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
