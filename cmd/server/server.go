package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/toricodesthings/workload-parser/internal/config"
	"github.com/toricodesthings/workload-parser/internal/convert"
	"github.com/toricodesthings/workload-parser/internal/pipeline"
	"github.com/toricodesthings/workload-parser/internal/workload"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const version = "1.0.0"

type server struct {
	cfg        config.Config
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
	requestSem *semaphore.Weighted

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	metrics serverMetrics
}

type serverMetrics struct {
	totalRequests   atomic.Int64
	activeRequests  atomic.Int64
	documentsParsed atomic.Int64
	documentsFailed atomic.Int64
	disciplines     atomic.Int64
}

func newServer(cfg config.Config, pipe *pipeline.Pipeline, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := cfg.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	s := &server{
		cfg:        cfg,
		pipeline:   pipe,
		logger:     logger,
		requestSem: semaphore.NewWeighted(maxConcurrent),
		limiters:   make(map[string]*rate.Limiter),
	}
	pipe.SetSuccessHook(func(_ string, _ int64, disciplines int, _ time.Duration) {
		s.metrics.documentsParsed.Add(1)
		s.metrics.disciplines.Add(int64(disciplines))
	})
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.withLogging)
	r.Use(s.withRecovery)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(s.withRateLimit)
		r.Use(s.withConcurrencyLimit)
		r.Post("/parse", s.handleParseUpload)
		r.Post("/parse/url", s.handleParseURL)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "not_found", "Not found")
	})
	return r
}

// cleanupLoop logs runtime stats and drops idle rate limiters.
func (s *server) cleanupLoop(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		s.logger.Info("stats",
			"active", s.metrics.activeRequests.Load(),
			"total", s.metrics.totalRequests.Load(),
			"goroutines", runtime.NumGoroutine(),
			"memMB", m.Alloc/(1<<20))

		s.limitersMu.Lock()
		s.limiters = make(map[string]*rate.Limiter)
		s.limitersMu.Unlock()
	}
}

// ---------- Handlers ----------

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := s.metrics.activeRequests.Load()
	status := "healthy"
	code := http.StatusOK
	if active >= s.cfg.MaxConcurrentRequests {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"active":  active,
		"version": version,
	})
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeJSON(w, http.StatusOK, map[string]any{
		"activeRequests":   s.metrics.activeRequests.Load(),
		"totalRequests":    s.metrics.totalRequests.Load(),
		"documentsParsed":  s.metrics.documentsParsed.Load(),
		"documentsFailed":  s.metrics.documentsFailed.Load(),
		"disciplinesTotal": s.metrics.disciplines.Load(),
		"goroutines":       runtime.NumGoroutine(),
		"memAllocMB":       m.Alloc / (1 << 20),
	})
}

func (s *server) handleParseUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+(1<<20))
	mr, err := r.MultipartReader()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "multipart/form-data body required")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeErr(w, http.StatusBadRequest, "validation_failed", "file field required")
			return
		}
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ParseTimeout)
		res, err := s.pipeline.ProcessUpload(ctx, part, part.FileName())
		cancel()
		_ = part.Close()
		s.writeResult(w, res, err)
		return
	}
}

func (s *server) handleParseURL(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[pipeline.URLRequest](r, s.cfg.MaxJSONBodyBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "url required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ParseTimeout)
	defer cancel()

	res, err := s.pipeline.ProcessURL(ctx, req)
	s.writeResult(w, res, err)
}

// writeResult maps pipeline errors onto status codes. Failures inside the
// document are 500s; problems with the request itself are 4xx.
func (s *server) writeResult(w http.ResponseWriter, res workload.Result, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, pipeline.ErrDocument):
		s.metrics.documentsFailed.Add(1)
		s.logger.Warn("document failed", "err", err)
		writeErr(w, http.StatusInternalServerError, "parse_failed", sanitizeError(err))
	case errors.Is(err, convert.ErrUnsupported):
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_type", sanitizeError(err))
	case errors.Is(err, context.DeadlineExceeded):
		writeErr(w, http.StatusGatewayTimeout, "timeout", "Parsing timed out")
	case errors.Is(err, convert.ErrTooLarge), errors.As(err, &maxErr):
		writeErr(w, http.StatusRequestEntityTooLarge, "too_large", sanitizeError(err))
	default:
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
	}
}

// ---------- Middleware ----------

func (s *server) withConcurrencyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.requestSem.TryAcquire(1) {
			writeErr(w, http.StatusServiceUnavailable, "capacity", "Service at capacity")
			return
		}
		defer s.requestSem.Release(1)

		s.metrics.totalRequests.Add(1)
		s.metrics.activeRequests.Add(1)
		defer s.metrics.activeRequests.Add(-1)

		next.ServeHTTP(w, r)
	})
}

func (s *server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter(getClientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			writeErr(w, http.StatusTooManyRequests, "rate_limit", "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic", "err", err, "path", sanitizeLogString(r.URL.Path))
				writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", sanitizeLogString(r.URL.Path),
			"status", ww.status,
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()))
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ---------- Helpers ----------

func (s *server) rateLimiter(ip string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	if l, ok := s.limiters[ip]; ok {
		return l
	}

	every := s.cfg.RateLimitEvery
	if every <= 0 {
		every = 600 * time.Millisecond
	}
	burst := s.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}
	l := rate.NewLimiter(rate.Every(every), burst)
	s.limiters[ip] = l
	return l
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.ReplaceAll(msg, os.TempDir(), "[tmp]")
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func parseJSON[T any](r *http.Request, limit int64) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		if err == nil {
			return out, fmt.Errorf("unexpected trailing data")
		}
		return out, err
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
