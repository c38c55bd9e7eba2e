// Package server provides the HTTP JSON API for keyword extraction, section
// validation and section tailoring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/section-tailor/internal/fetch"
	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/server/ratelimit"
	"github.com/jonathan/section-tailor/internal/tailoring"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = ":8080"

// maxBodyBytes bounds request bodies; a job description plus a section fits easily.
const maxBodyBytes = 1 << 20

// MetadataAnalyzer derives structured metadata from job description text.
type MetadataAnalyzer interface {
	Analyze(ctx context.Context, text string) (*types.JobMetadata, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	Generator      tailoring.Generator
	RetryGenerator tailoring.Generator // nil retries with Generator
	Rules          validation.Rules    // nil uses validation.DefaultRules()
	TopKeywords    int
	Analyzer       MetadataAnalyzer // nil skips metadata analysis
	Fetcher        *fetch.Fetcher   // used for job_url; nil creates one
	RateLimit      *ratelimit.Config
	RequestTimeout time.Duration // per tailoring request; 0 means no extra deadline
	Logger         *slog.Logger
}

// Server is the HTTP API server
type Server struct {
	cfg        Config
	rules      validation.Rules
	fetcher    *fetch.Fetcher
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
	validate   *validator.Validate
	handler    http.Handler
	httpServer *http.Server
}

// New creates a server. The generator is required; everything else has defaults.
func New(cfg Config) (*Server, error) {
	if cfg.Generator == nil {
		return nil, errors.New("server: generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rules := cfg.Rules
	if rules == nil {
		rules = validation.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewFetcher(fetch.FetcherConfig{Logger: logger})
	}
	rlCfg := ratelimit.DefaultConfig()
	if cfg.RateLimit != nil {
		rlCfg = *cfg.RateLimit
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		cfg:      cfg,
		rules:    rules,
		fetcher:  fetcher,
		limiter:  ratelimit.NewLimiter(rlCfg, logger),
		logger:   logger,
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/keywords", s.handleKeywords)
	mux.HandleFunc("POST /v1/sections/validate", s.handleValidateSection)
	mux.HandleFunc("POST /v1/sections/tailor", s.handleTailorSection)
	mux.HandleFunc("POST /v1/sections/tailor/stream", s.handleTailorStream)

	s.handler = s.withLogging(s.withRateLimit(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // two generation calls can be slow
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close stops background work without serving. Used when Start is never called.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		info := s.limiter.Allow(clientID(r), r.Method, r.URL.Path)
		setRateLimitHeaders(w, info)
		if !info.Allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// clientID keys rate limiting by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	retryAfter := int(info.RetryAfter.Round(time.Second).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	s.logger.Warn("rate limit exceeded", "client", clientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, errorBody{
		Error:      "rate_limit_exceeded",
		Message:    "rate limit exceeded, try again later",
		RetryAfter: retryAfter,
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retry_after,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response failed", "error", err)
	}
}

// errorResponse maps err onto a status code and writes it.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: errorCode(err), Message: err.Error()}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		body.Message = reqErr.Message
		body.Details = reqErr.Fields
	}
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		body.Retryable = genErr.Retryable()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.jsonResponse(w, status, body)
}
