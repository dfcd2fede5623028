// CLAUDE:SUMMARY HTTP API for the digest service — chi router, shield stack, JSON endpoints.
// Package server exposes the digest pipeline over HTTP: ingest a repository,
// triage the digest, summarize it, and serve the stored artifacts back.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nnamdiodozi/gitdigest/config"
	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/observability"
	"github.com/nnamdiodozi/gitdigest/runstore"
	"github.com/nnamdiodozi/gitdigest/shield"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// Ingester runs one repository ingestion.
type Ingester interface {
	Run(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// Summarizer turns a digest into a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, digest string, wordCount int, focus string) (*llm.Summary, error)
}

// Deps are the collaborators a Server needs. Runs is required; Summarizer
// may be nil when no API key is configured, and Events, Metrics, and HTTPLog
// may be nil to disable observability.
type Deps struct {
	Ingester   Ingester
	Engine     *triage.Engine
	Summarizer Summarizer
	Runs       *runstore.Store
	Events     *observability.EventLogger
	Metrics    *observability.MetricsManager
	HTTPLog    *observability.RequestLogger
	Logger     *slog.Logger
}

// Server handles the /api/v1 surface.
type Server struct {
	cfg  *config.Config
	deps Deps
}

// New creates a Server. The triage engine in deps is used for parsing and
// stats even when trimming is disabled in the config.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps}
}

// Router builds the chi router with the shield middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(shield.Config{
		CORSOrigin: s.cfg.Server.CORSOrigin,
		MaxBodyKB:  s.cfg.Server.MaxBodyKB,
		RatePerMin: s.cfg.Server.RatePerMin,
		RateBurst:  s.cfg.Server.RateBurst,
	}) {
		r.Use(mw)
	}
	if s.deps.HTTPLog != nil {
		r.Use(s.logRequests)
	}

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/summarize", s.handleSummarize)
	r.Get("/api/v1/summarize/{filename}", s.handleDownload)
	r.Get("/api/v1/summarize/{filename}/preview", s.handlePreview)
	r.Get("/api/v1/prompt", s.handlePrompt)
	r.Get("/api/v1/runs", s.handleRuns)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gitdigest",
	})
}

// logRequests records completed requests to the observability store.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.deps.HTTPLog.RecordAsync(&observability.RequestLog{
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: sw.status,
			DurationMs: time.Since(start).Milliseconds(),
			RequestID:  w.Header().Get("X-Request-ID"),
			IPAddress:  shield.ExtractIP(r),
			Timestamp:  start,
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
