// Package shield provides the HTTP middleware stack for the digest API:
// security headers, CORS for the frontend, body limits, request IDs, and
// per-IP rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(shield.Config{CORSOrigin: "http://localhost:3000"}) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// Config tunes the default API stack.
type Config struct {
	CORSOrigin string
	MaxBodyKB  int
	RatePerMin int
	RateBurst  int
}

// APIStack returns the standard middleware stack for the digest API, ordered:
// RequestID, SecurityHeaders, CORS, MaxJSONBody, RateLimiter.
func APIStack(cfg Config) []func(http.Handler) http.Handler {
	if cfg.MaxBodyKB <= 0 {
		cfg.MaxBodyKB = 64
	}
	stack := []func(http.Handler) http.Handler{
		RequestID,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(int64(cfg.MaxBodyKB) * 1024),
	}
	if cfg.CORSOrigin != "" {
		stack = append(stack, CORS(cfg.CORSOrigin))
	}
	if cfg.RatePerMin > 0 {
		stack = append(stack, NewRateLimiter(cfg.RatePerMin, cfg.RateBurst, "/api/v1/health").Middleware)
	}
	return stack
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
