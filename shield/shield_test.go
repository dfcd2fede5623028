package shield

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nnamdiodozi/gitdigest/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// WHAT: every response carries the security headers.
func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultHeaders())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'none'") {
		t.Errorf("CSP = %q", rec.Header().Get("Content-Security-Policy"))
	}
}

// WHAT: CORS allows the configured origin and short-circuits preflight.
func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/v1/summarize", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
}

// WHAT: RequestID sets the header, the context value, and a request logger.
func TestRequestID(t *testing.T) {
	var ctxID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = kit.GetRequestID(r.Context())
		if GetLogger(r.Context()) == nil {
			t.Error("no logger in context")
		}
	})

	rec := httptest.NewRecorder()
	RequestID(inner).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" || headerID != ctxID {
		t.Errorf("header %q vs context %q", headerID, ctxID)
	}
}

// WHAT: oversized JSON bodies are cut off; other content types pass.
func TestMaxJSONBody(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxJSONBody(8)(inner)

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("non-JSON status = %d, want 200", rec.Code)
	}
}

// WHAT: the limiter blocks after the per-window allowance and exempts
// excluded prefixes.
func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 0, "/api/v1/health")
	h := rl.Middleware(okHandler())

	send := func(path string) int {
		req := httptest.NewRequest("POST", path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if send("/api/v1/summarize") != http.StatusOK || send("/api/v1/summarize") != http.StatusOK {
		t.Fatal("first requests should pass")
	}
	if got := send("/api/v1/summarize"); got != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", got)
	}
	if got := send("/api/v1/health"); got != http.StatusOK {
		t.Errorf("excluded path = %d, want 200", got)
	}
}

// WHAT: concurrent requests from one IP admit exactly the window limit.
// WHY: count and resetAt are shared per-IP state; without the limiter lock,
// parallel increments race and the admitted total drifts.
func TestRateLimiterConcurrent(t *testing.T) {
	rl := NewRateLimiter(20, 5)

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if rl.allow("10.0.0.1") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 25 {
		t.Errorf("allowed = %d, want exactly perMin+burst = 25", got)
	}
}

// WHAT: expired buckets are reclaimed on the next allow once the sweep
// interval has passed, so the per-IP map does not grow for the server's life.
func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10, 0)
	rl.buckets["stale"] = &bucket{count: 3, resetAt: time.Now().Add(-time.Hour)}
	rl.lastSweep = time.Now().Add(-2 * sweepInterval)

	rl.allow("fresh")

	if _, ok := rl.buckets["stale"]; ok {
		t.Error("expired bucket survived the sweep")
	}
	if _, ok := rl.buckets["fresh"]; !ok {
		t.Error("live bucket missing after sweep")
	}
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5000"
	if got := ExtractIP(r); got != "192.0.2.1" {
		t.Errorf("ExtractIP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	if got := ExtractIP(r); got != "198.51.100.7" {
		t.Errorf("ExtractIP with XFF = %q", got)
	}
}
