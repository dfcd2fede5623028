package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nnamdiodozi/gitdigest/config"
	"github.com/nnamdiodozi/gitdigest/dbopen"
	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/runstore"
	"github.com/nnamdiodozi/gitdigest/triage"
	_ "modernc.org/sqlite"
)

var testSep = strings.Repeat("=", 48)

func testDigest() string {
	var b strings.Builder
	b.WriteString("Directory structure:\n")
	b.WriteString("└── repo/\n")
	b.WriteString("    ├── README.md\n")
	b.WriteString("    └── main.go\n\n")
	for _, f := range []struct{ path, content string }{
		{"README.md", "A test repository.\n"},
		{"main.go", "package main\n\nfunc main() {}\n"},
	} {
		fmt.Fprintf(&b, "%s\nFILE: %s\n%s\n%s\n", testSep, f.path, testSep, f.content)
	}
	return b.String()
}

type stubIngester struct {
	err    error
	digest string
	dir    string
}

func (f *stubIngester) Run(_ context.Context, req ingest.Request) (*ingest.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	ref, err := ingest.ParseRepoURL(req.URL)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(f.dir, ref.Slug()+".txt")
	if err := os.WriteFile(out, []byte(f.digest), 0o644); err != nil {
		return nil, err
	}
	return &ingest.Result{
		Ref:        ref,
		Branch:     "default",
		OutputFile: out,
		Digest:     f.digest,
		Elapsed:    time.Millisecond,
	}, nil
}

type stubSummarizer struct {
	err     error
	lastReq string
}

func (f *stubSummarizer) Summarize(_ context.Context, digest string, wordCount int, focus string) (*llm.Summary, error) {
	f.lastReq = digest
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Summary{
		Summary:      "a test repo",
		Technologies: []string{"Go"},
		Structure:    "flat",
	}, nil
}

func newTestServer(t *testing.T, ing *stubIngester, sum Summarizer) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Digest.OutputDir = t.TempDir()
	cfg.Server.RatePerMin = 0 // limiter off in tests
	cfg.Server.CORSOrigin = ""
	if ing != nil {
		ing.dir = cfg.Digest.OutputDir
	}

	engine, err := triage.New(cfg.Triage.Engine)
	if err != nil {
		t.Fatalf("triage.New: %v", err)
	}
	runs := runstore.NewStore(dbopen.OpenMemory(t))
	if err := runs.Init(); err != nil {
		t.Fatalf("runs.Init: %v", err)
	}

	return New(cfg, Deps{
		Ingester:   ing,
		Engine:     engine,
		Summarizer: sum,
		Runs:       runs,
	})
}

func postSummarize(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/summarize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// WHAT: the happy path returns the summary, stats, and triage block, writes
// the _llm.json artifact, and records the run in history.
func TestSummarize(t *testing.T) {
	ing := &stubIngester{digest: testDigest()}
	s := newTestServer(t, ing, &stubSummarizer{})

	rec := postSummarize(t, s, `{"github_url":"https://github.com/golang/go"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "success" || result.Summary != "a test repo" {
		t.Errorf("result = %+v", result)
	}
	if result.DigestStats.FileCount != 2 {
		t.Errorf("file count = %d", result.DigestStats.FileCount)
	}
	if result.Triage == nil || result.Triage.Applied {
		t.Errorf("small digest should not need triage: %+v", result.Triage)
	}

	if _, err := os.Stat(runstore.ResultFile(result.OutputFile)); err != nil {
		t.Errorf("_llm.json not written: %v", err)
	}

	runs, err := s.deps.Runs.Recent(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("history: %v, %d runs", err, len(runs))
	}
	if runs[0].SummaryStatus != runstore.SummaryOK {
		t.Errorf("summary status = %q", runs[0].SummaryStatus)
	}
}

// WHAT: call_llm_api=false skips the model and inlines the raw digest.
func TestSummarizeNoLLM(t *testing.T) {
	ing := &stubIngester{digest: testDigest()}
	s := newTestServer(t, ing, nil)

	rec := postSummarize(t, s, `{"github_url":"https://github.com/golang/go","call_llm_api":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result RunResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Content != testDigest() {
		t.Error("digest content not inlined")
	}
	if result.Summary != "" {
		t.Errorf("unexpected summary %q", result.Summary)
	}
}

// WHAT: pipeline failures map to the right HTTP statuses.
// WHY: the frontend branches on them: 400 fix the URL, 401 add a token,
// 422 repo too big, 500 server trouble.
func TestSummarizeErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad url", fmt.Errorf("%w: junk", ingest.ErrInvalidRepoURL), http.StatusBadRequest},
		{"private repo", fmt.Errorf("%w: a/b", ingest.ErrRepoNotAccessible), http.StatusUnauthorized},
		{"over budget", fmt.Errorf("trim: %w", triage.ErrBudgetExceeded), http.StatusUnprocessableEntity},
		{"tool missing", fmt.Errorf("%w: gitingest", ingest.ErrToolNotFound), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &stubIngester{err: tc.err}, &stubSummarizer{})
			rec := postSummarize(t, s, `{"github_url":"https://github.com/a/b"}`)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

// WHAT: the summarizer receives the triaged digest, not the raw one.
func TestSummarizeTriages(t *testing.T) {
	big := strings.Repeat("x", 40_000)
	var b strings.Builder
	b.WriteString("Directory structure:\n└── repo/\n\n")
	fmt.Fprintf(&b, "%s\nFILE: README.md\n%s\nsmall readme\n", testSep, testSep)
	fmt.Fprintf(&b, "%s\nFILE: blob.dat\n%s\n%s\n", testSep, testSep, big)

	ing := &stubIngester{digest: b.String()}
	sum := &stubSummarizer{}
	s := newTestServer(t, ing, sum)
	s.cfg.Triage.Engine.TokenThreshold = 2000
	engine, err := triage.New(s.cfg.Triage.Engine)
	if err != nil {
		t.Fatal(err)
	}
	s.deps.Engine = engine

	rec := postSummarize(t, s, `{"github_url":"https://github.com/a/b"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result RunResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.Triage.Applied || result.Triage.FilesDroppedCount != 1 {
		t.Errorf("triage = %+v", result.Triage)
	}
	if strings.Contains(sum.lastReq, "blob.dat") {
		t.Error("dropped file still sent to summarizer")
	}
	if !strings.Contains(sum.lastReq, "README.md") {
		t.Error("kept file missing from summarizer input")
	}
}

// WHAT: summarizer failure still leaves a history row marked "error".
func TestSummarizeLLMFailure(t *testing.T) {
	ing := &stubIngester{digest: testDigest()}
	s := newTestServer(t, ing, &stubSummarizer{err: errors.New("upstream down")})

	rec := postSummarize(t, s, `{"github_url":"https://github.com/a/b"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	runs, _ := s.deps.Runs.Recent(context.Background(), 5)
	if len(runs) != 1 || runs[0].SummaryStatus != runstore.SummaryError {
		t.Errorf("runs = %+v", runs)
	}
}

func TestSummarizeValidation(t *testing.T) {
	s := newTestServer(t, &stubIngester{digest: testDigest()}, nil)

	if rec := postSummarize(t, s, `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
	if rec := postSummarize(t, s, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestPrompt(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/prompt", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "{word_count}") {
		t.Errorf("prompt = %d", rec.Code)
	}
}

// WHAT: download validates the filename and serves stored artifacts.
func TestDownload(t *testing.T) {
	s := newTestServer(t, nil, nil)
	path := filepath.Join(s.cfg.Digest.OutputDir, "a-b.txt")
	if err := os.WriteFile(path, []byte("digest body"), 0o644); err != nil {
		t.Fatal(err)
	}

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
		return rec
	}

	if rec := get("/api/v1/summarize/a-b.txt"); rec.Code != http.StatusOK || rec.Body.String() != "digest body" {
		t.Errorf("download = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get("/api/v1/summarize/absent.txt"); rec.Code != http.StatusNotFound {
		t.Errorf("missing file = %d", rec.Code)
	}
	if rec := get("/api/v1/summarize/evil.sh"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad extension = %d", rec.Code)
	}
}

func TestRunsEndpoint(t *testing.T) {
	ing := &stubIngester{digest: testDigest()}
	s := newTestServer(t, ing, &stubSummarizer{})
	postSummarize(t, s, `{"github_url":"https://github.com/golang/go"}`)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "golang/go") {
		t.Errorf("runs = %d %s", rec.Code, rec.Body.String())
	}
}
