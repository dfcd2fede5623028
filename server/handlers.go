package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/shield"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// SummarizeRequest is the POST /api/v1/summarize body.
type SummarizeRequest struct {
	GithubURL       string   `json:"github_url"`
	Token           string   `json:"token,omitempty"`
	Branch          string   `json:"branch,omitempty"`
	MaxSize         int64    `json:"max_size,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	CallLLMAPI      *bool    `json:"call_llm_api,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	Focus           string   `json:"focus,omitempty"`
	Triage          *bool    `json:"triage,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.GithubURL == "" {
		writeError(w, http.StatusBadRequest, "github_url is required")
		return
	}

	run := RunRequest{
		URL:             req.GithubURL,
		Token:           scrubPlaceholder(req.Token),
		Branch:          scrubPlaceholder(req.Branch),
		MaxSize:         req.MaxSize,
		WordCount:       req.WordCount,
		CallLLM:         boolDefault(req.CallLLMAPI, true),
		Triage:          boolDefault(req.Triage, true),
		ExcludePatterns: req.ExcludePatterns,
		Focus:           scrubPlaceholder(req.Focus),
	}
	if len(run.ExcludePatterns) == 1 && run.ExcludePatterns[0] == "string" {
		run.ExcludePatterns = nil
	}
	if run.WordCount <= 0 {
		run.WordCount = s.cfg.Digest.DefaultWordCount
	}

	logger := shield.GetLogger(r.Context())
	logger.Info("summarize request", "url", run.URL, "branch", run.Branch,
		"llm", run.CallLLM, "word_count", run.WordCount)

	result, err := s.RunDigest(r.Context(), run)
	if err != nil {
		status := statusForError(err)
		logger.Error("summarize failed", "error", err, "status", status)
		writeError(w, status, err.Error())
		return
	}

	if !run.CallLLM {
		// Without a summary the caller gets the digest inline.
		data, err := os.ReadFile(result.OutputFile)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read digest: "+err.Error())
			return
		}
		result.Content = string(data)
	}

	writeJSON(w, http.StatusOK, result)
}

// statusForError maps pipeline failures onto HTTP statuses: caller mistakes
// are 4xx, capacity problems are 422, everything else is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidRepoURL):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrRepoNotAccessible):
		return http.StatusUnauthorized
	case errors.Is(err, triage.ErrBudgetExceeded), errors.Is(err, llm.ErrContextWindow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// scrubPlaceholder drops the literal "string" Swagger UI inserts into
// optional fields when users forget to clear it.
func scrubPlaceholder(v string) string {
	if v == "string" {
		return ""
	}
	return v
}

func boolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// digestFilename validates a stored artifact name: basename only, .txt or
// .json, no traversal.
func digestFilename(raw string) (string, bool) {
	name := filepath.Base(raw)
	if strings.Contains(name, "..") {
		return "", false
	}
	if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return name, true
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, ok := digestFilename(chi.URLParam(r, "filename"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid filename, use e.g. owner-repo_llm.json")
		return
	}

	path := filepath.Join(s.cfg.Digest.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handlePrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"prompt": llm.PromptTemplate})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.deps.Runs.Recent(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type runView struct {
		ID               string `json:"id"`
		Repo             string `json:"repo"`
		Branch           string `json:"branch"`
		EstimatedTokens  int    `json:"estimated_tokens"`
		TriageApplied    bool   `json:"triage_applied"`
		PostTriageTokens int    `json:"post_triage_tokens"`
		SummaryStatus    string `json:"summary_status"`
		ElapsedMs        int64  `json:"elapsed_ms"`
		CreatedAt        string `json:"created_at"`
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:               run.ID,
			Repo:             run.Owner + "/" + run.Repo,
			Branch:           run.Branch,
			EstimatedTokens:  run.EstimatedTokens,
			TriageApplied:    run.TriageApplied,
			PostTriageTokens: run.PostTriageTokens,
			SummaryStatus:    run.SummaryStatus,
			ElapsedMs:        run.ElapsedMs,
			CreatedAt:        run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": views})
}
