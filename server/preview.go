package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handlePreview renders a stored artifact as markdown: raw digests get a
// code fence, _llm.json results get a formatted report.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name, ok := digestFilename(chi.URLParam(r, "filename"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid filename, use e.g. owner-repo_llm.json")
		return
	}

	path := filepath.Join(s.cfg.Digest.OutputDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")

	if strings.HasSuffix(name, ".txt") {
		fmt.Fprintf(w, "# Raw Digest\n\n```\n%s\n```", data)
		return
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		writeError(w, http.StatusInternalServerError, "decode result: "+err.Error())
		return
	}
	w.Write([]byte(renderMarkdown(name, &result)))
}

func renderMarkdown(name string, result *RunResult) string {
	var b strings.Builder

	repoName := strings.TrimSuffix(filepath.Base(result.OutputFile), ".txt")
	if repoName == "" || repoName == "." {
		repoName = strings.TrimSuffix(strings.TrimSuffix(name, "_llm.json"), ".json")
	}
	fmt.Fprintf(&b, "# %s\n\n", repoName)

	if result.Branch != "" {
		fmt.Fprintf(&b, "**Branch:** %s\n\n", result.Branch)
	}

	stats := result.DigestStats
	b.WriteString("## Digest Stats\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Lines | %d |\n", stats.Lines)
	fmt.Fprintf(&b, "| Words | %d |\n", stats.Words)
	fmt.Fprintf(&b, "| Estimated tokens | %d |\n", stats.EstimatedTokens)
	fmt.Fprintf(&b, "| Files | %d |\n", stats.FileCount)
	fmt.Fprintf(&b, "| Folders | %d |\n\n", stats.FolderCount)

	if t := result.Triage; t != nil && t.Applied {
		b.WriteString("## Triage\n\n")
		fmt.Fprintf(&b, "Trimmed from %d to %d estimated tokens, dropping %d files.\n\n",
			t.PreTriageTokens, t.PostTriageTokens, t.FilesDroppedCount)
	}

	if len(result.Technologies) > 0 {
		b.WriteString("## Technologies\n\n")
		for _, tech := range result.Technologies {
			fmt.Fprintf(&b, "- %s\n", tech)
		}
		b.WriteString("\n")
	}

	if result.Structure != "" {
		b.WriteString("## Structure\n\n")
		b.WriteString(result.Structure)
		b.WriteString("\n\n")
	}

	if result.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(result.Summary)
		b.WriteString("\n")
	}

	return b.String()
}
