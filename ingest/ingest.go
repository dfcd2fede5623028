// CLAUDE:SUMMARY Runs the external gitingest tool as a subprocess and reads the flattened digest back.
// Package ingest drives the external gitingest repository-flattening tool.
//
// The tool clones a GitHub repository and emits a single digest file: a
// directory-tree header followed by every file's content. This package only
// builds the command line, runs the subprocess under a context, classifies
// its failures, and reads the digest back; everything downstream of the raw
// text belongs to the triage engine.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxFileSize skips repository files above 10 MB, matching the
// gitingest default recommendation for code-heavy repositories.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultExcludePatterns filters binary, media, and data files that inflate
// a digest without adding summarizable signal.
var DefaultExcludePatterns = []string{
	"*.pdf", "*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.ico",
	"*.zip", "*.tar", "*.gz", "*.csv", "*.parquet", "*.pkl", "*.pt",
	"*.onnx", "*.bin", "*.lock", "package-lock.json", "yarn.lock",
}

// Config configures a Runner.
type Config struct {
	// Binary is the gitingest executable name or path (default: "gitingest").
	Binary string `yaml:"binary"`

	// OutputDir receives digest files (created on demand).
	OutputDir string `yaml:"output_dir"`

	// MaxFileSize in bytes; larger repository files are skipped.
	MaxFileSize int64 `yaml:"max_file_size"`

	// ExcludePatterns are glob patterns always passed to the tool.
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// Timeout bounds a single run (default: 5 minutes).
	Timeout time.Duration `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Binary == "" {
		c.Binary = "gitingest"
	}
	if c.OutputDir == "" {
		c.OutputDir = "git_summaries"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.ExcludePatterns == nil {
		c.ExcludePatterns = DefaultExcludePatterns
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Request describes one ingestion.
type Request struct {
	URL             string
	Token           string // GitHub PAT, required for private repos
	Branch          string // overrides any branch in the URL
	MaxFileSize     int64  // overrides Config.MaxFileSize when > 0
	ExcludePatterns []string
}

// Result is a completed ingestion.
type Result struct {
	Ref        RepoRef
	Branch     string // branch actually requested, "default" when unspecified
	OutputFile string
	Digest     string
	Elapsed    time.Duration
}

// Runner invokes gitingest.
type Runner struct {
	cfg Config
}

// NewRunner creates a Runner with defaults applied.
func NewRunner(cfg Config) *Runner {
	cfg.defaults()
	return &Runner{cfg: cfg}
}

// Run flattens the repository and returns the raw digest text.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	ref, err := ParseRepoURL(req.URL)
	if err != nil {
		return nil, err
	}
	if req.Branch != "" {
		ref.Branch = req.Branch
	}

	if _, err := exec.LookPath(r.cfg.Binary); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, r.cfg.Binary)
	}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	outputFile := filepath.Join(r.cfg.OutputDir, ref.Slug()+".txt")
	args := r.buildArgs(ref, req, outputFile)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	r.cfg.Logger.Info("running gitingest", "repo", ref.Owner+"/"+ref.Repo, "branch", ref.Branch)
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	elapsed := time.Since(start)
	r.cfg.Logger.Info("gitingest finished", "elapsed", elapsed, "ok", runErr == nil)

	if runErr != nil {
		return nil, classifyFailure(ref, stderr.String(), runErr)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("read digest %s: %w", outputFile, err)
	}

	branch := ref.Branch
	if branch == "" {
		branch = "default"
	}
	return &Result{
		Ref:        ref,
		Branch:     branch,
		OutputFile: outputFile,
		Digest:     string(data),
		Elapsed:    elapsed,
	}, nil
}

// buildArgs assembles the gitingest command line. The branch travels inside
// the URL rather than a flag; see RepoRef.CloneURL.
func (r *Runner) buildArgs(ref RepoRef, req Request, outputFile string) []string {
	args := []string{ref.CloneURL(), "-o", outputFile}

	if req.Token != "" {
		args = append(args, "-t", req.Token)
	}

	maxSize := req.MaxFileSize
	if maxSize <= 0 {
		maxSize = r.cfg.MaxFileSize
	}
	args = append(args, "-s", strconv.FormatInt(maxSize, 10))

	for _, pat := range r.cfg.ExcludePatterns {
		args = append(args, "-e", pat)
	}
	for _, pat := range req.ExcludePatterns {
		args = append(args, "-e", pat)
	}
	return args
}

// classifyFailure distinguishes access problems from everything else so the
// API layer can answer 401 instead of 500.
func classifyFailure(ref RepoRef, stderr string, runErr error) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	for _, marker := range []string{"401", "403", "not found", "authentication", "private"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s/%s (provide a token for private repos)",
				ErrRepoNotAccessible, ref.Owner, ref.Repo)
		}
	}
	if msg == "" {
		return fmt.Errorf("gitingest: %w", runErr)
	}
	return fmt.Errorf("gitingest: %s: %w", msg, runErr)
}
