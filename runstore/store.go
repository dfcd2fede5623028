// CLAUDE:SUMMARY SQLite-backed history of digest runs plus output file retention.
// Package runstore persists the history of digest runs and manages the
// digest files on disk. Each run leaves a row in SQLite and a pair of files
// in the output directory: the raw digest (.txt) and the result (_llm.json).
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nnamdiodozi/gitdigest/dbopen"
)

// Schema for the digest_runs table. Call Store.Init() or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS digest_runs (
	id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	repo TEXT NOT NULL,
	branch TEXT NOT NULL,
	output_file TEXT NOT NULL,
	lines INTEGER NOT NULL,
	words INTEGER NOT NULL,
	estimated_tokens INTEGER NOT NULL,
	file_count INTEGER NOT NULL,
	folder_count INTEGER NOT NULL,
	triage_applied INTEGER NOT NULL DEFAULT 0,
	pre_triage_tokens INTEGER NOT NULL DEFAULT 0,
	post_triage_tokens INTEGER NOT NULL DEFAULT 0,
	files_dropped_count INTEGER NOT NULL DEFAULT 0,
	header_truncated INTEGER NOT NULL DEFAULT 0,
	summary_status TEXT NOT NULL DEFAULT 'skipped',
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_digest_runs_created ON digest_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_digest_runs_repo ON digest_runs(owner, repo);
`

// Summary status values for a run.
const (
	SummarySkipped = "skipped"
	SummaryOK      = "ok"
	SummaryError   = "error"
)

// Run is one completed (or failed) digest run.
type Run struct {
	ID                string
	Owner             string
	Repo              string
	Branch            string
	OutputFile        string
	Lines             int
	Words             int
	EstimatedTokens   int
	FileCount         int
	FolderCount       int
	TriageApplied     bool
	PreTriageTokens   int
	PostTriageTokens  int
	FilesDroppedCount int
	HeaderTruncated   bool
	SummaryStatus     string
	ElapsedMs         int64
	CreatedAt         time.Time
}

// Store persists runs to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a run store backed by the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the digest_runs table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Insert records a run. CreatedAt defaults to now when zero.
func (s *Store) Insert(ctx context.Context, r *Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.SummaryStatus == "" {
		r.SummaryStatus = SummarySkipped
	}
	_, err := dbopen.Exec(ctx, s.db, `INSERT INTO digest_runs
		(id, owner, repo, branch, output_file, lines, words, estimated_tokens,
		 file_count, folder_count, triage_applied, pre_triage_tokens,
		 post_triage_tokens, files_dropped_count, header_truncated,
		 summary_status, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Owner, r.Repo, r.Branch, r.OutputFile, r.Lines, r.Words,
		r.EstimatedTokens, r.FileCount, r.FolderCount, boolInt(r.TriageApplied),
		r.PreTriageTokens, r.PostTriageTokens, r.FilesDroppedCount,
		boolInt(r.HeaderTruncated), r.SummaryStatus, r.ElapsedMs,
		r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get returns one run by ID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	return scanRun(row)
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectCols+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneBefore removes run rows older than cutoff and returns the count.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM digest_runs WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

const selectCols = `SELECT id, owner, repo, branch, output_file, lines, words,
	estimated_tokens, file_count, folder_count, triage_applied,
	pre_triage_tokens, post_triage_tokens, files_dropped_count,
	header_truncated, summary_status, elapsed_ms, created_at
	FROM digest_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var triaged, truncated int
	var createdMs int64
	err := row.Scan(&r.ID, &r.Owner, &r.Repo, &r.Branch, &r.OutputFile,
		&r.Lines, &r.Words, &r.EstimatedTokens, &r.FileCount, &r.FolderCount,
		&triaged, &r.PreTriageTokens, &r.PostTriageTokens, &r.FilesDroppedCount,
		&truncated, &r.SummaryStatus, &r.ElapsedMs, &createdMs)
	if err != nil {
		return nil, err
	}
	r.TriageApplied = triaged != 0
	r.HeaderTruncated = truncated != 0
	r.CreatedAt = time.UnixMilli(createdMs)
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
