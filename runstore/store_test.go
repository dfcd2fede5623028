package runstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/nnamdiodozi/gitdigest/dbopen"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(dbopen.OpenMemory(t))
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func sampleRun(id string, at time.Time) *Run {
	return &Run{
		ID:               id,
		Owner:            "golang",
		Repo:             "go",
		Branch:           "master",
		OutputFile:       "git_summaries/golang-go.txt",
		Lines:            100,
		Words:            800,
		EstimatedTokens:  1200,
		FileCount:        10,
		FolderCount:      3,
		TriageApplied:    true,
		PreTriageTokens:  5000,
		PostTriageTokens: 1200,
		SummaryStatus:    SummaryOK,
		CreatedAt:        at,
	}
}

// WHAT: a run round-trips through insert and get with every field intact.
func TestInsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleRun("run-1", time.Now().Truncate(time.Millisecond))
	want.FilesDroppedCount = 4
	want.HeaderTruncated = true
	if err := s.Insert(ctx, want); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Owner != "golang" || got.Repo != "go" || got.Branch != "master" {
		t.Errorf("repo fields = %s/%s@%s", got.Owner, got.Repo, got.Branch)
	}
	if !got.TriageApplied || !got.HeaderTruncated || got.FilesDroppedCount != 4 {
		t.Errorf("triage fields = %+v", got)
	}
	if got.PreTriageTokens != 5000 || got.PostTriageTokens != 1200 {
		t.Errorf("token fields = %d/%d", got.PreTriageTokens, got.PostTriageTokens)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// WHAT: Recent returns newest first and honors the limit.
func TestRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		if err := s.Insert(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}

	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("Recent order wrong: %v", runIDs(runs))
	}
}

// WHAT: PruneBefore deletes only rows older than the cutoff.
func TestPruneBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	s.Insert(ctx, sampleRun("old", base.Add(-48*time.Hour)))
	s.Insert(ctx, sampleRun("new", base))

	n, err := s.PruneBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Errorf("new run should survive: %v", err)
	}
}

// WHAT: defaults fill in on insert.
// WHY: callers that never ran the LLM leave status empty; it must read back
// as "skipped", not an empty string.
func TestInsertDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Run{ID: "d", Owner: "a", Repo: "b", Branch: "main", OutputFile: "x.txt"}
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.Get(ctx, "d")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SummaryStatus != SummarySkipped {
		t.Errorf("SummaryStatus = %q", got.SummaryStatus)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
