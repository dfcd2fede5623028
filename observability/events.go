package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nnamdiodozi/gitdigest/dbopen"
)

// Event types recorded by the service.
const (
	EventIngestCompleted  = "ingest_completed"
	EventIngestFailed     = "ingest_failed"
	EventTriageApplied    = "triage_applied"
	EventTriageOverBudget = "triage_over_budget"
	EventSummaryCompleted = "summary_completed"
	EventSummaryFailed    = "summary_failed"
	EventRetentionRun     = "retention_run"
)

// Event is one domain-level event to record.
type Event struct {
	EventType string
	Repo      string // owner/repo slug
	RunID     string
	Details   string // optional JSON
	Success   bool
}

// EventLogger writes domain events and manages retention cleanup.
type EventLogger struct {
	db *sql.DB
}

// NewEventLogger creates a logger backed by the given observability database.
func NewEventLogger(db *sql.DB) *EventLogger {
	return &EventLogger{db: db}
}

// LogEvent records an event. Non-blocking: errors are logged via slog but do
// not propagate, so a failing observability store never blocks a request.
func (l *EventLogger) LogEvent(ctx context.Context, event Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO digest_events (event_id, event_type, repo, run_id, details, success, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		"evt_"+uuid.NewString(), event.EventType, event.Repo, event.RunID,
		event.Details, boolInt(event.Success), time.Now().Unix())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// RecentEvents returns the newest events of a type, or all types when
// eventType is empty.
func (l *EventLogger) RecentEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	q := `SELECT event_type, repo, run_id, details, success FROM digest_events`
	args := []any{}
	if eventType != "" {
		q += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, max(limit, 1))

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var success int
		if err := rows.Scan(&e.EventType, &e.Repo, &e.RunID, &e.Details, &success); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Success = success != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	EventsDays   int
	MetricsDays  int
	HTTPLogsDays int
}

// Cleanup deletes records exceeding the retention thresholds. All three
// tables are pruned in one transaction so a concurrent flush cannot observe a
// half-swept database, and the sweep retries as a unit when the writer lock
// is contended.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	type target struct {
		table  string
		column string
		days   int
	}
	// Table and column names are fixed here, never caller-supplied.
	targets := []target{
		{"digest_events", "created_at", cfg.EventsDays},
		{"metrics_timeseries", "timestamp", cfg.MetricsDays},
		{"http_request_logs", "created_at", cfg.HTTPLogsDays},
	}

	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		for _, t := range targets {
			if t.days <= 0 {
				continue
			}
			cutoff := now - int64(t.days*86400)
			q := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.table, t.column)
			if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
				return fmt.Errorf("cleanup %s: %w", t.table, err)
			}
		}
		return nil
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
