package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Both databases are shared between the HTTP handlers, the async flush loops,
// and the cron maintenance job, so writes can collide on SQLITE_BUSY despite
// the busy_timeout pragma. The helpers here retry busy failures with a short
// linear backoff before giving up.

const (
	busyRetries = 3
	busyBackoff = 100 * time.Millisecond
)

// IsBusy reports whether err is an SQLite BUSY/locked condition. modernc
// surfaces these as strings, not typed errors.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Exec runs a single statement, retrying busy failures.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withBusyRetry(ctx, func() error {
		var execErr error
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RunTx runs fn inside a transaction, retrying busy failures. fn may be
// invoked more than once and must be safe to re-run from scratch; any error
// it returns rolls the transaction back.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return withBusyRetry(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

func withBusyRetry(ctx context.Context, attempt func() error) error {
	var err error
	for i := 0; i < busyRetries; i++ {
		if err = attempt(); err == nil || !IsBusy(err) {
			return err
		}
		if i < busyRetries-1 {
			if serr := sleepCtx(ctx, time.Duration(i+1)*busyBackoff); serr != nil {
				return fmt.Errorf("dbopen: retry interrupted: %w", serr)
			}
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
