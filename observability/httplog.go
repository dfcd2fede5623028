package observability

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// RequestLog is one completed HTTP request.
type RequestLog struct {
	Method     string
	Path       string
	StatusCode int
	DurationMs int64
	RequestID  string
	IPAddress  string
	Timestamp  time.Time
}

// RequestLogger persists HTTP request logs asynchronously.
type RequestLogger struct {
	db   *sql.DB
	ch   chan *RequestLog
	done chan struct{}
	once sync.Once
}

// NewRequestLogger starts the background flush goroutine.
func NewRequestLogger(db *sql.DB) *RequestLogger {
	l := &RequestLogger{
		db:   db,
		ch:   make(chan *RequestLog, 1024),
		done: make(chan struct{}),
	}
	go l.flushLoop()
	return l
}

// RecordAsync queues a log entry. Non-blocking; drops if the buffer is full.
func (l *RequestLogger) RecordAsync(e *RequestLog) {
	select {
	case l.ch <- e:
	default:
	}
}

// Close drains the buffer and stops the flush goroutine.
func (l *RequestLogger) Close() error {
	l.once.Do(func() {
		close(l.ch)
		<-l.done
	})
	return nil
}

func (l *RequestLogger) flushLoop() {
	defer close(l.done)

	batch := make([]*RequestLog, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-l.ch:
			if !ok {
				l.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				l.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *RequestLogger) flushBatch(batch []*RequestLog) {
	if len(batch) == 0 {
		return
	}

	tx, err := l.db.Begin()
	if err != nil {
		slog.Error("http log: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO http_request_logs
		(method, path, status_code, duration_ms, request_id, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("http log: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.Exec(e.Method, e.Path, e.StatusCode, e.DurationMs,
			e.RequestID, e.IPAddress, ts.Unix()); err != nil {
			slog.Error("http log: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("http log: commit", "error", err)
	}
}
