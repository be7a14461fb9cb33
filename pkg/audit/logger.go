// Package audit keeps a SQLite log of chat exchanges.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/folio/pkg/models"
)

// Logger writes and queries audit entries in a dedicated SQLite database.
type Logger struct {
	db      *sql.DB
	cfg     models.AuditConfig
	done    chan struct{}
	wg      sync.WaitGroup
	include map[string]bool
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	inc := make(map[string]bool)
	for _, v := range cfg.Include {
		inc[v] = true
	}

	l := &Logger{
		db:      db,
		cfg:     cfg,
		done:    make(chan struct{}),
		include: inc,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chat_audit (
		request_id      TEXT PRIMARY KEY,
		cache_key       TEXT NOT NULL DEFAULT '',
		question        TEXT,
		rewritten_query TEXT,
		answer          TEXT,
		cache_hit       INTEGER NOT NULL DEFAULT 0,
		document_count  INTEGER NOT NULL DEFAULT 0,
		history_turns   INTEGER NOT NULL DEFAULT 0,
		status_code     INTEGER NOT NULL,
		error_kind      TEXT,
		remote_addr     TEXT,
		latency_ms      INTEGER NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_audit_created ON chat_audit(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_audit_key ON chat_audit(cache_key)`)
	return err
}

// Log inserts an audit entry. Question, answer and client address are
// stored only when the matching include flag is set.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	question, rewritten, answer, remote := entry.Question, entry.RewrittenQuery, entry.Answer, entry.RemoteAddr
	if !l.include["questions"] {
		question, rewritten = "", ""
	}
	if !l.include["answers"] {
		answer = ""
	}
	if !l.include["metadata"] {
		remote = ""
	}
	question = l.truncate(question)
	rewritten = l.truncate(rewritten)
	answer = l.truncate(answer)

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chat_audit
		(request_id, cache_key, question, rewritten_query, answer, cache_hit,
		 document_count, history_turns, status_code, error_kind, remote_addr,
		 latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.CacheKey, question, rewritten, answer, entry.CacheHit,
		entry.DocumentCount, entry.HistoryTurns, entry.StatusCode, entry.ErrorKind, remote,
		entry.LatencyMs, createdAt.UnixMilli(),
	)
	return err
}

func (l *Logger) truncate(s string) string {
	if l.cfg.MaxBodySize > 0 && len(s) > l.cfg.MaxBodySize {
		return s[:l.cfg.MaxBodySize]
	}
	return s
}

// Query returns audit entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, cache_key, question, rewritten_query, answer, cache_hit,
		document_count, history_turns, status_code, error_kind, remote_addr,
		latency_ms, created_at
		FROM chat_audit WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.CacheKey != "" {
		q += " AND cache_key = ?"
		args = append(args, opts.CacheKey)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.CacheHit != nil {
		q += " AND cache_hit = ?"
		args = append(args, *opts.CacheHit)
	}
	if opts.ErrorsOnly {
		q += " AND status_code >= 400"
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var question, rewritten, answer, errKind, remote sql.NullString
		var created int64
		if err := rows.Scan(
			&e.RequestID, &e.CacheKey, &question, &rewritten, &answer, &e.CacheHit,
			&e.DocumentCount, &e.HistoryTurns, &e.StatusCode, &errKind, &remote,
			&e.LatencyMs, &created,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Question = question.String
		e.RewrittenQuery = rewritten.String
		e.Answer = answer.String
		e.ErrorKind = errKind.String
		e.RemoteAddr = remote.String
		e.CreatedAt = time.UnixMilli(created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns request, hit and error counts grouped by UTC day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT date(created_at / 1000, 'unixepoch') AS day,
		        count(*),
		        sum(cache_hit),
		        sum(CASE WHEN status_code >= 400 OR coalesce(error_kind, '') != '' THEN 1 ELSE 0 END),
		        avg(latency_ms)
		 FROM chat_audit GROUP BY day ORDER BY day DESC`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&day, &s.Requests, &s.CacheHits, &s.Errors, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM chat_audit WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
