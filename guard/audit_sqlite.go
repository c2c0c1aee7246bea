package guard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/quailyquaily/morphgate/review"
)

// SQLiteAuditSink persists audit events to a local SQLite database so
// review decisions can be inspected after the fact. Verdicts themselves
// are never reused from here; the table is an append-only trail.
type SQLiteAuditSink struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteAuditSink(dsn string) (*SQLiteAuditSink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	s := &SQLiteAuditSink{dsn: dsn}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditSink) Emit(ctx context.Context, e AuditEvent) error {
	if s == nil {
		return fmt.Errorf("nil audit sink")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO review_audit (
  event_id, ts_unix, hook, function_name, tool_call_id,
  review_task_id, state, mode, blocked, reason, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, e.EventID, e.Timestamp.UTC().Unix(), e.Hook, e.FunctionName, strings.TrimSpace(e.ToolCallID),
		strings.TrimSpace(e.ReviewTaskID), string(e.State), string(e.Mode), boolInt(e.Blocked),
		e.Reason, e.Error,
	)
	return err
}

// Recent returns the newest events, most recent first.
func (s *SQLiteAuditSink) Recent(ctx context.Context, limit int) ([]AuditEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("nil audit sink")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, ts_unix, hook, function_name, tool_call_id,
       review_task_id, state, mode, blocked, reason, error
FROM review_audit
ORDER BY ts_unix DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var (
			e       AuditEvent
			tsUnix  int64
			state   string
			mode    string
			blocked int
		)
		if err := rows.Scan(
			&e.EventID, &tsUnix, &e.Hook, &e.FunctionName, &e.ToolCallID,
			&e.ReviewTaskID, &state, &mode, &blocked, &e.Reason, &e.Error,
		); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(tsUnix, 0).UTC()
		e.State = review.State(state)
		e.Mode = Mode(mode)
		e.Blocked = blocked != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteAuditSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteAuditSink) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *SQLiteAuditSink) ensureOpen() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *SQLiteAuditSink) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS review_audit (
  event_id TEXT PRIMARY KEY,
  ts_unix INTEGER NOT NULL,
  hook TEXT NOT NULL,
  function_name TEXT,
  tool_call_id TEXT,
  review_task_id TEXT,
  state TEXT,
  mode TEXT,
  blocked INTEGER NOT NULL DEFAULT 0,
  reason TEXT,
  error TEXT
);
CREATE INDEX IF NOT EXISTS idx_review_audit_task ON review_audit(review_task_id);
`)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
