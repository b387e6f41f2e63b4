// Package journal records dispatched broker messages to SQLite so a
// session can be inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"ibconn/internal/dispatcher"
	"ibconn/internal/logger"
	"ibconn/internal/message"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	type       TEXT    NOT NULL,
	method     TEXT    NOT NULL,
	fields     TEXT    NOT NULL,
	at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_type_id ON messages (type, id);
`

// Entry is one journaled message.
type Entry struct {
	ID        int64
	SessionID string
	Type      string
	Method    string
	Fields    json.RawMessage
	Time      time.Time
}

// Journal is a dispatcher.Listener that appends every message it receives.
type Journal struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time
}

var _ dispatcher.Listener = (*Journal)(nil)

type Option func(*Journal)

// WithClock overrides the time source for entries.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Open opens (or creates) the journal database at path. ":memory:" gives
// a private in-memory journal.
func Open(ctx context.Context, path, sessionID string, opts ...Option) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection: SQLite serializes writers, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	j := &Journal{db: db, sessionID: sessionID, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	logger.Info(ctx, "Message journal opened", "path", path, "session_id", sessionID)
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Handle appends msg with the fields that are set. Non-finite floats are
// stored as strings. A message that still cannot be encoded is logged and
// skipped so later listeners get it.
func (j *Journal) Handle(ctx context.Context, msg *message.Message) error {
	fields := make(map[string]any, msg.Len())
	for _, it := range msg.Items() {
		if it.Value != nil {
			fields[it.Key] = finite(it.Value)
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to encode message for journal", err, "type", msg.TypeName())
		return nil
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, type, method, fields, at) VALUES (?, ?, ?, ?, ?)`,
		j.sessionID, msg.TypeName(), msg.Method(), string(data), j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to journal %s: %w", msg.TypeName(), err)
	}
	return nil
}

// finite replaces NaN and infinities, which JSON cannot carry.
func finite(v any) any {
	f, ok := v.(float64)
	if !ok || (!math.IsNaN(f) && !math.IsInf(f, 0)) {
		return v
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Recent returns up to n of the latest entries of typeName, oldest first.
// An empty typeName matches every type.
func (j *Journal) Recent(ctx context.Context, typeName string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, type, method, fields, at FROM (
			SELECT * FROM messages WHERE ? = '' OR type = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, typeName, typeName, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			fields string
			at     int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Method, &fields, &at); err != nil {
			return nil, fmt.Errorf("failed to read journal entry: %w", err)
		}
		e.Fields = json.RawMessage(fields)
		e.Time = time.Unix(0, at).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
