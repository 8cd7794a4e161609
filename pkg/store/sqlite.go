package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/kraklabs/rwm/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	parent_id TEXT,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	accept_criteria TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(session_id, status);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	task_id TEXT,
	session_id TEXT NOT NULL,
	summary TEXT NOT NULL,
	evidence_ids TEXT NOT NULL,
	ts TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events(session_id, ts);

CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	uri TEXT NOT NULL,
	sha256 TEXT NOT NULL,
	size INTEGER NOT NULL,
	meta_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_sha256 ON artifacts(sha256);

CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	scope TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	label TEXT NOT NULL,
	ts TEXT NOT NULL,
	bundle_meta TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id);

CREATE TABLE IF NOT EXISTS token_metrics (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	pointer_id TEXT NOT NULL,
	token_cost INTEGER NOT NULL,
	budget INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	src_id TEXT NOT NULL,
	dst_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (src_id, dst_id, kind)
);
`

// SQLiteStore is the default Store implementation: an embedded,
// single-process modernc.org/sqlite database opened in WAL mode. Every
// mutating method commits its own transaction before returning, giving the
// "flush the full database image atomically to disk" discipline the spec
// requires without RWM owning a snapshot format — WAL plus the OS's own
// fsync already provides it.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewDatabaseError(
			"Cannot open structured store",
			err.Error(),
			"Check that the database path is writable.",
			err,
		)
	}
	db.SetMaxOpenConns(1) // single-process, single-writer per spec §5

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError(
			"Cannot initialize structured store schema",
			err.Error(),
			"",
			err,
		)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) DB() *sql.DB { return s.db }

// withTx runs fn inside a transaction, retrying the commit on a transient
// SQLITE_BUSY-shaped failure (another in-process reader holding a lock
// during the OS-level flush) with bounded exponential backoff.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	op := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			if isBusy(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	bo2 := backoff.WithContext(bo, ctx)
	if err := backoff.Retry(op, bo2); err != nil {
		return errors.NewDatabaseError(
			"Structured store write failed",
			err.Error(),
			"",
			err,
		)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "busy") ||
		strings.Contains(strings.ToLower(err.Error()), "locked")
}

func timeFmt(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
