package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kraklabs/rwm/internal/errors"
)

// UpsertTask inserts t or, on primary-key conflict, updates every column
// except created_at.
func (s *SQLiteStore) UpsertTask(ctx context.Context, t Task) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, session_id, parent_id, title, status, accept_criteria, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				session_id = excluded.session_id,
				parent_id = excluded.parent_id,
				title = excluded.title,
				status = excluded.status,
				accept_criteria = excluded.accept_criteria,
				updated_at = excluded.updated_at
		`, t.ID, t.SessionID, t.ParentID, t.Title, t.Status, t.AcceptCriteria, timeFmt(t.CreatedAt), timeFmt(t.UpdatedAt))
		return err
	})
}

func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, parent_id, title, status, accept_criteria, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read task", err.Error(), "", err)
	}
	return t, nil
}

// ListActiveTasks returns tasks for session with status in {doing, blocked},
// ordered by updated_at descending.
func (s *SQLiteStore) ListActiveTasks(ctx context.Context, session string, limit int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, parent_id, title, status, accept_criteria, created_at, updated_at
		FROM tasks
		WHERE session_id = ? AND status IN ('doing', 'blocked')
		ORDER BY updated_at DESC
		LIMIT ?
	`, session, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list active tasks", err.Error(), "", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("Cannot read task row", err.Error(), "", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.SessionID, &t.ParentID, &t.Title, &t.Status, &t.AcceptCriteria, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertEvent appends e. Fails on duplicate primary key — events are
// append-only by design (see spec §7: callers must not reuse decision IDs).
func (s *SQLiteStore) InsertEvent(ctx context.Context, e Event) error {
	evidence, err := json.Marshal(e.EvidenceIDs)
	if err != nil {
		return errors.NewInternalError("Cannot encode event evidence", err.Error(), "", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, kind, task_id, session_id, summary, evidence_ids, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Kind, e.TaskID, e.SessionID, e.Summary, string(evidence), timeFmt(e.Ts))
		return err
	})
}

func (s *SQLiteStore) GetEventByID(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, task_id, session_id, summary, evidence_ids, ts
		FROM events WHERE id = ?
	`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read event", err.Error(), "", err)
	}
	return e, nil
}

// ListRecentEvents returns events for session ordered by ts descending,
// limited to n. Ties in ts have unspecified secondary order, per spec §5.
func (s *SQLiteStore) ListRecentEvents(ctx context.Context, session string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, task_id, session_id, summary, evidence_ids, ts
		FROM events WHERE session_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`, session, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list recent events", err.Error(), "", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("Cannot read event row", err.Error(), "", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	var ts, evidence string
	if err := row.Scan(&e.ID, &e.Kind, &e.TaskID, &e.SessionID, &e.Summary, &evidence, &ts); err != nil {
		return nil, err
	}
	var err error
	if e.Ts, err = parseTime(ts); err != nil {
		return nil, err
	}
	if evidence != "" {
		if err := json.Unmarshal([]byte(evidence), &e.EvidenceIDs); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// UpsertArtifact overwrites all mutable columns of a.
func (s *SQLiteStore) UpsertArtifact(ctx context.Context, a Artifact) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (id, kind, uri, sha256, size, meta_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				uri = excluded.uri,
				sha256 = excluded.sha256,
				size = excluded.size,
				meta_json = excluded.meta_json
		`, a.ID, a.Kind, a.URI, a.SHA256, a.Size, a.MetaJSON, timeFmt(a.CreatedAt))
		return err
	})
}

func (s *SQLiteStore) GetArtifactByID(ctx context.Context, id string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, uri, sha256, size, meta_json, created_at
		FROM artifacts WHERE id = ?
	`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read artifact", err.Error(), "", err)
	}
	return a, nil
}

// ListArtifactHashes returns the distinct sha256 values across all artifact
// rows, for the artifact store's orphan prune.
func (s *SQLiteStore) ListArtifactHashes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT sha256 FROM artifacts`)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list artifact hashes", err.Error(), "", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, errors.NewDatabaseError("Cannot read artifact hash row", err.Error(), "", err)
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

// Counts holds row counts per table, used by the status CLI command.
type Counts struct {
	Tasks       int
	Events      int
	Artifacts   int
	Facts       int
	Checkpoints int
}

// Counts returns row counts across every table, for status reporting.
func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	rows := []struct {
		table string
		dest  *int
	}{
		{"tasks", &c.Tasks},
		{"events", &c.Events},
		{"artifacts", &c.Artifacts},
		{"facts", &c.Facts},
		{"checkpoints", &c.Checkpoints},
	}
	for _, r := range rows {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(r.dest); err != nil {
			return Counts{}, errors.NewDatabaseError("Cannot count "+r.table, err.Error(), "", err)
		}
	}
	return c, nil
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var createdAt string
	if err := row.Scan(&a.ID, &a.Kind, &a.URI, &a.SHA256, &a.Size, &a.MetaJSON, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertFact overwrites value and scope for the deterministic fact ID.
func (s *SQLiteStore) UpsertFact(ctx context.Context, f Fact) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO facts (id, key, value, scope)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				value = excluded.value,
				scope = excluded.scope
		`, f.ID, f.Key, f.Value, f.Scope)
		return err
	})
}

func (s *SQLiteStore) GetFactByID(ctx context.Context, id string) (*Fact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, key, value, scope FROM facts WHERE id = ?`, id)
	var f Fact
	err := row.Scan(&f.ID, &f.Key, &f.Value, &f.Scope)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read fact", err.Error(), "", err)
	}
	return &f, nil
}

// ListFacts returns all facts; facts carry no session column.
func (s *SQLiteStore) ListFacts(ctx context.Context) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, key, value, scope FROM facts`)
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot list facts", err.Error(), "", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.Key, &f.Value, &f.Scope); err != nil {
			return nil, errors.NewDatabaseError("Cannot read fact row", err.Error(), "", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertCheckpoint(ctx context.Context, c Checkpoint) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoints (id, session_id, label, ts, bundle_meta)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.SessionID, c.Label, timeFmt(c.Ts), c.BundleMeta)
		return err
	})
}

func (s *SQLiteStore) GetCheckpointByID(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, label, ts, bundle_meta FROM checkpoints WHERE id = ?
	`, id)
	var c Checkpoint
	var ts string
	err := row.Scan(&c.ID, &c.SessionID, &c.Label, &ts, &c.BundleMeta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("Cannot read checkpoint", err.Error(), "", err)
	}
	if c.Ts, err = parseTime(ts); err != nil {
		return nil, errors.NewDatabaseError("Cannot parse checkpoint timestamp", err.Error(), "", err)
	}
	return &c, nil
}

func (s *SQLiteStore) InsertTokenMetric(ctx context.Context, m TokenMetric) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO token_metrics (id, session_id, pointer_id, token_cost, budget, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, m.SessionID, m.PointerID, m.TokenCost, m.Budget, timeFmt(m.CreatedAt))
		return err
	})
}

func (s *SQLiteStore) InsertEdge(ctx context.Context, e Edge) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO edges (src_id, dst_id, kind) VALUES (?, ?, ?)
			ON CONFLICT(src_id, dst_id, kind) DO NOTHING
		`, e.SrcID, e.DstID, e.Kind)
		return err
	})
}

// Search runs three independent substring matches: events.summary∨id,
// tasks.title∨id scoped to session, and facts.key∨value ignoring session
// (facts are project-wide — see spec §9).
func (s *SQLiteStore) Search(ctx context.Context, session, query string, limit int) (SearchResults, error) {
	like := "%" + query + "%"
	var out SearchResults

	eventRows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, task_id, session_id, summary, evidence_ids, ts
		FROM events
		WHERE session_id = ? AND (summary LIKE ? OR id LIKE ?)
		ORDER BY ts DESC
		LIMIT ?
	`, session, like, like, limit)
	if err != nil {
		return out, errors.NewDatabaseError("Cannot search events", err.Error(), "", err)
	}
	for eventRows.Next() {
		e, err := scanEvent(eventRows)
		if err != nil {
			eventRows.Close()
			return out, errors.NewDatabaseError("Cannot read matched event", err.Error(), "", err)
		}
		out.Events = append(out.Events, *e)
	}
	eventRows.Close()
	if err := eventRows.Err(); err != nil {
		return out, errors.NewDatabaseError("Cannot search events", err.Error(), "", err)
	}

	taskRows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, parent_id, title, status, accept_criteria, created_at, updated_at
		FROM tasks
		WHERE session_id = ? AND (title LIKE ? OR id LIKE ?)
		ORDER BY updated_at DESC
		LIMIT ?
	`, session, like, like, limit)
	if err != nil {
		return out, errors.NewDatabaseError("Cannot search tasks", err.Error(), "", err)
	}
	for taskRows.Next() {
		t, err := scanTask(taskRows)
		if err != nil {
			taskRows.Close()
			return out, errors.NewDatabaseError("Cannot read matched task", err.Error(), "", err)
		}
		out.Tasks = append(out.Tasks, *t)
	}
	taskRows.Close()
	if err := taskRows.Err(); err != nil {
		return out, errors.NewDatabaseError("Cannot search tasks", err.Error(), "", err)
	}

	factRows, err := s.db.QueryContext(ctx, `
		SELECT id, key, value, scope
		FROM facts
		WHERE key LIKE ? OR value LIKE ?
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return out, errors.NewDatabaseError("Cannot search facts", err.Error(), "", err)
	}
	defer factRows.Close()
	for factRows.Next() {
		var f Fact
		if err := factRows.Scan(&f.ID, &f.Key, &f.Value, &f.Scope); err != nil {
			return out, errors.NewDatabaseError("Cannot read matched fact", err.Error(), "", err)
		}
		out.Facts = append(out.Facts, f)
	}
	return out, factRows.Err()
}

// CanonicalizeSessions rewrites session_id = canonical for every row in
// events/tasks/checkpoints whose session_id matches "<base>@%" and isn't
// already canonical, folding rows written under an older alias (e.g. before
// a branch rename) into one session. The session resolver does not call it;
// rows are folded only when a caller invokes this method.
func (s *SQLiteStore) CanonicalizeSessions(ctx context.Context, base, canonical string) error {
	pattern := base + "@%"
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"events", "tasks", "checkpoints"} {
			_, err := tx.ExecContext(ctx,
				"UPDATE "+table+" SET session_id = ? WHERE session_id LIKE ? AND session_id != ?",
				canonical, pattern, canonical)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
