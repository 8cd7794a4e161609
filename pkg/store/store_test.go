package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "rwm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertTaskThenGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	task := Task{ID: "T-abc", SessionID: "proj@main", Title: "Do the thing", Status: TaskDoing, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.UpsertTask(ctx, task))

	got, err := s.GetTaskByID(ctx, "T-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Do the thing", got.Title)

	task.Status = TaskDone
	task.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.UpsertTask(ctx, task))

	got, err = s.GetTaskByID(ctx, "T-abc")
	require.NoError(t, err)
	require.Equal(t, TaskDone, got.Status)
	require.WithinDuration(t, now, got.CreatedAt, time.Second, "created_at must not change on upsert")
}

func TestListActiveTasksFiltersStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.UpsertTask(ctx, Task{ID: "T-a", SessionID: "p@main", Title: "a", Status: TaskDoing, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertTask(ctx, Task{ID: "T-b", SessionID: "p@main", Title: "b", Status: TaskDone, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertTask(ctx, Task{ID: "T-c", SessionID: "p@main", Title: "c", Status: TaskBlocked, CreatedAt: now, UpdatedAt: now}))

	active, err := s.ListActiveTasks(ctx, "p@main", 10)
	require.NoError(t, err)
	require.Len(t, active, 2)
}

func TestInsertEventAppendOnlyDuplicateFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := Event{ID: "D-1", Kind: EventDecision, SessionID: "p@main", Summary: "chose approach", Ts: time.Now()}
	require.NoError(t, s.InsertEvent(ctx, e))
	require.Error(t, s.InsertEvent(ctx, e))
}

func TestUpsertFactDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f1 := Fact{ID: "F-1", Key: "build", Value: "npm run build", Scope: ScopeRepo}
	f2 := Fact{ID: "F-1", Key: "build", Value: "make build", Scope: ScopeRepo}
	require.NoError(t, s.UpsertFact(ctx, f1))
	require.NoError(t, s.UpsertFact(ctx, f2))

	facts, err := s.ListFacts(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "make build", facts[0].Value)
}

func TestSearchFactsIgnoreSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertFact(ctx, Fact{ID: "F-1", Key: "build", Value: "npm run build", Scope: ScopeRepo}))

	res, err := s.Search(ctx, "some-other-session@main", "build", 10)
	require.NoError(t, err)
	require.Len(t, res.Facts, 1)
}

func TestListArtifactHashesDistinct(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.UpsertArtifact(ctx, Artifact{ID: "P-1", Kind: ArtifactSnippet, URI: "artifact://sha256/abc", SHA256: "abc", CreatedAt: now}))
	require.NoError(t, s.UpsertArtifact(ctx, Artifact{ID: "P-2", Kind: ArtifactSnippet, URI: "artifact://sha256/abc", SHA256: "abc", CreatedAt: now}))

	hashes, err := s.ListArtifactHashes(ctx)
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	_, ok := hashes["abc"]
	require.True(t, ok)
}

func TestCanonicalizeSessionsRewritesMatchingRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.UpsertTask(ctx, Task{ID: "T-1", SessionID: "proj@unknown", Title: "x", Status: TaskDoing, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, s.CanonicalizeSessions(ctx, "proj", "proj@main"))

	got, err := s.GetTaskByID(ctx, "T-1")
	require.NoError(t, err)
	require.Equal(t, "proj@main", got.SessionID)
}
