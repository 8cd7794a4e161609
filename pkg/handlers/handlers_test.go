package handlers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/rwm/internal/tokens"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/memory"
	"github.com/kraklabs/rwm/pkg/session"
	"github.com/kraklabs/rwm/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "rwm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Dispatcher{
		DB:            db,
		Artifacts:     artifacts.New(filepath.Join(dir, "pool"), dir),
		Sessions:      session.New(),
		Estimator:     tokens.New(nil),
		WorkspaceRoot: dir,
		DefaultBudget: 4000,
		ModelFamily:   "generic",
		Now:           func() time.Time { return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) },
	}, dir
}

func TestDispatchCommitThenResume(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	commitResp := d.Dispatch(ctx, CommitRequest{
		SessionID: "proj@main",
		Task:      &memory.TaskInput{Title: "Ship the thing"},
		Decisions: []memory.DecisionInput{{Type: store.EventDecision, Summary: "went with plan A"}},
	})
	require.False(t, commitResp.Error)

	resumeResp := d.Dispatch(ctx, ResumeRequest{SessionID: "proj@main"})
	require.False(t, resumeResp.Error)
	bundle, ok := resumeResp.Structured.(memory.BundleStructured)
	require.True(t, ok)
	require.NotEmpty(t, bundle.Pointers)
}

func TestDispatchUpdateTaskAcceptCriteria(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	commitResp := d.Dispatch(ctx, CommitRequest{
		SessionID: "proj@main",
		Task:      &memory.TaskInput{Title: "Add retries"},
	})
	require.False(t, commitResp.Error)

	criteria := "all flaky tests pass 10x in a row"
	updResp := d.Dispatch(ctx, UpdateRequest{
		Target: memory.TargetTask,
		ID:     "T-add-retries",
		TaskUpdate: memory.TaskUpdate{
			HasAcceptCriteria: true,
			AcceptCriteria:    &criteria,
		},
	})
	require.False(t, updResp.Error)
	task, ok := updResp.Structured.(store.Task)
	require.True(t, ok)
	require.NotNil(t, task.AcceptCriteria)
	require.Equal(t, criteria, *task.AcceptCriteria)
}

func TestDispatchFetchUnknownIDReturnsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), FetchRequest{ID: "nope"})
	require.True(t, resp.Error)
}

func TestDispatchUnknownRequestType(t *testing.T) {
	d, _ := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), struct{ Request }{})
	require.True(t, resp.Error)
}

func TestReadResourceArtifactText(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	commitResp := d.Dispatch(ctx, CommitRequest{
		SessionID: "proj@main",
		Artifacts: []memory.ArtifactInput{{Kind: store.ArtifactSnippet, Text: "hello world", HasText: true}},
	})
	require.False(t, commitResp.Error)
	structured := commitResp.Structured.(map[string]any)
	ids := structured["artifactIds"].([]string)
	require.Len(t, ids, 1)

	a, err := d.DB.GetArtifactByID(ctx, ids[0])
	require.NoError(t, err)

	content, err := d.ReadResource("artifact://sha256/" + a.SHA256)
	require.NoError(t, err)
	require.False(t, content.IsBase64)
	require.Equal(t, "hello world", content.Text)
}

func TestReadResourceWorkspaceFullFile(t *testing.T) {
	d, dir := newTestDispatcher(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("line1\nline2\nline3"), 0o644))

	content, err := d.ReadResource("workspace://notes.txt")
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\nline3", content.Text)
}

func TestParseRequestResumeRejectsOversizedBudget(t *testing.T) {
	_, err := ParseRequest("memory_resume", json.RawMessage(`{"session_id":"proj@main","token_budget":9999999}`))
	require.Error(t, err)
}

func TestParseRequestUpdateDistinguishesOmitFromNull(t *testing.T) {
	reqOmit, err := ParseRequest("memory_update", json.RawMessage(`{"target":"task","id":"T-x"}`))
	require.NoError(t, err)
	upd := reqOmit.(UpdateRequest)
	require.False(t, upd.TaskUpdate.HasAcceptCriteria)

	reqNull, err := ParseRequest("memory_update", json.RawMessage(`{"target":"task","id":"T-x","accept_criteria":null}`))
	require.NoError(t, err)
	updNull := reqNull.(UpdateRequest)
	require.True(t, updNull.TaskUpdate.HasAcceptCriteria)
	require.Nil(t, updNull.TaskUpdate.AcceptCriteria)

	reqVal, err := ParseRequest("memory_update", json.RawMessage(`{"target":"task","id":"T-x","accept_criteria":"done when green"}`))
	require.NoError(t, err)
	updVal := reqVal.(UpdateRequest)
	require.True(t, updVal.TaskUpdate.HasAcceptCriteria)
	require.NotNil(t, updVal.TaskUpdate.AcceptCriteria)
	require.Equal(t, "done when green", *updVal.TaskUpdate.AcceptCriteria)
}

func TestParseRequestCommitRejectsMissingSessionID(t *testing.T) {
	_, err := ParseRequest("memory_commit", json.RawMessage(`{"decisions":[{"type":"DECISION","summary":"x"}]}`))
	require.Error(t, err)
}

func TestParseRequestCommitEvidencePresenceVsOmitted(t *testing.T) {
	req, err := ParseRequest("memory_commit", json.RawMessage(`{
		"session_id":"proj@main",
		"decisions":[
			{"type":"DECISION","summary":"no evidence key"},
			{"type":"DECISION","summary":"explicit empty evidence","evidence":[]}
		]
	}`))
	require.NoError(t, err)
	commit := req.(CommitRequest)
	require.False(t, commit.Decisions[0].HasEvidence)
	require.True(t, commit.Decisions[1].HasEvidence)
	require.Empty(t, commit.Decisions[1].EvidenceIDs)
}

func TestParseRequestSpanRejectsInvertedRange(t *testing.T) {
	_, err := ParseRequest("memory_span", json.RawMessage(`{"path":"a.go","startLine":10,"endLine":2}`))
	require.Error(t, err)
}

func TestParseRequestUnknownOp(t *testing.T) {
	_, err := ParseRequest("memory_teleport", json.RawMessage(`{}`))
	require.Error(t, err)
}
