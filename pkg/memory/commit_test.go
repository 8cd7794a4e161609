package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/rwm/internal/idgen"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/store"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) (*store.SQLiteStore, *artifacts.Store) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "rwm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, artifacts.New(filepath.Join(dir, "pool"), dir)
}

func TestHandleCommitEventLinkedToCurrentTask(t *testing.T) {
	db, as := newHarness(t)
	ctx := context.Background()
	ts := time.Now()

	result, err := HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Task:      &TaskInput{Title: "Implement feature"},
		Decisions: []DecisionInput{{Type: store.EventDecision, Summary: "Chose approach"}},
	}, ts)
	require.NoError(t, err)
	require.Empty(t, result.ArtifactIDs)

	events, err := db.ListRecentEvents(ctx, "proj@main", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].TaskID)
	require.Equal(t, "T-implement-fe", *events[0].TaskID)
}

func TestHandleCommitDecisionInheritsAllArtifactIDs(t *testing.T) {
	db, as := newHarness(t)
	ctx := context.Background()
	ts := time.Now()

	result, err := HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Artifacts: []ArtifactInput{
			{Kind: store.ArtifactSnippet, Text: "aaa", HasText: true},
			{Kind: store.ArtifactSnippet, Text: "bbb", HasText: true},
		},
		Decisions: []DecisionInput{{Type: store.EventDecision, Summary: "no explicit evidence"}},
	}, ts)
	require.NoError(t, err)
	require.Len(t, result.ArtifactIDs, 2)

	events, err := db.ListRecentEvents(ctx, "proj@main", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.ElementsMatch(t, result.ArtifactIDs, events[0].EvidenceIDs)
}

func TestHandleCommitDecisionKeepsExplicitEvidence(t *testing.T) {
	db, as := newHarness(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Artifacts: []ArtifactInput{{Kind: store.ArtifactSnippet, Text: "aaa", HasText: true}},
		Decisions: []DecisionInput{{
			Type: store.EventDecision, Summary: "explicit", HasEvidence: true, EvidenceIDs: []string{"E-custom"},
		}},
	}, ts)
	require.NoError(t, err)

	events, err := db.ListRecentEvents(ctx, "proj@main", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"E-custom"}, events[0].EvidenceIDs)
}

func TestHandleCommitFactDedup(t *testing.T) {
	db, as := newHarness(t)
	ctx := context.Background()
	ts := time.Now()

	_, err := HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Facts:     []FactInput{{Key: "build", Value: "npm run build"}},
	}, ts)
	require.NoError(t, err)
	_, err = HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Facts:     []FactInput{{Key: "build", Value: "make build"}},
	}, ts)
	require.NoError(t, err)

	facts, err := db.ListFacts(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "make build", facts[0].Value)
	require.Equal(t, idgen.FactID("build", "repo"), facts[0].ID)
}

func TestHandleCommitPointerArtifactPreservesURI(t *testing.T) {
	db, as := newHarness(t)
	ctx := context.Background()
	ts := time.Now()

	result, err := HandleCommit(ctx, db, as, CommitInput{
		SessionID: "proj@main",
		Artifacts: []ArtifactInput{{Kind: store.ArtifactSnippet, URI: "workspace://README.md"}},
	}, ts)
	require.NoError(t, err)
	require.Len(t, result.ArtifactIDs, 1)

	a, err := db.GetArtifactByID(ctx, result.ArtifactIDs[0])
	require.NoError(t, err)
	require.Equal(t, "workspace://README.md", a.URI)
	require.Equal(t, int64(0), a.Size)
}
