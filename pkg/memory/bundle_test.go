package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kraklabs/rwm/internal/tokens"
	"github.com/kraklabs/rwm/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestComposeGuaranteesRecentDecisionsAndFailures(t *testing.T) {
	db, _ := newHarness(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.InsertEvent(ctx, store.Event{ID: "D-1", Kind: store.EventDecision, SessionID: "s@main", Summary: "chose X", Ts: now}))
	require.NoError(t, db.InsertEvent(ctx, store.Event{ID: "F-fail-1", Kind: store.EventTestFail, SessionID: "s@main", Summary: "test broke", Ts: now}))
	require.NoError(t, db.InsertEvent(ctx, store.Event{ID: "N-1", Kind: store.EventNote, SessionID: "s@main", Summary: "fyi", Ts: now}))

	est := tokens.New(nil)
	bundle, err := Compose(ctx, db, est, BundleOptions{SessionID: "s@main", Budget: 100, Family: "generic"}, now)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, p := range bundle.Structured.Pointers {
		ids[p.ID] = true
	}
	require.True(t, ids["D-1"])
	require.True(t, ids["F-fail-1"])
	require.GreaterOrEqual(t, len(bundle.Metrics), len(bundle.Structured.Pointers))
}

func TestComposeRespectsBudget(t *testing.T) {
	db, _ := newHarness(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 20; i++ {
		require.NoError(t, db.InsertEvent(ctx, store.Event{
			ID: randEventID(i), Kind: store.EventNote, SessionID: "s@main",
			Summary: "a fairly long note about something that happened during the session",
			Ts:      now.Add(-time.Duration(i) * time.Minute),
		}))
	}

	est := tokens.New(nil)
	bundle, err := Compose(ctx, db, est, BundleOptions{SessionID: "s@main", Budget: 20, Family: "generic"}, now)
	require.NoError(t, err)

	sum := 0
	for _, p := range bundle.Structured.Pointers {
		sum += p.TokenCost
	}
	require.LessOrEqual(t, sum, 20)
}

func randEventID(i int) string {
	return "N-" + string(rune('a'+i))
}

func TestBuildCheckpointMetaTrims(t *testing.T) {
	db, _ := newHarness(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, db.UpsertTask(ctx, store.Task{
			ID: randEventID(i), SessionID: "s@main", Title: "t", Status: store.TaskDoing,
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	meta, err := BuildCheckpointMeta(ctx, db, "s@main")
	require.NoError(t, err)
	require.LessOrEqual(t, len(meta.ActiveTasks), 5)
}
