package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kraklabs/rwm/internal/idgen"
	"github.com/kraklabs/rwm/pkg/store"
)

// BuildCheckpointMeta snapshots the objective, up to 5 active tasks, up to 5
// recent events, and up to 5 facts for a labeled save point.
func BuildCheckpointMeta(ctx context.Context, db store.Store, session string) (CheckpointMeta, error) {
	tasks, err := db.ListActiveTasks(ctx, session, 5)
	if err != nil {
		return CheckpointMeta{}, err
	}
	events, err := db.ListRecentEvents(ctx, session, 5)
	if err != nil {
		return CheckpointMeta{}, err
	}
	facts, err := db.ListFacts(ctx)
	if err != nil {
		return CheckpointMeta{}, err
	}
	if len(facts) > 5 {
		facts = facts[:5]
	}

	meta := CheckpointMeta{Objective: "No active task"}
	if len(tasks) > 0 {
		meta.Objective = tasks[0].Title
	}
	for _, t := range tasks {
		meta.ActiveTasks = append(meta.ActiveTasks, TaskMeta{ID: t.ID, Title: t.Title, Status: t.Status})
	}
	for _, e := range events {
		meta.RecentEvents = append(meta.RecentEvents, EventMeta{ID: e.ID, Kind: e.Kind, Summary: e.Summary})
	}
	for _, f := range facts {
		meta.Facts = append(meta.Facts, FactMeta{ID: f.ID, Key: f.Key, Value: f.Value})
	}
	return meta, nil
}

// HandleCheckpoint builds the checkpoint meta snapshot and inserts the
// checkpoint row.
func HandleCheckpoint(ctx context.Context, db store.Store, session, label string, ts time.Time) (store.Checkpoint, error) {
	meta, err := BuildCheckpointMeta(ctx, db, session)
	if err != nil {
		return store.Checkpoint{}, err
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return store.Checkpoint{}, err
	}
	cp := store.Checkpoint{
		ID:         idgen.RandID("CP"),
		SessionID:  session,
		Label:      label,
		Ts:         ts,
		BundleMeta: string(metaJSON),
	}
	if err := db.InsertCheckpoint(ctx, cp); err != nil {
		return store.Checkpoint{}, err
	}
	return cp, nil
}
