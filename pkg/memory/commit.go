package memory

import (
	"context"
	"time"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/idgen"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/store"
)

// HandleCommit applies one state frame: upserts the current task (if any),
// content-addresses every artifact, appends the decisions as events, upserts
// facts, and prunes the artifact pool. Artifact IDs are fully collected
// before any event is inserted, so a decision with omitted evidence inherits
// every artifact ID this commit produced — not only the ones preceding it.
func HandleCommit(ctx context.Context, db store.Store, artifactStore *artifacts.Store, input CommitInput, ts time.Time) (CommitResult, error) {
	var currentTaskID string
	if input.Task != nil {
		currentTaskID = idgen.TaskID(input.Task.Title)
		if err := db.UpsertTask(ctx, store.Task{
			ID:        currentTaskID,
			SessionID: input.SessionID,
			Title:     input.Task.Title,
			Status:    store.TaskDoing,
			CreatedAt: ts,
			UpdatedAt: ts,
		}); err != nil {
			return CommitResult{}, err
		}
	}

	artifactIDs := make([]string, 0, len(input.Artifacts))
	for _, desc := range input.Artifacts {
		rec, _, err := artifactStore.Prepare(ctx, desc, ts)
		if err != nil {
			return CommitResult{}, err
		}
		if err := db.UpsertArtifact(ctx, artifacts.ToStoreArtifact(rec, ts)); err != nil {
			return CommitResult{}, err
		}
		artifactIDs = append(artifactIDs, rec.ID)
	}

	for _, d := range input.Decisions {
		id := d.ID
		if id == "" {
			id = idgen.RandID("D")
		}
		taskID := currentTaskID
		if d.TaskID != "" {
			taskID = d.TaskID
		}
		var taskIDPtr *string
		if taskID != "" {
			taskIDPtr = &taskID
		}

		evidence := d.EvidenceIDs
		if !d.HasEvidence {
			evidence = artifactIDs
		}

		if err := db.InsertEvent(ctx, store.Event{
			ID:          id,
			Kind:        d.Type,
			TaskID:      taskIDPtr,
			SessionID:   input.SessionID,
			Summary:     d.Summary,
			EvidenceIDs: evidence,
			Ts:          ts,
		}); err != nil {
			return CommitResult{}, err
		}
	}

	for _, f := range input.Facts {
		scope := f.Scope
		if scope == "" {
			scope = store.ScopeRepo
		}
		if err := db.UpsertFact(ctx, store.Fact{
			ID:    idgen.FactID(f.Key, scope),
			Key:   f.Key,
			Value: f.Value,
			Scope: scope,
		}); err != nil {
			return CommitResult{}, err
		}
	}

	known, err := db.ListArtifactHashes(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	pruned, err := artifactStore.PruneOrphans(ctx, known)
	if err != nil {
		return CommitResult{}, errors.NewInternalError("Artifact prune failed", err.Error(), "", err)
	}

	return CommitResult{Ts: ts, ArtifactIDs: artifactIDs, PrunedCount: pruned}, nil
}
