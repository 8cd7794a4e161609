package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/store"
)

// Target names the record kind memory_update mutates.
type Target string

const (
	TargetTask     Target = "task"
	TargetArtifact Target = "artifact"
	TargetFact     Target = "fact"
)

// TaskUpdate carries only the fields the caller supplied. AcceptCriteria
// distinguishes "omitted" (HasAcceptCriteria false) from "set to null"
// (HasAcceptCriteria true, AcceptCriteria nil) from "set to a value" per the
// spec's open question on preserving that distinction through the wire
// format — pkg/handlers/validate.go is responsible for populating it
// correctly from the raw JSON object.
type TaskUpdate struct {
	HasTitle  bool
	Title     string
	HasStatus bool
	Status    string

	HasAcceptCriteria bool
	AcceptCriteria    *string
}

// ArtifactUpdate carries only the fields the caller supplied. When Text is
// set, a new body is hashed and written to the pool and the row's
// uri/sha256/size are rewritten; the previous body becomes eligible for the
// next prune.
type ArtifactUpdate struct {
	HasKind bool
	Kind    string
	HasText bool
	Text    string
	HasMeta bool
	Meta    map[string]any
}

// FactUpdate carries only the fields the caller supplied.
type FactUpdate struct {
	HasValue bool
	Value    string
	HasScope bool
	Scope    string
}

// HandleUpdateTask applies a partial update to an existing task.
func HandleUpdateTask(ctx context.Context, db store.Store, id string, u TaskUpdate, now time.Time) (store.Task, error) {
	t, err := db.GetTaskByID(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if t == nil {
		return store.Task{}, errors.NewNotFoundError("Task not found", "no task with id "+id, "", nil)
	}
	if !u.HasTitle && !u.HasStatus && !u.HasAcceptCriteria {
		return store.Task{}, errors.NewInvalidUpdateError(
			"No mutable fields supplied",
			"memory_update on a task requires at least one of title, status, accept_criteria",
			"",
			nil,
		)
	}

	if u.HasTitle {
		t.Title = u.Title
	}
	if u.HasStatus {
		t.Status = u.Status
	}
	if u.HasAcceptCriteria {
		t.AcceptCriteria = u.AcceptCriteria
	}
	t.UpdatedAt = now

	if err := db.UpsertTask(ctx, *t); err != nil {
		return store.Task{}, err
	}
	return *t, nil
}

// HandleUpdateArtifact applies a partial update to an existing artifact.
func HandleUpdateArtifact(ctx context.Context, db store.Store, artifactStore *artifacts.Store, id string, u ArtifactUpdate, now time.Time) (store.Artifact, error) {
	a, err := db.GetArtifactByID(ctx, id)
	if err != nil {
		return store.Artifact{}, err
	}
	if a == nil {
		return store.Artifact{}, errors.NewNotFoundError("Artifact not found", "no artifact with id "+id, "", nil)
	}
	if !u.HasKind && !u.HasText && !u.HasMeta {
		return store.Artifact{}, errors.NewInvalidUpdateError(
			"No mutable fields supplied",
			"memory_update on an artifact requires at least one of kind, text, meta",
			"",
			nil,
		)
	}

	if u.HasKind {
		a.Kind = u.Kind
	}

	if u.HasText {
		oldBody, _ := artifactStore.ReadBody(a.SHA256)
		desc := artifacts.Descriptor{ID: a.ID, Kind: a.Kind, Text: u.Text, HasText: true}
		if u.HasMeta {
			desc.Meta = u.Meta
		}
		rec, newBody, err := artifactStore.Prepare(ctx, desc, now)
		if err != nil {
			return store.Artifact{}, err
		}
		if oldBody != nil {
			logTextDiff(a.ID, oldBody, newBody)
		}
		a.URI = rec.URI
		a.SHA256 = rec.SHA256
		a.Size = rec.Size
		a.MetaJSON = rec.MetaJSON
	} else if u.HasMeta {
		metaJSON, err := json.Marshal(u.Meta)
		if err != nil {
			return store.Artifact{}, err
		}
		a.MetaJSON = string(metaJSON)
	}

	if err := db.UpsertArtifact(ctx, *a); err != nil {
		return store.Artifact{}, err
	}
	return *a, nil
}

// HandleUpdateFact applies a partial update to an existing fact.
func HandleUpdateFact(ctx context.Context, db store.Store, id string, u FactUpdate) (store.Fact, error) {
	f, err := db.GetFactByID(ctx, id)
	if err != nil {
		return store.Fact{}, err
	}
	if f == nil {
		return store.Fact{}, errors.NewNotFoundError("Fact not found", "no fact with id "+id, "", nil)
	}
	if !u.HasValue && !u.HasScope {
		return store.Fact{}, errors.NewInvalidUpdateError(
			"No mutable fields supplied",
			"memory_update on a fact requires at least one of value, scope",
			"",
			nil,
		)
	}
	if u.HasValue {
		f.Value = u.Value
	}
	if u.HasScope {
		f.Scope = u.Scope
	}
	if err := db.UpsertFact(ctx, *f); err != nil {
		return store.Fact{}, err
	}
	return *f, nil
}

// logTextDiff logs a truncated diff summary of an artifact body rewrite.
// Purely observational: it never changes the update's outcome.
func logTextDiff(artifactID string, oldBody, newBody []byte) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(oldBody), string(newBody), false)
	summary := dmp.DiffPrettyText(diffs)
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}
	slog.Debug("artifact body rewritten", "artifact_id", artifactID, "diff", summary)
}
