package handlers

import (
	"context"
	"fmt"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/pkg/memory"
)

// handleFetch returns a record by ID, trying tasks, then events, then
// artifacts, then facts, then checkpoints. For artifacts, the response
// includes a resource link to the bodied content.
func (d *Dispatcher) handleFetch(ctx context.Context, r FetchRequest) Response {
	if t, err := d.DB.GetTaskByID(ctx, r.ID); err != nil {
		return errResponse(err)
	} else if t != nil {
		return Response{Structured: map[string]any{"kind": "task", "record": t}}
	}
	if e, err := d.DB.GetEventByID(ctx, r.ID); err != nil {
		return errResponse(err)
	} else if e != nil {
		return Response{Structured: map[string]any{"kind": "event", "record": e}}
	}
	if a, err := d.DB.GetArtifactByID(ctx, r.ID); err != nil {
		return errResponse(err)
	} else if a != nil {
		return Response{Structured: map[string]any{
			"kind":     "artifact",
			"record":   a,
			"resource": fmt.Sprintf("artifact://sha256/%s", a.SHA256),
		}}
	}
	if f, err := d.DB.GetFactByID(ctx, r.ID); err != nil {
		return errResponse(err)
	} else if f != nil {
		return Response{Structured: map[string]any{"kind": "fact", "record": f}}
	}
	if c, err := d.DB.GetCheckpointByID(ctx, r.ID); err != nil {
		return errResponse(err)
	} else if c != nil {
		return Response{Structured: map[string]any{"kind": "checkpoint", "record": c}}
	}
	return errResponse(errors.NewNotFoundError("Record not found", "no record with id "+r.ID, "", nil))
}

func (d *Dispatcher) handleUpdate(ctx context.Context, r UpdateRequest) Response {
	now := d.now()
	switch r.Target {
	case memory.TargetTask:
		t, err := memory.HandleUpdateTask(ctx, d.DB, r.ID, r.TaskUpdate, now)
		if err != nil {
			return errResponse(err)
		}
		return Response{Structured: t}
	case memory.TargetArtifact:
		a, err := memory.HandleUpdateArtifact(ctx, d.DB, d.Artifacts, r.ID, r.ArtifactUpdate, now)
		if err != nil {
			return errResponse(err)
		}
		return Response{Structured: a}
	case memory.TargetFact:
		f, err := memory.HandleUpdateFact(ctx, d.DB, r.ID, r.FactUpdate)
		if err != nil {
			return errResponse(err)
		}
		return Response{Structured: f}
	default:
		return errResponse(errors.NewValidationError(
			"Unknown update target",
			string(r.Target),
			"target must be one of task, artifact, fact",
			nil,
		))
	}
}

func (d *Dispatcher) handleSpan(ctx context.Context, r SpanRequest) Response {
	text, err := ReadWorkspaceSpan(d.WorkspaceRoot, r.Path, r.StartLine, r.EndLine)
	if err != nil {
		return errResponse(err)
	}
	return Response{Text: text, Structured: map[string]any{"path": r.Path, "startLine": r.StartLine, "endLine": r.EndLine}}
}
