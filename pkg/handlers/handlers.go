// Package handlers implements the seven named operations the host's request
// channel dispatches to: memory_resume, memory_commit, memory_update,
// memory_fetch, memory_span, memory_search, and memory_checkpoint. Each
// operation is represented as a tagged Request variant so validation stays
// colocated with the handler rather than living behind string-keyed
// routing.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/kraklabs/rwm/internal/tokens"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/memory"
	"github.com/kraklabs/rwm/pkg/session"
	"github.com/kraklabs/rwm/pkg/store"
)

// Request is implemented by every operation's input type.
type Request interface{ isRequest() }

type ResumeRequest struct {
	SessionID   string
	TokenBudget int
}

func (ResumeRequest) isRequest() {}

type CommitRequest struct {
	SessionID string
	Task      *memory.TaskInput
	Decisions []memory.DecisionInput
	Artifacts []memory.ArtifactInput
	Facts     []memory.FactInput
}

func (CommitRequest) isRequest() {}

type UpdateRequest struct {
	Target         memory.Target
	ID             string
	TaskUpdate     memory.TaskUpdate
	ArtifactUpdate memory.ArtifactUpdate
	FactUpdate     memory.FactUpdate
}

func (UpdateRequest) isRequest() {}

type FetchRequest struct{ ID string }

func (FetchRequest) isRequest() {}

type SpanRequest struct {
	Path      string
	StartLine int
	EndLine   int
}

func (SpanRequest) isRequest() {}

type SearchRequest struct {
	SessionID string
	Query     string
	Limit     int
}

func (SearchRequest) isRequest() {}

type CheckpointRequest struct {
	SessionID string
	Label     string
}

func (CheckpointRequest) isRequest() {}

// Response is the uniform shape every handler returns: a human-readable
// rendering plus the structured payload, or an error flag and message.
type Response struct {
	Text       string `json:"text,omitempty"`
	Structured any    `json:"structured,omitempty"`
	Error      bool   `json:"error"`
	Message    string `json:"message,omitempty"`
}

// Dispatcher holds the wiring every handler needs: the structured store, the
// artifact store, the session resolver, the token estimator, the workspace
// root for span/resource reads, and the default bundle budget/family.
type Dispatcher struct {
	DB            store.Store
	Artifacts     *artifacts.Store
	Sessions      *session.Resolver
	Estimator     tokens.Estimator
	WorkspaceRoot string
	DefaultBudget int
	ModelFamily   string
	Metrics       *memory.Metrics
	Now           func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch type-switches on req and invokes the matching core routine.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch r := req.(type) {
	case ResumeRequest:
		return d.handleResume(ctx, r)
	case CommitRequest:
		return d.handleCommit(ctx, r)
	case UpdateRequest:
		return d.handleUpdate(ctx, r)
	case FetchRequest:
		return d.handleFetch(ctx, r)
	case SpanRequest:
		return d.handleSpan(ctx, r)
	case SearchRequest:
		return d.handleSearch(ctx, r)
	case CheckpointRequest:
		return d.handleCheckpoint(ctx, r)
	default:
		return errResponse(errors.New("unknown request type"))
	}
}

func errResponse(err error) Response {
	return Response{Error: true, Message: err.Error()}
}

func (d *Dispatcher) resolveSession(raw string) string {
	return d.Sessions.Resolve(raw, d.WorkspaceRoot)
}

func (d *Dispatcher) handleResume(ctx context.Context, r ResumeRequest) Response {
	budget := r.TokenBudget
	if budget <= 0 {
		budget = d.DefaultBudget
	}
	sessionID := d.resolveSession(r.SessionID)

	bundle, err := memory.Compose(ctx, d.DB, d.Estimator, memory.BundleOptions{
		SessionID: sessionID, Budget: budget, Family: d.ModelFamily,
	}, d.now())
	if err != nil {
		return errResponse(err)
	}
	if d.Metrics != nil {
		d.Metrics.BundlesComposed.Inc()
		d.Metrics.BundleTokensUsed.Observe(float64(bundle.Structured.TokenEstimate))
	}
	for _, m := range bundle.Metrics {
		_ = d.DB.InsertTokenMetric(ctx, store.TokenMetric{
			ID:        "TM-" + m.PointerID,
			SessionID: sessionID,
			PointerID: m.PointerID,
			TokenCost: m.TokenCost,
			Budget:    budget,
			CreatedAt: d.now(),
		})
	}
	return Response{Text: bundle.Text, Structured: bundle.Structured}
}

func (d *Dispatcher) handleCommit(ctx context.Context, r CommitRequest) Response {
	sessionID := d.resolveSession(r.SessionID)
	ts := d.now()

	result, err := memory.HandleCommit(ctx, d.DB, d.Artifacts, memory.CommitInput{
		SessionID: sessionID,
		Task:      r.Task,
		Artifacts: r.Artifacts,
		Decisions: r.Decisions,
		Facts:     r.Facts,
	}, ts)
	if err != nil {
		return errResponse(err)
	}
	if d.Metrics != nil {
		d.Metrics.CommitsApplied.Inc()
		d.Metrics.ArtifactsPruned.Add(float64(result.PrunedCount))
	}
	return Response{
		Structured: map[string]any{
			"ok":          true,
			"ts":          ts,
			"artifactIds": result.ArtifactIDs,
			"session_id":  sessionID,
		},
	}
}

func (d *Dispatcher) handleCheckpoint(ctx context.Context, r CheckpointRequest) Response {
	sessionID := d.resolveSession(r.SessionID)
	cp, err := memory.HandleCheckpoint(ctx, d.DB, sessionID, r.Label, d.now())
	if err != nil {
		return errResponse(err)
	}
	return Response{Structured: map[string]any{
		"id": cp.ID, "session_id": cp.SessionID, "label": cp.Label,
	}}
}

func (d *Dispatcher) handleSearch(ctx context.Context, r SearchRequest) Response {
	sessionID := d.resolveSession(r.SessionID)
	limit := r.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	results, err := d.DB.Search(ctx, sessionID, r.Query, limit)
	if err != nil {
		return errResponse(err)
	}
	return Response{Structured: results}
}
