// Package store is the structured relational store backing the memory
// engine: tasks, events, artifacts, facts, checkpoints, token metrics, and
// edges, plus the query surface the rest of the engine is built on.
//
// The schema and query contracts are deliberately engine-agnostic (Store is
// an interface) even though this build ships a single implementation —
// modernc.org/sqlite-backed — because the spec treats "SQL engine" as an
// abstract dependency the core consumes rather than owns.
package store

import "context"

// Store is the query surface the commit pipeline, bundle composer, and
// checkpoint builder are written against.
type Store interface {
	UpsertTask(ctx context.Context, t Task) error
	GetTaskByID(ctx context.Context, id string) (*Task, error)
	ListActiveTasks(ctx context.Context, session string, limit int) ([]Task, error)

	InsertEvent(ctx context.Context, e Event) error
	GetEventByID(ctx context.Context, id string) (*Event, error)
	ListRecentEvents(ctx context.Context, session string, limit int) ([]Event, error)

	UpsertArtifact(ctx context.Context, a Artifact) error
	GetArtifactByID(ctx context.Context, id string) (*Artifact, error)
	ListArtifactHashes(ctx context.Context) (map[string]struct{}, error)

	UpsertFact(ctx context.Context, f Fact) error
	GetFactByID(ctx context.Context, id string) (*Fact, error)
	ListFacts(ctx context.Context) ([]Fact, error)

	InsertCheckpoint(ctx context.Context, c Checkpoint) error
	GetCheckpointByID(ctx context.Context, id string) (*Checkpoint, error)

	InsertTokenMetric(ctx context.Context, m TokenMetric) error

	InsertEdge(ctx context.Context, e Edge) error

	Search(ctx context.Context, session, query string, limit int) (SearchResults, error)

	// Counts returns row counts per table, for status reporting.
	Counts(ctx context.Context) (Counts, error)

	// CanonicalizeSessions rewrites session_id = canonical for every row
	// across events/tasks/checkpoints whose session_id matches "<base>@%"
	// and is not already canonical.
	CanonicalizeSessions(ctx context.Context, base, canonical string) error

	Close() error
}
