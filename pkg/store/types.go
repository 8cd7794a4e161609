package store

import "time"

// Task is a unit of work tracked within a session. ID is deterministic
// ("T-" + slug(title)[:12]); see internal/idgen.TaskID.
type Task struct {
	ID             string
	SessionID      string
	ParentID       *string
	Title          string
	Status         string
	AcceptCriteria *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Event kinds, per the data model.
const (
	EventDecision   = "DECISION"
	EventAssumption = "ASSUMPTION"
	EventFix        = "FIX"
	EventBlocker    = "BLOCKER"
	EventNote       = "NOTE"
	EventTestFail   = "TEST_FAIL"
	EventTestPass   = "TEST_PASS"
)

// Task statuses, per the data model.
const (
	TaskTodo    = "todo"
	TaskDoing   = "doing"
	TaskBlocked = "blocked"
	TaskDone    = "done"
	TaskReview  = "review"
)

// Event is an append-only record of something that happened during a
// session: a decision, a test result, a blocker. EvidenceIDs is stored as a
// JSON-encoded array of artifact/event IDs.
type Event struct {
	ID          string
	Kind        string
	TaskID      *string
	SessionID   string
	Summary     string
	EvidenceIDs []string
	Ts          time.Time
}

// Artifact kinds, per the data model.
const (
	ArtifactDiff      = "DIFF"
	ArtifactSnippet   = "SNIPPET"
	ArtifactConfig    = "CONFIG"
	ArtifactFixture   = "FIXTURE"
	ArtifactTestTrace = "TEST_TRACE"
	ArtifactLog       = "LOG"
	ArtifactOther     = "OTHER"
)

// Origin types recorded in an artifact's meta_json.origin.type.
const (
	OriginText        = "text"
	OriginWorkspace   = "workspace"
	OriginWorkspaceURI = "workspace-uri"
	OriginURI         = "uri"
	OriginEmpty       = "empty"
)

// Artifact is either bodied (its content lives in the content-addressed
// pool, URI = "artifact://sha256/<hex>") or a pointer (URI is an external
// reference, Size is 0, no pool file). MetaJSON is an opaque caller-supplied
// JSON object plus an "origin" stamp this package never overwrites once set.
type Artifact struct {
	ID        string
	Kind      string
	URI       string
	SHA256    string
	Size      int64
	MetaJSON  string
	CreatedAt time.Time
}

// Fact scopes, per the data model.
const (
	ScopeRepo    = "repo"
	ScopeService = "service"
	ScopeTeam    = "team"
	ScopeGlobal  = "global"
)

// Fact is a durable project-wide key/value pair. ID is deterministic
// ("F-" + sha256(key::scope)[:16]); facts carry no session column.
type Fact struct {
	ID    string
	Key   string
	Value string
	Scope string
}

// Checkpoint is an append-only labeled save point. BundleMeta is the JSON
// snapshot produced by the checkpoint meta builder (pkg/memory).
type Checkpoint struct {
	ID         string
	SessionID  string
	Label      string
	Ts         time.Time
	BundleMeta string
}

// TokenMetric is an optional diagnostics row recording the token cost of one
// item included in a composed bundle.
type TokenMetric struct {
	ID        string
	SessionID string
	PointerID string
	TokenCost int
	Budget    int
	CreatedAt time.Time
}

// Edge kinds, per the data model. Present in schema, unused by core write
// paths — reserved for future relation tracking.
const (
	EdgeDependsOn = "depends_on"
	EdgeRelatesTo = "relates_to"
	EdgeTouches   = "touches"
)

// Edge is a typed relation between two entity IDs.
type Edge struct {
	SrcID string
	DstID string
	Kind  string
}

// SearchResults is the result shape of memory_search: three independently
// matched slices, never cross-referenced.
type SearchResults struct {
	Events []Event
	Tasks  []Task
	Facts  []Fact
}
