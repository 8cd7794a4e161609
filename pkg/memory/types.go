// Package memory implements the core memory engine: the state-frame commit
// pipeline, the budgeted bundle composer, and the checkpoint meta builder.
package memory

import (
	"time"

	"github.com/kraklabs/rwm/pkg/artifacts"
)

// CommitInput is one state frame: an optional current task, a set of
// artifacts to content-address, a set of decisions/events, and a set of
// durable facts.
type CommitInput struct {
	SessionID string
	Task      *TaskInput
	Artifacts []ArtifactInput
	Decisions []DecisionInput
	Facts     []FactInput
}

// TaskInput names the task a commit is working against. Only Title is
// required; the task ID is derived deterministically from it.
type TaskInput struct {
	Title string
}

// ArtifactInput is a caller-supplied artifact descriptor, identical in shape
// to artifacts.Descriptor (re-exported here so callers of this package don't
// need to import pkg/artifacts directly for simple commits).
type ArtifactInput = artifacts.Descriptor

// DecisionInput is one event to append. When HasEvidence is false,
// EvidenceIDs is ignored and defaulted to every artifact ID produced by the
// same commit (see HandleCommit); when it is true, EvidenceIDs is kept as
// given, even if empty.
type DecisionInput struct {
	ID          string
	Type        string // one of store.EventXxx
	TaskID      string // overrides the commit's current task, if set
	Summary     string
	EvidenceIDs []string
	HasEvidence bool
}

// FactInput is one durable key/value pair to upsert.
type FactInput struct {
	Key   string
	Value string
	Scope string
}

// CommitResult is handle_commit's return value: the ordered artifact IDs
// produced by this commit, positionally matching the input artifacts.
type CommitResult struct {
	Ts           time.Time
	ArtifactIDs  []string
	PrunedCount  int
}

// BundleOptions parameterizes Compose.
type BundleOptions struct {
	SessionID string
	Budget    int
	Family    string
}

// CandidateKind distinguishes the three item types the bundle composer
// scores and packs.
type CandidateKind string

const (
	CandidateTask  CandidateKind = "TASK"
	CandidateEvent CandidateKind = "EVENT"
	CandidateFact  CandidateKind = "FACT"
)

// Candidate is one scored item eligible for bundle inclusion.
type Candidate struct {
	ID        string
	Kind      CandidateKind
	Text      string
	TokenCost int
	Score     float64
	Mandatory bool
	Ts        time.Time // zero for facts
}

// BundleStructured is the machine-readable half of a composed bundle.
type BundleStructured struct {
	Now           NowCard `json:"now"`
	Pointers      []Pointer `json:"pointers"`
	TokenEstimate int     `json:"token_estimate"`
	Budget        int     `json:"budget"`
	SessionID     string  `json:"session_id"`
}

// NowCard is the short header summarizing current session state.
type NowCard struct {
	Objective     string   `json:"objective"`
	ActiveTaskIDs []string `json:"active_task_ids"`
	DecisionIDs   []string `json:"decision_ids"`
	TestFailIDs   []string `json:"test_fail_ids"`
}

// Pointer is one picked candidate in the rendered bundle.
type Pointer struct {
	Type      CandidateKind `json:"type"`
	ID        string        `json:"id"`
	TokenCost int           `json:"token_cost"`
}

// Metric records the token cost of one picked item, for optional
// persistence by the handler layer.
type Metric struct {
	PointerID string
	TokenCost int
}

// Bundle is Compose's full return value.
type Bundle struct {
	Text       string
	Structured BundleStructured
	Metrics    []Metric
}

// CheckpointMeta is the snapshot stored as a checkpoint's bundle_meta JSON.
type CheckpointMeta struct {
	Objective    string        `json:"objective"`
	ActiveTasks  []TaskMeta    `json:"active_tasks"`
	RecentEvents []EventMeta   `json:"recent_events"`
	Facts        []FactMeta    `json:"facts"`
}

type TaskMeta struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type EventMeta struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

type FactMeta struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}
