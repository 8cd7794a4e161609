package handlers

import (
	"encoding/json"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/pkg/memory"
)

// ParseRequest validates op + raw and returns the matching tagged Request.
// This is the single place that translates the wire's loosely-typed JSON
// into the strongly-typed variants Dispatch switches on.
func ParseRequest(op string, raw json.RawMessage) (Request, error) {
	switch op {
	case "memory_resume":
		return parseResume(raw)
	case "memory_commit":
		return parseCommit(raw)
	case "memory_update":
		return parseUpdate(raw)
	case "memory_fetch":
		return parseFetch(raw)
	case "memory_span":
		return parseSpan(raw)
	case "memory_search":
		return parseSearch(raw)
	case "memory_checkpoint":
		return parseCheckpoint(raw)
	default:
		return nil, errors.NewValidationError("Unknown operation", op, "expected one of memory_resume, memory_commit, memory_update, memory_fetch, memory_span, memory_search, memory_checkpoint", nil)
	}
}

func invalid(detail string) error {
	return errors.NewValidationError("Invalid request", detail, "", nil)
}

// rawFields decodes raw into a key->RawMessage map so callers can check
// field presence (as opposed to absence vs JSON null) before unmarshaling.
func rawFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, invalid("request body must be a JSON object: " + err.Error())
	}
	return fields, nil
}

func parseResume(raw json.RawMessage) (Request, error) {
	var w struct {
		SessionID   string `json:"session_id"`
		TokenBudget int    `json:"token_budget"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.TokenBudget != 0 && (w.TokenBudget < 1 || w.TokenBudget > 1_000_000) {
		return nil, invalid("token_budget must be between 1 and 1000000")
	}
	return ResumeRequest{SessionID: w.SessionID, TokenBudget: w.TokenBudget}, nil
}

func parseCommit(raw json.RawMessage) (Request, error) {
	var w struct {
		SessionID string `json:"session_id"`
		Task      *struct {
			Title string `json:"title"`
		} `json:"task"`
		Decisions []struct {
			ID       string    `json:"id"`
			Type     string    `json:"type"`
			TaskID   string    `json:"task_id"`
			Summary  string    `json:"summary"`
			Evidence *[]string `json:"evidence"`
		} `json:"decisions"`
		Artifacts []artifactWire `json:"artifacts"`
		Facts     []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
			Scope string `json:"scope"`
		} `json:"facts"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.SessionID == "" {
		return nil, invalid("session_id is required")
	}

	req := CommitRequest{SessionID: w.SessionID}
	if w.Task != nil {
		if w.Task.Title == "" {
			return nil, invalid("task.title is required when task is present")
		}
		req.Task = &memory.TaskInput{Title: w.Task.Title}
	}
	for _, d := range w.Decisions {
		if d.Type == "" || d.Summary == "" {
			return nil, invalid("each decision requires type and summary")
		}
		di := memory.DecisionInput{ID: d.ID, Type: d.Type, TaskID: d.TaskID, Summary: d.Summary}
		if d.Evidence != nil {
			di.HasEvidence = true
			di.EvidenceIDs = *d.Evidence
		}
		req.Decisions = append(req.Decisions, di)
	}
	for _, a := range w.Artifacts {
		req.Artifacts = append(req.Artifacts, a.toDescriptor())
	}
	for _, f := range w.Facts {
		if f.Key == "" {
			return nil, invalid("each fact requires a key")
		}
		req.Facts = append(req.Facts, memory.FactInput{Key: f.Key, Value: f.Value, Scope: f.Scope})
	}
	return req, nil
}

type artifactWire struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	URI       string         `json:"uri"`
	Text      *string        `json:"text"`
	Path      *string        `json:"path"`
	StartLine int            `json:"startLine"`
	EndLine   int            `json:"endLine"`
	Meta      map[string]any `json:"meta"`
}

func (a artifactWire) toDescriptor() memory.ArtifactInput {
	d := memory.ArtifactInput{ID: a.ID, Kind: a.Kind, URI: a.URI, StartLine: a.StartLine, EndLine: a.EndLine, Meta: a.Meta}
	if a.Text != nil {
		d.HasText = true
		d.Text = *a.Text
	}
	if a.Path != nil {
		d.HasPath = true
		d.Path = *a.Path
	}
	return d
}

func parseUpdate(raw json.RawMessage) (Request, error) {
	fields, err := rawFields(raw)
	if err != nil {
		return nil, err
	}

	var targetStr, id string
	if v, ok := fields["target"]; ok {
		json.Unmarshal(v, &targetStr)
	}
	if v, ok := fields["id"]; ok {
		json.Unmarshal(v, &id)
	}
	if id == "" {
		return nil, invalid("id is required")
	}

	req := UpdateRequest{Target: memory.Target(targetStr), ID: id}

	switch req.Target {
	case memory.TargetTask:
		if v, ok := fields["title"]; ok {
			req.TaskUpdate.HasTitle = true
			json.Unmarshal(v, &req.TaskUpdate.Title)
		}
		if v, ok := fields["status"]; ok {
			req.TaskUpdate.HasStatus = true
			json.Unmarshal(v, &req.TaskUpdate.Status)
		}
		if v, ok := fields["accept_criteria"]; ok {
			req.TaskUpdate.HasAcceptCriteria = true
			if string(v) != "null" {
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					return nil, invalid("accept_criteria must be a string or null")
				}
				req.TaskUpdate.AcceptCriteria = &s
			}
		}
	case memory.TargetArtifact:
		if v, ok := fields["kind"]; ok {
			req.ArtifactUpdate.HasKind = true
			json.Unmarshal(v, &req.ArtifactUpdate.Kind)
		}
		if v, ok := fields["text"]; ok {
			req.ArtifactUpdate.HasText = true
			json.Unmarshal(v, &req.ArtifactUpdate.Text)
		}
		if v, ok := fields["meta"]; ok {
			req.ArtifactUpdate.HasMeta = true
			json.Unmarshal(v, &req.ArtifactUpdate.Meta)
		}
	case memory.TargetFact:
		if v, ok := fields["value"]; ok {
			req.FactUpdate.HasValue = true
			json.Unmarshal(v, &req.FactUpdate.Value)
		}
		if v, ok := fields["scope"]; ok {
			req.FactUpdate.HasScope = true
			json.Unmarshal(v, &req.FactUpdate.Scope)
		}
	default:
		return nil, invalid("target must be one of task, artifact, fact")
	}

	return req, nil
}

func parseFetch(raw json.RawMessage) (Request, error) {
	var w struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.ID == "" {
		return nil, invalid("id is required")
	}
	return FetchRequest{ID: w.ID}, nil
}

func parseSpan(raw json.RawMessage) (Request, error) {
	var w struct {
		Path      string `json:"path"`
		StartLine int    `json:"startLine"`
		EndLine   int    `json:"endLine"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.Path == "" {
		return nil, invalid("path is required")
	}
	if w.StartLine < 1 || w.EndLine < 1 {
		return nil, invalid("startLine and endLine must be positive integers")
	}
	if w.StartLine > w.EndLine {
		return nil, invalid("startLine must be <= endLine")
	}
	return SpanRequest{Path: w.Path, StartLine: w.StartLine, EndLine: w.EndLine}, nil
}

func parseSearch(raw json.RawMessage) (Request, error) {
	var w struct {
		SessionID string `json:"session_id"`
		Query     string `json:"query"`
		Limit     int    `json:"limit"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.Query == "" {
		return nil, invalid("query is required")
	}
	if w.Limit > 200 {
		return nil, invalid("limit must be <= 200")
	}
	return SearchRequest{SessionID: w.SessionID, Query: w.Query, Limit: w.Limit}, nil
}

func parseCheckpoint(raw json.RawMessage) (Request, error) {
	var w struct {
		SessionID string `json:"session_id"`
		Label     string `json:"label"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, invalid(err.Error())
	}
	if w.Label == "" {
		return nil, invalid("label is required")
	}
	return CheckpointRequest{SessionID: w.SessionID, Label: w.Label}, nil
}
