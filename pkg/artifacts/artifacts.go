// Package artifacts implements the content-addressed artifact store: a file
// pool keyed by the hex SHA-256 of its contents, plus pointer artifacts whose
// body lives outside the pool entirely.
package artifacts

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/idgen"
	"github.com/kraklabs/rwm/internal/pathguard"
	"github.com/kraklabs/rwm/pkg/store"
)

// Descriptor is the caller-supplied shape for one artifact in a commit.
// Only one of Text, Path, or URI is expected to be set; resolution order is
// Text, then Path, then URI, then the empty fallback (see Prepare).
type Descriptor struct {
	ID        string
	Kind      string
	URI       string
	Text      string
	HasText   bool
	Path      string
	HasPath   bool
	StartLine int
	EndLine   int
	Meta      map[string]any
}

// Record is the subset of store.Artifact fields Prepare computes; the
// caller inserts it via store.UpsertArtifact.
type Record struct {
	ID       string
	Kind     string
	URI      string
	SHA256   string
	Size     int64
	MetaJSON string
}

// Store wraps a content-addressed pool directory rooted at workspaceRoot
// for resolving relative workspace paths.
type Store struct {
	poolDir       string
	workspaceRoot string
}

// New constructs a Store. poolDir is created lazily on first bodied write.
func New(poolDir, workspaceRoot string) *Store {
	return &Store{poolDir: poolDir, workspaceRoot: workspaceRoot}
}

// Prepare resolves a descriptor into an artifact record per §4.F's four-way
// order: text, then workspace path+span, then URI pointer, then an empty
// fallback. For bodied artifacts it writes the pool file (if absent) and
// returns the body bytes so the caller can round-trip them without a second
// read. Origin stamps already present in descriptor.Meta are never
// overwritten.
func (s *Store) Prepare(ctx context.Context, d Descriptor, ts time.Time) (Record, []byte, error) {
	switch {
	case d.HasText:
		return s.prepareText(d, ts)
	case d.HasPath:
		return s.preparePath(d, ts)
	case d.URI != "":
		return s.preparePointer(d, ts)
	default:
		return s.prepareEmpty(d, ts)
	}
}

func (s *Store) prepareText(d Descriptor, ts time.Time) (Record, []byte, error) {
	body := []byte(d.Text)
	hash := idgen.Sha256Hex(body)
	if err := s.writeBody(hash, body); err != nil {
		return Record{}, nil, err
	}
	meta := withOrigin(d.Meta, "text", ts, nil)
	return s.record(d, hash, int64(len(body)), meta), body, nil
}

func (s *Store) preparePath(d Descriptor, ts time.Time) (Record, []byte, error) {
	abs, err := pathguard.SafeJoin(s.workspaceRoot, d.Path)
	if err != nil {
		return Record{}, nil, err
	}
	body, err := readSpan(abs, d.StartLine, d.EndLine)
	if err != nil {
		return Record{}, nil, errors.NewInternalError(
			"Cannot read workspace span",
			err.Error(),
			"",
			err,
		)
	}
	hash := idgen.Sha256Hex(body)
	if err := s.writeBody(hash, body); err != nil {
		return Record{}, nil, err
	}
	extra := map[string]any{
		"path":      d.Path,
		"startLine": d.StartLine,
		"endLine":   d.EndLine,
	}
	meta := withOrigin(d.Meta, "workspace", ts, extra)
	return s.record(d, hash, int64(len(body)), meta), body, nil
}

func (s *Store) preparePointer(d Descriptor, ts time.Time) (Record, []byte, error) {
	hash := idgen.Sha256HexString(d.URI)
	originType := "uri"
	if strings.HasPrefix(d.URI, "workspace://") {
		originType = "workspace-uri"
	}
	meta := d.Meta
	if meta == nil {
		meta = map[string]any{}
	} else {
		meta = cloneMeta(meta)
	}
	if _, ok := meta["pointer"]; !ok {
		meta["pointer"] = true
	}
	meta = withOrigin(meta, originType, ts, nil)

	rec := s.record(d, hash, 0, meta)
	rec.URI = d.URI
	return rec, nil, nil
}

func (s *Store) prepareEmpty(d Descriptor, ts time.Time) (Record, []byte, error) {
	body := []byte{}
	hash := idgen.Sha256Hex(body)
	if err := s.writeBody(hash, body); err != nil {
		return Record{}, nil, err
	}
	meta := withOrigin(d.Meta, "empty", ts, nil)
	return s.record(d, hash, 0, meta), body, nil
}

// record builds the shared Record fields. URI defaults to the bodied-artifact
// scheme; preparePointer overrides it afterward.
func (s *Store) record(d Descriptor, hash string, size int64, meta map[string]any) Record {
	id := d.ID
	if id == "" {
		id = "P-" + hash[:8]
	}
	metaJSON, _ := json.Marshal(meta)
	return Record{
		ID:       id,
		Kind:     d.Kind,
		URI:      "artifact://sha256/" + hash,
		SHA256:   hash,
		Size:     size,
		MetaJSON: string(metaJSON),
	}
}

func (s *Store) writeBody(hash string, body []byte) error {
	if err := os.MkdirAll(s.poolDir, 0o755); err != nil {
		return errors.NewPermissionError("Cannot create artifact pool directory", err.Error(), "", err)
	}
	path := filepath.Join(s.poolDir, hash)
	if _, err := os.Stat(path); err == nil {
		return nil // already present; dedup by hash
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return errors.NewPermissionError("Cannot write artifact body", err.Error(), "", err)
	}
	return nil
}

// ReadBody reads a bodied artifact's bytes by hash, used by memory_fetch and
// the artifact://sha256/<hex> resource scheme.
func (s *Store) ReadBody(hash string) ([]byte, error) {
	path := filepath.Join(s.poolDir, hash)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewNotFoundError(
			"Artifact body not found",
			"no pool file for sha256 "+hash,
			"",
			err,
		)
	}
	return b, nil
}

// PruneOrphans lists the pool directory, subtracts known, and unlinks the
// difference. Individual delete failures are swallowed (best-effort) per
// spec §7.
func (s *Store) PruneOrphans(ctx context.Context, known map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(s.poolDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternalError("Cannot list artifact pool", err.Error(), "", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := known[entry.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.poolDir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func withOrigin(meta map[string]any, originType string, ts time.Time, extra map[string]any) map[string]any {
	out := cloneMeta(meta)
	for k, v := range extra {
		out[k] = v
	}
	if _, ok := out["origin"]; !ok {
		out["origin"] = map[string]any{
			"type":       originType,
			"recordedAt": ts.UTC().Format(time.RFC3339Nano),
		}
	}
	return out
}

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// readSpan reads lines [start, end] (1-indexed, inclusive) from path. A
// start/end of 0 means "full file". Lines beyond EOF are clamped.
func readSpan(path string, start, end int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if start <= 0 {
		start = 1
	}

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < start {
			continue
		}
		if end > 0 && lineNo > end {
			break
		}
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return []byte(strings.Join(out, "\n")), nil
}

// ToStoreArtifact converts a Record plus created timestamp to a store.Artifact
// ready for UpsertArtifact.
func ToStoreArtifact(r Record, createdAt time.Time) store.Artifact {
	return store.Artifact{
		ID:        r.ID,
		Kind:      r.Kind,
		URI:       r.URI,
		SHA256:    r.SHA256,
		Size:      r.Size,
		MetaJSON:  r.MetaJSON,
		CreatedAt: createdAt,
	}
}
