package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/rwm/internal/idgen"
	"github.com/stretchr/testify/require"
)

func TestPrepareTextBodied(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "pool"), dir)
	ctx := context.Background()
	ts := time.Now()

	rec, body, err := s.Prepare(ctx, Descriptor{Kind: "SNIPPET", Text: "hello world", HasText: true}, ts)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(body))
	require.Equal(t, idgen.Sha256HexString("hello world"), rec.SHA256)
	require.Equal(t, "artifact://sha256/"+rec.SHA256, rec.URI)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.MetaJSON), &meta))
	origin := meta["origin"].(map[string]any)
	require.Equal(t, "text", origin["type"])

	stored, err := os.ReadFile(filepath.Join(dir, "pool", rec.SHA256))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(stored))
}

func TestPreparePointerURI(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "pool"), dir)
	ctx := context.Background()
	ts := time.Now()

	rec, body, err := s.Prepare(ctx, Descriptor{Kind: "SNIPPET", URI: "workspace://README.md"}, ts)
	require.NoError(t, err)
	require.Nil(t, body)
	require.Equal(t, "workspace://README.md", rec.URI)
	require.Equal(t, int64(0), rec.Size)
	require.Equal(t, idgen.Sha256HexString("workspace://README.md"), rec.SHA256)

	_, err = os.Stat(filepath.Join(dir, "pool", rec.SHA256))
	require.True(t, os.IsNotExist(err), "no pool file should exist for a pointer artifact")

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.MetaJSON), &meta))
	require.Equal(t, "workspace-uri", meta["origin"].(map[string]any)["type"])
}

func TestPreparePathReadsSpan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("one\ntwo\nthree\n"), 0o644))
	s := New(filepath.Join(dir, "pool"), dir)
	ctx := context.Background()
	ts := time.Now()

	rec, body, err := s.Prepare(ctx, Descriptor{Kind: "SNIPPET", Path: "f.txt", HasPath: true, StartLine: 2, EndLine: 3}, ts)
	require.NoError(t, err)
	require.Equal(t, "two\nthree", string(body))
	require.NotEmpty(t, rec.SHA256)
}

func TestPrepareEmptyFallback(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "pool"), dir)
	rec, body, err := s.Prepare(context.Background(), Descriptor{Kind: "OTHER"}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []byte{}, body)
	require.Equal(t, int64(0), rec.Size)
}

func TestPruneOrphansRemovesUnreferenced(t *testing.T) {
	dir := t.TempDir()
	pool := filepath.Join(dir, "pool")
	s := New(pool, dir)
	require.NoError(t, os.MkdirAll(pool, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pool, "orphan"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pool, "kept"), []byte("y"), 0o644))

	removed, err := s.PruneOrphans(context.Background(), map[string]struct{}{"kept": {}})
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(pool, "orphan"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(pool, "kept"))
	require.NoError(t, err)
}
