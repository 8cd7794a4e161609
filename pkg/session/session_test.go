package session

import (
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), strings.Join(args, " "))
	}
	run("init", "-q", "-b", branch)
	run("config", "user.email", "rwm@example.com")
	run("config", "user.name", "rwm")
	require.NoError(t, exec.Command("sh", "-c", "echo hi > "+filepath.Join(dir, "f.txt")).Run())
	run("add", ".")
	run("commit", "-q", "-m", "init")
	return dir
}

func TestResolveFromGitBranch(t *testing.T) {
	dir := initRepo(t, "feature/session")
	r := New()
	got := r.Resolve("", dir)
	require.Equal(t, filepath.Base(dir)+"@feature-session", got)
}

func TestResolveUnknownSuffixFallsBackToGit(t *testing.T) {
	dir := initRepo(t, "feature/session")
	r := New()
	got := r.Resolve("proj@unknown", dir)
	require.Equal(t, "proj@feature-session", got)
}

func TestResolveNoGitFallsBackToDate(t *testing.T) {
	dir := t.TempDir()
	r := New()
	r.now = func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }
	got := r.Resolve("proj", dir)
	require.Equal(t, "proj@20260730", got)
}

func TestResolveIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := New()
	r.now = func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }
	once := r.Resolve("proj", dir)
	twice := r.Resolve(once, dir)
	require.Equal(t, once, twice)
}

func TestCanonicalizeAliasDefaultsToMain(t *testing.T) {
	require.Equal(t, "proj@main", CanonicalizeAlias("proj", "/work/proj"))
}

func TestResetCacheClearsBranchMemo(t *testing.T) {
	dir := initRepo(t, "main")
	r := New()
	_ = r.Resolve("", dir)
	r.ResetCache()
	require.Len(t, r.cache, 0)
}
