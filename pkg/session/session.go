// Package session resolves the canonical session identifier a request's raw
// session string maps to: "<base>@<suffix>", where base is the sanitized
// project name and suffix is the sanitized git branch, a detached-HEAD
// marker, or today's date.
package session

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize replaces runs of characters outside [A-Za-z0-9._-] with "-",
// returning "proj" for an empty result.
func sanitize(s string) string {
	out := sanitizePattern.ReplaceAllString(s, "-")
	out = strings.Trim(out, "-")
	if out == "" {
		return "proj"
	}
	return out
}

// Resolver resolves session IDs against git branch state, caching the
// branch lookup per workspace root so repeated resolutions within a process
// don't re-open the repository each time.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]string // root -> branch ("" means "looked up, no branch")
	now   func() time.Time
}

// New constructs a Resolver. now defaults to time.Now; tests may override it
// to pin the date-suffix fallback.
func New() *Resolver {
	return &Resolver{cache: map[string]string{}, now: time.Now}
}

// ResetCache clears the per-root branch cache. Exposed for tests per spec §9.
func (r *Resolver) ResetCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = map[string]string{}
}

// Resolve implements §4.E: split raw at the first "@", sanitize both halves,
// fall back to the git branch (cached) and finally today's date for an empty
// suffix.
func (r *Resolver) Resolve(raw, root string) string {
	rawBase, rawSuffix := split(raw)

	base := rawBase
	if base == "" {
		base = filepath.Base(root)
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "workspace"
	}
	base = sanitize(base)

	suffix := ""
	if strings.TrimSpace(rawSuffix) != "" {
		suffix = sanitize(rawSuffix)
	}
	if suffix == "" || suffix == "unknown" {
		if branch := r.branchFor(root); branch != "" {
			suffix = sanitize(branch)
		} else {
			suffix = ""
		}
	}
	if suffix == "" {
		suffix = r.now().UTC().Format("20060102")
	}

	return base + "@" + suffix
}

// CanonicalizeAlias resolves raw without a git lookup, defaulting an empty
// suffix to "main", giving a stable name without touching the repository.
// Resolve does not call it, and nothing in the store calls it either; its
// result has the "<base>@<suffix>" form that store.CanonicalizeSessions
// takes as its canonical argument.
func CanonicalizeAlias(raw, root string) string {
	rawBase, rawSuffix := split(raw)

	base := rawBase
	if base == "" {
		base = filepath.Base(root)
	}
	if base == "" || base == "." {
		base = "workspace"
	}
	base = sanitize(base)

	suffix := "main"
	if strings.TrimSpace(rawSuffix) != "" {
		suffix = sanitize(rawSuffix)
	}
	return base + "@" + suffix
}

func split(raw string) (string, string) {
	if idx := strings.IndexByte(raw, '@'); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return raw, ""
}

// branchFor returns the current branch name for root, "detached-<shorthash>"
// for a detached HEAD, or "" if the branch can't be determined (not a repo,
// no commits yet, open error). Results are cached per root.
func (r *Resolver) branchFor(root string) string {
	r.mu.Lock()
	if b, ok := r.cache[root]; ok {
		r.mu.Unlock()
		return b
	}
	r.mu.Unlock()

	branch := lookupBranch(root)

	r.mu.Lock()
	r.cache[root] = branch
	r.mu.Unlock()
	return branch
}

func lookupBranch(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return fmt.Sprintf("detached-%s", shortHash(head.Hash()))
}

func shortHash(h plumbing.Hash) string {
	s := h.String()
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
