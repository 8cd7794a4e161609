// Package idgen implements the hash and ID helpers from the memory engine's
// identifier scheme: content hashes, deterministic entity IDs, and short
// random IDs for records the caller doesn't supply an ID for.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sha256HexString is Sha256Hex over a string, for callers hashing text
// rather than raw bytes (e.g. a pointer artifact's URI).
func Sha256HexString(s string) string {
	return Sha256Hex([]byte(s))
}

var nonBase36 = regexp.MustCompile(`[^a-z0-9]`)

// RandID returns "<prefix>-<6 chars>" where the suffix is derived from a
// fresh UUID. Uniqueness within a session is all that's required here;
// conflicts are resolved by primary-key upsert or, for events, surfaced as a
// duplicate-insert error the caller is expected to retry with a fresh ID.
func RandID(prefix string) string {
	raw := nonBase36.ReplaceAllString(strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", "")), "")
	if len(raw) < 6 {
		raw = raw + "000000"
	}
	return prefix + "-" + raw[:6]
}

// FactID computes the deterministic fact identifier: F- + sha256(key::scope)[:16].
// Repeated commits of the same (key, scope) collapse to the same ID so the
// store's upsert overwrites in place rather than duplicating rows.
func FactID(key, scope string) string {
	if scope == "" {
		scope = "repo"
	}
	sum := Sha256HexString(key + "::" + scope)
	return "F-" + sum[:16]
}

var collapseNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses runs of non [a-z0-9] characters to a single
// "-", then truncates to maxLen. Leading/trailing "-" produced by the
// collapse are trimmed before truncation.
func Slug(s string, maxLen int) string {
	lower := strings.ToLower(s)
	collapsed := collapseNonSlug.ReplaceAllString(lower, "-")
	collapsed = strings.Trim(collapsed, "-")
	if len(collapsed) > maxLen {
		collapsed = collapsed[:maxLen]
	}
	return collapsed
}

// TaskID computes "T-" + slug(title, 12), the deterministic task identifier
// derived from a task's title.
func TaskID(title string) string {
	return "T-" + Slug(title, 12)
}
