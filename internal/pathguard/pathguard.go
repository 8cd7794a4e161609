// Package pathguard confines relative paths supplied by a caller (an agent,
// a request body) to a workspace root, so a crafted "../../etc/passwd" style
// path can never escape the project directory.
package pathguard

import (
	"path/filepath"
	"strings"

	"github.com/kraklabs/rwm/internal/errors"
)

// SafeJoin resolves rel against root and returns the absolute path, failing
// with a path-escape error when the resolved path is not root itself or
// strictly contained within it. No filesystem access occurs; this is a pure
// path computation so it is safe to call before the target exists.
func SafeJoin(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.NewInternalError(
			"Cannot resolve workspace root",
			err.Error(),
			"",
			err,
		)
	}
	absRoot = filepath.Clean(absRoot)

	joined := filepath.Clean(filepath.Join(absRoot, rel))

	if joined == absRoot {
		return joined, nil
	}
	if !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", errors.NewPathEscapeError(
			"Path escapes the workspace root",
			"'"+rel+"' resolves outside "+absRoot,
			"Use a path relative to the project root.",
			nil,
		)
	}
	return joined, nil
}
