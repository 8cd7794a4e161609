package handlers

import (
	"bufio"
	"encoding/base64"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/pathguard"
)

// ReadWorkspaceSpan reads lines [start, end] (1-indexed, inclusive) of the
// file at root/path through the path guard, clamping the range to the
// file's actual length rather than erroring on an out-of-range request.
func ReadWorkspaceSpan(root, path string, start, end int) (string, error) {
	abs, err := pathguard.SafeJoin(root, path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", errors.NewNotFoundError("Workspace file not found", err.Error(), "", err)
	}
	defer f.Close()

	if start < 1 {
		start = 1
	}

	var lines []string
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
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", errors.NewInternalError("Cannot read workspace file", err.Error(), "", err)
	}
	return strings.Join(lines, "\n"), nil
}

// ResourceContent is the result of resolving a resource URI: either decoded
// text, or base64-encoded bytes when the content doesn't decode cleanly as
// UTF-8.
type ResourceContent struct {
	Text     string
	Base64   string
	IsBase64 bool
}

// ReadResource resolves artifact://sha256/<hex> against the artifact pool,
// or workspace://<relpath> against the workspace root through the path
// guard. Bodied artifact content is returned as text unless it decodes to 5
// or more UTF-8 replacement characters, in which case it is base64-encoded.
func (d *Dispatcher) ReadResource(uri string) (ResourceContent, error) {
	switch {
	case strings.HasPrefix(uri, "artifact://sha256/"):
		hash := strings.TrimPrefix(uri, "artifact://sha256/")
		body, err := d.Artifacts.ReadBody(hash)
		if err != nil {
			return ResourceContent{}, err
		}
		return encodeResource(body), nil
	case strings.HasPrefix(uri, "workspace://"):
		rel := strings.TrimPrefix(uri, "workspace://")
		text, err := ReadWorkspaceSpan(d.WorkspaceRoot, rel, 1, 0)
		if err != nil {
			return ResourceContent{}, err
		}
		return ResourceContent{Text: text}, nil
	default:
		return ResourceContent{}, errors.NewValidationError(
			"Unknown resource scheme",
			uri,
			"expected artifact://sha256/<hex> or workspace://<relpath>",
			nil,
		)
	}
}

func encodeResource(body []byte) ResourceContent {
	// Ranging over the string decodes it, yielding utf8.RuneError for every
	// invalid byte as well as for each literal U+FFFD.
	replacementCount := 0
	for _, r := range string(body) {
		if r == utf8.RuneError {
			replacementCount++
		}
	}
	if replacementCount < 5 {
		return ResourceContent{Text: string(body)}
	}
	return ResourceContent{Base64: base64.StdEncoding.EncodeToString(body), IsBase64: true}
}
