// Package errors provides a small set of user-facing error kinds shared by
// the CLI and the request handlers. Every constructor carries a title, a
// detail line, and an actionable suggestion so the message printed to a
// terminal or returned to a caller never requires chasing a stack trace.
package errors

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Kind classifies a UserError for callers that want to branch on it (the
// request handlers map §7's error kinds onto these).
type Kind string

const (
	KindValidation     Kind = "validation"
	KindPathEscape     Kind = "path-escape"
	KindNotFound       Kind = "not-found"
	KindInvalidUpdate  Kind = "invalid-update"
	KindConfig         Kind = "config"
	KindInput          Kind = "input"
	KindDatabase       Kind = "database"
	KindPermission     Kind = "permission"
	KindInternal       Kind = "internal"
	KindNetwork        Kind = "network"
)

// UserError is a structured, displayable error. Title is a one-line summary,
// Detail explains what went wrong, Suggestion proposes a next step. Cause is
// the underlying error, if any, and participates in errors.Is/As via Unwrap.
type UserError struct {
	Kind       Kind
	Title      string
	Detail     string
	Suggestion string
	Cause      error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func (e *UserError) Unwrap() error { return e.Cause }

// Format renders the error for a human: a bold title line, the detail, a
// "Cause:" line if present, and a "Suggestion:" line if present. useColor
// enables ANSI styling; pass false for JSON/quiet/non-TTY output.
func (e *UserError) Format(useColor bool) string {
	titleColor := color.New(color.FgRed, color.Bold)
	suggestionColor := color.New(color.FgYellow)
	if !useColor {
		titleColor.DisableColor()
		suggestionColor.DisableColor()
	}

	out := titleColor.Sprintf("✗ %s", e.Title)
	if e.Detail != "" {
		out += "\n  " + e.Detail
	}
	if e.Cause != nil {
		out += fmt.Sprintf("\n  Cause: %v", e.Cause)
	}
	if e.Suggestion != "" {
		out += "\n  " + suggestionColor.Sprint(e.Suggestion)
	}
	return out
}

func newError(kind Kind, title, detail, suggestion string, cause error) *UserError {
	return &UserError{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion, Cause: cause}
}

func NewValidationError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindValidation, title, detail, suggestion, cause)
}

func NewPathEscapeError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindPathEscape, title, detail, suggestion, cause)
}

func NewNotFoundError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindNotFound, title, detail, suggestion, cause)
}

func NewInvalidUpdateError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInvalidUpdate, title, detail, suggestion, cause)
}

func NewConfigError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindConfig, title, detail, suggestion, cause)
}

func NewInputError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInput, title, detail, suggestion, cause)
}

func NewDatabaseError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindDatabase, title, detail, suggestion, cause)
}

func NewPermissionError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindPermission, title, detail, suggestion, cause)
}

func NewInternalError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInternal, title, detail, suggestion, cause)
}

func NewNetworkError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindNetwork, title, detail, suggestion, cause)
}

// FatalError prints err and exits the process with status 1. It is the
// terminal point for errors raised during CLI startup (config load, DB open)
// that have no sensible recovery.
func FatalError(err error, useColor bool) {
	if ue, ok := err.(*UserError); ok {
		fmt.Fprintln(os.Stderr, ue.Format(useColor))
	} else {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
	}
	os.Exit(1)
}
