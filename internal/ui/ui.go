// Package ui centralizes terminal color/TTY decisions for the CLI so every
// subcommand renders consistently whether attached to a terminal, piped, or
// run with NO_COLOR set.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Color shortcuts shared by every subcommand's human-readable output.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
)

// InitColors disables fatih/color globally when noColor is set, NO_COLOR is
// present in the environment, or stdout is not a TTY. Call once at startup
// before any subcommand writes colored output.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Width returns the terminal column width for os.Stdout, or fallback when
// stdout isn't a TTY or the ioctl fails. It only reports the width; no
// subcommand wraps its output (the Now card included) to it.
func Width(fallback int) int {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Header prints a bold section title followed by a blank line.
func Header(title string) {
	bold := color.New(color.Bold)
	bold.Println(title)
	fmt.Println()
}

// SubHeader prints a bold subsection title.
func SubHeader(title string) {
	color.New(color.Bold).Println(title)
}

// Label renders a field name, dimmed, for "Label: value" lines.
func Label(s string) string {
	return Dim.Sprint(s)
}

// DimText renders s dimmed, for secondary detail (paths, timestamps).
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders an integer count, dimmed when zero so empty sections
// don't draw the eye.
func CountText(n int) string {
	if n == 0 {
		return Dim.Sprint("0")
	}
	return fmt.Sprintf("%d", n)
}

// Success prints a green checkmark line.
func Success(msg string) {
	Green.Printf("✓ %s\n", msg)
}

// Successf is Success with fmt.Sprintf-style arguments.
func Successf(format string, args ...any) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a yellow warning line to stderr.
func Warning(msg string) {
	Yellow.Fprintf(os.Stderr, "⚠ %s\n", msg)
}

// Warningf is Warning with fmt.Sprintf-style arguments.
func Warningf(format string, args ...any) {
	Warning(fmt.Sprintf(format, args...))
}

// Info prints a dimmed informational line to stderr.
func Info(msg string) {
	Dim.Fprintf(os.Stderr, "%s\n", msg)
}

// Infof is Info with fmt.Sprintf-style arguments.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}
