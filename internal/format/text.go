// Package format provides shared text formatting utilities for terminal
// output and issue comments.
package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spiffcs/stalebot/internal/constants"
)

// ansiRegex matches ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripAnsi removes ANSI escape sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the visible width of a string in terminal columns,
// ignoring ANSI escape sequences.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(StripAnsi(s))
}

// Truncate shortens plain text to at most maxWidth display columns,
// appending "..." when anything was cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= constants.TruncationSuffixWidth {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces to the target visible width. Colored
// strings are measured without their escape sequences.
func PadRight(s string, targetWidth int) string {
	width := DisplayWidth(s)
	if width >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-width)
}

// Date renders t in the layout used by comments and reports.
func Date(t time.Time) string {
	return t.Format(constants.DateLayout)
}

// OptionalDate renders t, or the never marker when t is nil.
func OptionalDate(t *time.Time) string {
	if t == nil {
		return constants.NeverMarker
	}
	return Date(*t)
}
