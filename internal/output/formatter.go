package output

import (
	"io"

	"github.com/spiffcs/stalebot/internal/stale"
)

// Format represents the output format
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter defines the interface for output formatters
type Formatter interface {
	Format(result *stale.Result, w io.Writer) error
}

// NewFormatter creates a formatter for the specified format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// status describes what happened to an evaluated issue after the decision.
func status(o stale.Outcome, dryRun bool) string {
	switch {
	case o.Err != nil:
		return "failed"
	case o.Notified && dryRun:
		return "would bump"
	case o.Notified:
		return "bumped"
	default:
		return "-"
	}
}
