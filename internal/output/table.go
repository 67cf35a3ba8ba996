package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spiffcs/stalebot/internal/format"
	"github.com/spiffcs/stalebot/internal/stale"
	"golang.org/x/term"
)

// TableFormatter formats output as a terminal table
type TableFormatter struct {
	// Hyperlinks forces OSC 8 links on or off; nil detects a terminal.
	Hyperlinks *bool
}

// Column widths
const (
	colDecision = 15
	colIssue    = 7
	colTitle    = 44
	colUpdated  = 7
	colEvent    = 15
)

// hyperlink creates a clickable terminal hyperlink using OSC 8
// Format: \033]8;;URL\033\\TEXT\033]8;;\033\\
func (f *TableFormatter) hyperlink(text, url string) string {
	enabled := term.IsTerminal(int(os.Stdout.Fd()))
	if f.Hyperlinks != nil {
		enabled = *f.Hyperlinks
	}
	if !enabled || url == "" {
		return text
	}
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}

// Format outputs the evaluated issues as a table
func (f *TableFormatter) Format(result *stale.Result, w io.Writer) error {
	f.printHeader(result, w)

	if len(result.Outcomes) == 0 {
		fmt.Fprintln(w, "No open issues to inspect.")
		f.printFooterSummary(result, w)
		return nil
	}

	fmt.Fprintf(w, "%-*s  %-*s  %-*s  %-*s  %-*s  %s\n",
		colDecision, "Decision",
		colIssue, "Issue",
		colTitle, "Title",
		colUpdated, "Updated",
		colEvent, "Last event",
		"Status")
	fmt.Fprintln(w, strings.Repeat("-", colDecision+colIssue+colTitle+colUpdated+colEvent+10+10))

	for _, o := range result.Outcomes {
		issue := fmt.Sprintf("#%d", o.Issue.Number)
		if o.Issue.IsPullRequest {
			issue = fmt.Sprintf("!%d", o.Issue.Number)
		}
		// Pad outside the link; the OSC 8 sequence has no display width
		issue = f.hyperlink(issue, o.Issue.HTMLURL) + strings.Repeat(" ", max(colIssue-format.DisplayWidth(issue), 0))

		lastEvent := "-"
		if o.TimelineChecked {
			lastEvent = format.OptionalDate(o.LastEventAt)
		}

		fmt.Fprintf(w, "%s  %s  %s  %-*s  %-*s  %s\n",
			format.PadRight(colorDecision(o.Decision), colDecision),
			issue,
			format.PadRight(format.Truncate(o.Issue.Title, colTitle), colTitle),
			colUpdated, format.Ago(o.Issue.UpdatedAt, result.Now),
			colEvent, lastEvent,
			colorStatus(status(o, result.DryRun)),
		)
	}

	f.printFooterSummary(result, w)
	return nil
}

func (f *TableFormatter) printHeader(result *stale.Result, w io.Writer) {
	mode := "calendar days"
	if result.Policy.OnlyWeekdays {
		mode = "weekdays"
	}
	fmt.Fprintf(w, "%s  stale after %s (%s) as of %s",
		color.New(color.Bold).Sprint(result.Repo.FullName()),
		format.Days(result.Policy.DaysStale),
		mode,
		format.Date(result.Now))
	if result.DryRun {
		fmt.Fprintf(w, "  %s", color.YellowString("[dry run]"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

// printFooterSummary prints counts and any failed units
func (f *TableFormatter) printFooterSummary(result *stale.Result, w io.Writer) {
	s := result.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintf(w, "  %d open, %d in ignored columns, %d inspected\n", s.Fetched, s.Excluded, s.Evaluated)
	if s.PullRequestsSkipped > 0 {
		fmt.Fprintf(w, "  %d pull requests skipped\n", s.PullRequestsSkipped)
	}

	verb := "bumped"
	if result.DryRun {
		verb = "would be bumped"
	}
	fmt.Fprintf(w, "  %s %d stale, %d %s\n", color.RedString("●"), s.Stale, s.Notified, verb)
	if s.RecentActivity > 0 {
		fmt.Fprintf(w, "  %s %d kept alive by recent activity\n", color.CyanString("○"), s.RecentActivity)
	}
	if result.Truncated {
		fmt.Fprintf(w, "  %s open issue listing was capped; older issues were not inspected\n", color.YellowString("!"))
	}

	if failed := s.Failed(); failed > 0 {
		fmt.Fprintf(w, "  %s %d units failed\n", color.RedString("✗"), failed)
		for _, err := range result.Errors {
			fmt.Fprintf(w, "    - %v\n", err)
		}
	}
}

func colorDecision(d stale.Decision) string {
	switch d {
	case stale.DecisionStale:
		return color.RedString(d.Display())
	case stale.DecisionRecentActivity:
		return color.CyanString(d.Display())
	case stale.DecisionError:
		return color.YellowString(d.Display())
	default:
		return color.GreenString(d.Display())
	}
}

func colorStatus(s string) string {
	switch s {
	case "failed":
		return color.RedString(s)
	case "bumped", "would bump":
		return color.YellowString(s)
	default:
		return s
	}
}
