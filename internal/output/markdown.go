package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spiffcs/stalebot/internal/format"
	"github.com/spiffcs/stalebot/internal/stale"
)

// MarkdownFormatter formats output as Markdown. The report is also what
// gets appended to a workflow run's job summary.
type MarkdownFormatter struct{}

// Format outputs the run result as Markdown
func (f *MarkdownFormatter) Format(result *stale.Result, w io.Writer) error {
	s := result.Summary

	title := "Stale issues in " + result.Repo.FullName()
	if result.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(w, "## %s\n\n", title)

	mode := "calendar days"
	if result.Policy.OnlyWeekdays {
		mode = "weekdays"
	}
	fmt.Fprintf(w, "*Stale after %s (%s), as of %s*\n\n", format.Days(result.Policy.DaysStale), mode, format.Date(result.Now))

	fmt.Fprintf(w, "- **Open:** %d\n", s.Fetched)
	fmt.Fprintf(w, "- **In ignored columns:** %d\n", s.Excluded)
	if s.PullRequestsSkipped > 0 {
		fmt.Fprintf(w, "- **Pull requests skipped:** %d\n", s.PullRequestsSkipped)
	}
	fmt.Fprintf(w, "- **Inspected:** %d\n", s.Evaluated)
	fmt.Fprintf(w, "- **Stale:** %d\n", s.Stale)
	fmt.Fprintf(w, "- **Recent activity:** %d\n", s.RecentActivity)
	fmt.Fprintf(w, "- **Failed:** %d\n", s.Failed())
	fmt.Fprintln(w)

	if result.Truncated {
		fmt.Fprintln(w, "> [!WARNING]")
		fmt.Fprintln(w, "> The open issue listing was capped; older issues were not inspected.")
		fmt.Fprintln(w)
	}

	bumped := result.Stale()
	if len(bumped) == 0 {
		fmt.Fprintln(w, "No stale issues found.")
	} else {
		fmt.Fprintln(w, "| Issue | Title | Last updated | Last event | Status |")
		fmt.Fprintln(w, "|---|---|---|---|---|")
		for _, o := range bumped {
			fmt.Fprintf(w, "| [#%d](%s) | %s | %s | %s | %s |\n",
				o.Issue.Number,
				o.Issue.HTMLURL,
				escapeCell(o.Issue.Title),
				format.Date(o.Issue.UpdatedAt),
				format.OptionalDate(o.LastEventAt),
				status(o, result.DryRun),
			)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Failures")
		fmt.Fprintln(w)
		for _, err := range result.Errors {
			fmt.Fprintf(w, "- `%s`\n", strings.ReplaceAll(err.Error(), "`", "'"))
		}
	}

	return nil
}

// escapeCell keeps a value inside a single table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// AppendStepSummary appends the Markdown report to the job summary file
// named by GITHUB_STEP_SUMMARY. It is a no-op when path is empty.
func AppendStepSummary(path string, result *stale.Result) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open step summary: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := (&MarkdownFormatter{}).Format(result, f); err != nil {
		return fmt.Errorf("failed to write step summary: %w", err)
	}
	return nil
}
