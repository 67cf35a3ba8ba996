package stale

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/spiffcs/stalebot/internal/format"
	"github.com/spiffcs/stalebot/internal/model"
)

// DefaultCommentTemplate is the reminder posted on stale issues.
const DefaultCommentTemplate = `Looks like issue #{{.Number}} is stale as of {{date .Now}}. ` +
	`It was last updated {{date .UpdatedAt}} and its most recent event was {{.LastEvent}}. Have a great day!`

// CommentData is the data available to comment templates.
type CommentData struct {
	Number    int
	Title     string
	Now       time.Time
	UpdatedAt time.Time
	// LastEvent is the formatted date of the latest timeline event, or
	// "never".
	LastEvent string
	DaysStale int
}

var templateFuncs = template.FuncMap{
	"date": format.Date,
	"days": format.Days,
}

// ParseCommentTemplate parses a comment template, falling back to
// DefaultCommentTemplate when text is blank.
func ParseCommentTemplate(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultCommentTemplate
	}
	tmpl, err := template.New("comment").Funcs(templateFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse comment template: %w", err)
	}
	return tmpl, nil
}

// Notifier posts reminder comments. In dry-run mode it renders the
// comment but does not post it.
type Notifier struct {
	commenter Commenter
	tmpl      *template.Template
	policy    Policy
	now       time.Time
	dryRun    bool
}

// NewNotifier creates a Notifier. tmpl may be nil for the default comment.
func NewNotifier(commenter Commenter, tmpl *template.Template, policy Policy, now time.Time, dryRun bool) *Notifier {
	if tmpl == nil {
		tmpl = template.Must(ParseCommentTemplate(""))
	}
	return &Notifier{
		commenter: commenter,
		tmpl:      tmpl,
		policy:    policy,
		now:       now,
		dryRun:    dryRun,
	}
}

// Render returns the comment body for an evaluation.
func (n *Notifier) Render(ev Evaluation) (string, error) {
	data := CommentData{
		Number:    ev.Issue.Number,
		Title:     ev.Issue.Title,
		Now:       n.now,
		UpdatedAt: ev.Issue.UpdatedAt,
		LastEvent: format.OptionalDate(ev.LastEventAt),
		DaysStale: n.policy.DaysStale,
	}
	var sb strings.Builder
	if err := n.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render comment: %w", err)
	}
	return sb.String(), nil
}

// Notify posts the reminder for a stale issue.
func (n *Notifier) Notify(ctx context.Context, repo model.Repository, ev Evaluation) error {
	body, err := n.Render(ev)
	if err != nil {
		return &NotifyError{Number: ev.Issue.Number, Err: err}
	}
	if n.dryRun {
		return nil
	}
	if err := n.commenter.CreateComment(ctx, repo, ev.Issue.Number, body); err != nil {
		return &NotifyError{Number: ev.Issue.Number, Err: err}
	}
	return nil
}
