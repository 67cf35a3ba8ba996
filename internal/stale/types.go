package stale

import (
	"time"

	"github.com/spiffcs/stalebot/internal/model"
)

// Decision is the outcome of evaluating one issue.
type Decision string

const (
	// DecisionFresh means the issue was updated recently enough; the
	// timeline was not consulted.
	DecisionFresh Decision = "fresh"
	// DecisionRecentActivity means the issue itself is old but a recent
	// timeline event (e.g. a board move) counts as activity.
	DecisionRecentActivity Decision = "recent-activity"
	// DecisionStale means the issue should be bumped.
	DecisionStale Decision = "stale"
	// DecisionError means the timeline could not be read.
	DecisionError Decision = "error"
)

// Display returns a human-readable decision
func (d Decision) Display() string {
	switch d {
	case DecisionFresh:
		return "Fresh"
	case DecisionRecentActivity:
		return "Recent activity"
	case DecisionStale:
		return "Stale"
	case DecisionError:
		return "Error"
	default:
		return string(d)
	}
}

// Evaluation is the result of applying the policy to one issue.
type Evaluation struct {
	Issue    model.Issue `json:"issue"`
	Decision Decision    `json:"decision"`
	// Age is the issue's age by its own updated timestamp.
	Age int `json:"age"`
	// TimelineChecked is false when the primary age short-circuited.
	TimelineChecked bool       `json:"timelineChecked"`
	LastEventAt     *time.Time `json:"lastEventAt,omitempty"`
	EventAge        int        `json:"eventAge,omitempty"`
}

// Outcome is an evaluation plus what happened when acting on it.
type Outcome struct {
	Evaluation
	// Notified is true once a comment was posted (or would have been, in
	// a dry run).
	Notified bool  `json:"notified"`
	Err      error `json:"-"`
}

// Summary counts the units of a run.
type Summary struct {
	Fetched             int `json:"fetched"`
	Excluded            int `json:"excluded"`
	PullRequestsSkipped int `json:"pullRequestsSkipped,omitempty"`
	Evaluated           int `json:"evaluated"`
	Fresh               int `json:"fresh"`
	RecentActivity      int `json:"recentActivity"`
	Stale               int `json:"stale"`
	Notified            int `json:"notified"`
	FetchFailures       int `json:"fetchFailures"`
	EvaluationFailures  int `json:"evaluationFailures"`
	NotifyFailures      int `json:"notifyFailures"`
}

// Failed returns the number of units that failed.
func (s Summary) Failed() int {
	return s.FetchFailures + s.EvaluationFailures + s.NotifyFailures
}

// Result is the complete record of one run.
type Result struct {
	RunID  string           `json:"runId"`
	Repo   model.Repository `json:"repository"`
	Now    time.Time        `json:"now"`
	Policy Policy           `json:"policy"`
	DryRun bool             `json:"dryRun"`
	// Truncated is set when the issue listing hit its page cap.
	Truncated bool `json:"truncated"`
	// Ignored lists the issue numbers found in ignored columns.
	Ignored  []string  `json:"ignored"`
	Outcomes []Outcome `json:"outcomes"`
	Errors   []error   `json:"-"`
	Summary  Summary   `json:"summary"`
}

// Stale returns the outcomes whose decision is DecisionStale.
func (r *Result) Stale() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Decision == DecisionStale {
			out = append(out, o)
		}
	}
	return out
}
