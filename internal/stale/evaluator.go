package stale

import (
	"context"
	"time"

	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
)

// Evaluator applies a Policy to issues relative to a fixed instant.
type Evaluator struct {
	policy   Policy
	now      time.Time
	timeline TimelineReader
}

// NewEvaluator creates an Evaluator. now is captured once per run and
// used for every age computation.
func NewEvaluator(policy Policy, now time.Time, timeline TimelineReader) *Evaluator {
	return &Evaluator{
		policy:   policy,
		now:      now,
		timeline: timeline,
	}
}

// Evaluate decides whether an issue is stale. The issue's own updated
// timestamp is checked first; only when that is past the threshold is the
// timeline read, and a recent timeline event then keeps the issue alive.
// A failed timeline read yields DecisionError and an *EvaluationError.
func (e *Evaluator) Evaluate(ctx context.Context, repo model.Repository, issue model.Issue) (Evaluation, error) {
	ev := Evaluation{
		Issue: issue,
		Age:   e.policy.Age(issue.UpdatedAt, e.now),
	}

	if !e.policy.IsStale(ev.Age) {
		ev.Decision = DecisionFresh
		return ev, nil
	}

	signal, err := e.timeline.LastTimelineEvent(ctx, repo, issue.Number)
	if err != nil {
		ev.Decision = DecisionError
		return ev, &EvaluationError{Number: issue.Number, Err: err}
	}
	ev.TimelineChecked = true

	if !signal.HasEvent() {
		ev.Decision = DecisionStale
		return ev, nil
	}

	ev.LastEventAt = signal.LastEventAt
	ev.EventAge = e.policy.Age(*signal.LastEventAt, e.now)
	if e.policy.IsStale(ev.EventAge) {
		ev.Decision = DecisionStale
	} else {
		ev.Decision = DecisionRecentActivity
	}

	log.Debug("evaluated issue",
		"issue", issue.Number,
		"age", ev.Age,
		"eventAge", ev.EventAge,
		"decision", ev.Decision)

	return ev, nil
}
