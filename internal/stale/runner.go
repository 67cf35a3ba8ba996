package stale

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/format"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
	"golang.org/x/sync/errgroup"
)

// Stage identifies a step of a run for progress reporting.
type Stage int

const (
	StageIssues   Stage = iota // Listing open issues
	StageColumns               // Reading ignored columns
	StageEvaluate              // Evaluating and notifying
)

// ProgressFunc is called as a stage makes progress. total is 0 when it
// is not known yet.
type ProgressFunc func(stage Stage, completed, total int)

// RunOptions configures a run.
type RunOptions struct {
	RunID   string
	Repo    model.Repository
	Policy  Policy
	Columns []int64
	// Now is the single instant all ages are measured against.
	Now              time.Time
	Workers          int
	DryRun           bool
	SkipPullRequests bool
	// Template renders the comment; nil uses DefaultCommentTemplate.
	Template *template.Template
}

// Runner executes the fetch, exclude, evaluate and notify pipeline.
type Runner struct {
	api        API
	onProgress ProgressFunc
}

// NewRunner creates a Runner. onProgress may be nil (no-op).
func NewRunner(api API, onProgress ProgressFunc) *Runner {
	return &Runner{
		api:        api,
		onProgress: onProgress,
	}
}

func (r *Runner) reportProgress(stage Stage, completed, total int) {
	if r.onProgress != nil {
		r.onProgress(stage, completed, total)
	}
}

// Run performs one pass over the repository. Failures of individual pages,
// timeline reads and comment posts are isolated to their unit and
// collected in Result.Errors; the returned error is non-nil only when no
// page of open issues could be read.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Workers <= 0 {
		opts.Workers = constants.DefaultWorkers
	}

	result := &Result{
		RunID:  opts.RunID,
		Repo:   opts.Repo,
		Now:    opts.Now,
		Policy: opts.Policy,
		DryRun: opts.DryRun,
	}

	issues, exclusions, err := r.fetch(ctx, opts)
	result.Errors = append(result.Errors, exclusions.Errors...)
	result.Summary.FetchFailures = len(exclusions.Errors)
	if issues != nil {
		result.Errors = append(result.Errors, issues.Errors...)
		result.Summary.FetchFailures += len(issues.Errors)
	}
	if err != nil {
		return result, err
	}

	result.Truncated = issues.Truncated
	result.Ignored = exclusions.Set.Sorted()
	result.Summary.Fetched = len(issues.Issues)

	log.Info("found open issues", "count", len(issues.Issues))
	if issues.Truncated {
		log.Warn("open issue listing reached its cap; issues beyond it are not inspected",
			"cap", constants.MaxIssuePages*constants.IssuesPerPage)
	}
	if len(opts.Columns) > 0 {
		log.Info("ignoring issues in columns", "columns", len(opts.Columns), "issues", result.Ignored)
	}

	candidates := issues.Issues
	if opts.SkipPullRequests {
		candidates, result.Summary.PullRequestsSkipped = withoutPullRequests(candidates)
	}
	candidates, result.Summary.Excluded = Subtract(candidates, exclusions.Set)

	log.Info("inspecting issues", "count", len(candidates), "issues", issueNumbers(candidates))

	result.Outcomes = r.evaluateAll(ctx, opts, candidates)
	for _, o := range result.Outcomes {
		if o.Err != nil {
			result.Errors = append(result.Errors, o.Err)
		}
	}
	result.Summary = summarize(result.Summary, result.Outcomes)

	return result, nil
}

// fetch lists issues and builds the exclusion set concurrently.
func (r *Runner) fetch(ctx context.Context, opts RunOptions) (*IssueFetch, *ExclusionBuild, error) {
	var issues *IssueFetch
	var exclusions *ExclusionBuild
	var issuesErr error

	r.reportProgress(StageIssues, 0, 0)
	r.reportProgress(StageColumns, 0, len(opts.Columns))

	var g errgroup.Group
	g.Go(func() error {
		issues, issuesErr = FetchOpenIssues(ctx, r.api, opts.Repo)
		if issues != nil {
			r.reportProgress(StageIssues, len(issues.Issues), len(issues.Issues))
		}
		return nil
	})
	g.Go(func() error {
		exclusions = BuildExclusionSet(ctx, r.api, opts.Columns)
		r.reportProgress(StageColumns, len(opts.Columns), len(opts.Columns))
		return nil
	})
	_ = g.Wait()

	return issues, exclusions, issuesErr
}

// evaluateAll evaluates every candidate with bounded concurrency. Each
// task records its own outcome and never fails the group, so one issue's
// error cannot cancel its siblings.
func (r *Runner) evaluateAll(ctx context.Context, opts RunOptions, issues []model.Issue) []Outcome {
	evaluator := NewEvaluator(opts.Policy, opts.Now, r.api)
	notifier := NewNotifier(r.api, opts.Template, opts.Policy, opts.Now, opts.DryRun)

	outcomes := make([]Outcome, len(issues))
	total := len(issues)
	var completed int64
	r.reportProgress(StageEvaluate, 0, total)

	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for i, issue := range issues {
		g.Go(func() error {
			outcomes[i] = r.evaluateOne(ctx, opts.Repo, evaluator, notifier, issue)
			r.reportProgress(StageEvaluate, int(atomic.AddInt64(&completed, 1)), total)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Issue.Number < outcomes[j].Issue.Number
	})
	return outcomes
}

func (r *Runner) evaluateOne(ctx context.Context, repo model.Repository, evaluator *Evaluator, notifier *Notifier, issue model.Issue) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{
			Evaluation: Evaluation{Issue: issue, Decision: DecisionError},
			Err:        &EvaluationError{Number: issue.Number, Err: err},
		}
	}

	ev, err := evaluator.Evaluate(ctx, repo, issue)
	if err != nil {
		log.Warn("could not evaluate issue", "issue", issue.Number, "error", err)
		return Outcome{Evaluation: ev, Err: err}
	}
	if ev.Decision != DecisionStale {
		return Outcome{Evaluation: ev}
	}

	log.Info("bumping issue",
		"issue", issue.Number,
		"updated", issue.UpdatedAt.Format(time.RFC3339),
		"lastEvent", format.OptionalDate(ev.LastEventAt),
		"dryRun", notifier.dryRun)

	if err := notifier.Notify(ctx, repo, ev); err != nil {
		log.Warn("could not post reminder", "issue", issue.Number, "error", err)
		return Outcome{Evaluation: ev, Err: err}
	}
	return Outcome{Evaluation: ev, Notified: true}
}

func summarize(s Summary, outcomes []Outcome) Summary {
	s.Evaluated = len(outcomes)
	for _, o := range outcomes {
		switch o.Decision {
		case DecisionFresh:
			s.Fresh++
		case DecisionRecentActivity:
			s.RecentActivity++
		case DecisionStale:
			s.Stale++
		}
		if o.Notified {
			s.Notified++
		}

		var evalErr *EvaluationError
		var notifyErr *NotifyError
		switch {
		case errors.As(o.Err, &evalErr):
			s.EvaluationFailures++
		case errors.As(o.Err, &notifyErr):
			s.NotifyFailures++
		}
	}
	return s
}

func withoutPullRequests(issues []model.Issue) ([]model.Issue, int) {
	kept := make([]model.Issue, 0, len(issues))
	skipped := 0
	for _, issue := range issues {
		if issue.IsPullRequest {
			skipped++
			continue
		}
		kept = append(kept, issue)
	}
	return kept, skipped
}

func issueNumbers(issues []model.Issue) []int {
	numbers := make([]int, len(issues))
	for i, issue := range issues {
		numbers[i] = issue.Number
	}
	return numbers
}
