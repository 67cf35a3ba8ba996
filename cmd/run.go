package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spiffcs/stalebot/config"
	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/duration"
	"github.com/spiffcs/stalebot/internal/ghclient"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/metrics"
	"github.com/spiffcs/stalebot/internal/output"
	"github.com/spiffcs/stalebot/internal/stale"
	"github.com/spiffcs/stalebot/internal/tui"
)

// ErrUnitsFailed is returned with --strict when a run finished but some
// pages, timelines or comments failed.
var ErrUnitsFailed = errors.New("run finished with failures")

// Environment variables set by the Actions runner.
const (
	envActions       = "GITHUB_ACTIONS"
	envStepSummary   = "GITHUB_STEP_SUMMARY"
	envAPIURL        = "GITHUB_API_URL"
	envGraphQLURL    = "GITHUB_GRAPHQL_URL"
	metricsPushLimit = 30 * time.Second
)

// runRuntime bundles TUI-related state that's threaded through a run.
type runRuntime struct {
	useTUI  bool
	events  chan tui.Event
	tuiDone chan error
}

// startTUI initializes and starts the TUI goroutine if TUI mode is enabled.
func (rt *runRuntime) startTUI(opts ...tui.ModelOption) {
	if !rt.useTUI {
		return
	}
	rt.events = make(chan tui.Event, 100)
	rt.tuiDone = make(chan error, 1)
	go func() {
		rt.tuiDone <- tui.Run(rt.events, opts...)
	}()
}

// close closes the event channel and waits for the TUI to finish.
func (rt *runRuntime) close() {
	if rt.events == nil {
		return
	}
	close(rt.events)
	rt.events = nil
	if rt.tuiDone != nil {
		<-rt.tuiDone
	}
}

// sendEvent sends a task event to the TUI channel if it exists.
func (rt *runRuntime) sendEvent(task tui.TaskID, status tui.TaskStatus, opts ...tui.TaskEventOption) {
	if rt.events == nil {
		return
	}
	tui.SendTaskEvent(rt.events, task, status, opts...)
}

// progressFunc forwards runner progress to the TUI, throttled to
// TUIUpdateInterval, or to the progress log line when the TUI is off.
func (rt *runRuntime) progressFunc() stale.ProgressFunc {
	if rt.useTUI {
		send := tui.StageProgress(rt.events)
		var lastUpdate int64
		return func(stage stale.Stage, completed, total int) {
			if stage == stale.StageEvaluate && completed > 0 && completed < total {
				now := time.Now().UnixNano()
				last := atomic.LoadInt64(&lastUpdate)
				if now-last < int64(constants.TUIUpdateInterval) {
					return
				}
				if !atomic.CompareAndSwapInt64(&lastUpdate, last, now) {
					return
				}
			}
			send(stage, completed, total)
		}
	}

	var lastPercent int64 = -1
	return func(stage stale.Stage, completed, total int) {
		if stage != stale.StageEvaluate || total == 0 {
			return
		}
		percent := int64(completed * 100 / total)
		if percent != atomic.LoadInt64(&lastPercent) && percent%constants.LogThrottlePercent == 0 {
			atomic.StoreInt64(&lastPercent, percent)
			log.Progress("Evaluating issues: %d/%d (%d%%)...", completed, total, percent)
		}
	}
}

// NewCmdRun creates the run command.
func NewCmdRun(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bump stale issues (same as root stalebot)",
		Long: `Lists the open issues of a repository, skips those sitting in the
ignored project columns, and posts a reminder comment on every issue that
has neither been updated nor had a timeline event for longer than the
configured number of days.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStale(cmd, opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// addRunFlags adds the run flags to a command.
func addRunFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.Token, "token", "", "GitHub token (default: $INPUT_TOKEN or $GITHUB_TOKEN)")
	cmd.Flags().StringVarP(&opts.Repo, "repo", "r", "", "Repository as owner/name (default: $GITHUB_REPOSITORY)")
	cmd.Flags().StringVarP(&opts.DaysStale, "days-stale", "d", "", "Days without activity before an issue is bumped")
	cmd.Flags().BoolVar(&opts.OnlyWeekdays, "only-weekdays", false, "Count only Monday to Friday when aging issues")
	cmd.Flags().StringSliceVar(&opts.IgnoreColumns, "ignore-columns", nil, "Project column ids whose issues are never bumped")
	cmd.Flags().BoolVar(&opts.SkipPullRequests, "skip-pull-requests", false, "Do not bump pull requests")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Evaluate issues without posting comments")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero when any issue could not be processed")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent issue evaluations (default 10)")
	cmd.Flags().StringVar(&opts.Timeout, "timeout", "", "Overall deadline for the run (e.g., 10m, 1h)")
	cmd.Flags().StringVarP(&opts.Format, "output", "o", "", "Output format (table, json, markdown)")
	cmd.Flags().StringVar(&opts.Pushgateway, "pushgateway", "", "Prometheus Pushgateway URL to push run metrics to")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")

	// TUI flag with tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress (default: auto-detect)")

	// Profiling flags
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	cmd.Flags().StringVar(&opts.MemProfile, "memprofile", "", "Write memory profile to file")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "Write execution trace to file")
}

func runStale(cmd *cobra.Command, opts *Options) error {
	start := time.Now()

	// Setup
	if err := config.LoadEnv(); err != nil {
		return err
	}
	rt, cleanup, err := setupRuntime(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	settings, timeout, err := resolveSettings(cmd, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	log.Info("starting run",
		"run", runID,
		"repository", settings.Repo.String(),
		"daysStale", settings.Policy.DaysStale,
		"onlyWeekdays", settings.Policy.OnlyWeekdays,
		"ignoreColumns", settings.Columns,
		"dryRun", opts.DryRun)

	client, err := ghclient.NewClient(ctx, settings.Token, clientOptions(os.Getenv)...)
	if err != nil {
		return err
	}

	rt.startTUI(tui.WithRepository(settings.Repo.String()), tui.WithDryRun(opts.DryRun))
	defer rt.close()

	checkQuota(ctx, client, rt)

	// Run
	log.Group(fmt.Sprintf("Inspecting %s", settings.Repo))
	runner := stale.NewRunner(client, rt.progressFunc())
	result, runErr := runner.Run(ctx, stale.RunOptions{
		RunID:            runID,
		Repo:             settings.Repo,
		Policy:           settings.Policy,
		Columns:          settings.Columns,
		Now:              start,
		Workers:          settings.Workers,
		DryRun:           opts.DryRun,
		SkipPullRequests: settings.SkipPullRequests,
		Template:         settings.CommentTemplate,
	})
	if !rt.useTUI {
		log.ProgressDone()
	}
	log.EndGroup()

	reportRateLimit(client, rt)

	if runErr != nil {
		rt.sendEvent(tui.TaskIssues, tui.StatusError, tui.WithError(runErr))
		rt.close()
		return fmt.Errorf("run %s failed: %w", runID, runErr)
	}

	// Publish
	publish(cmd.Context(), result, settings, time.Since(start), rt)
	rt.close()

	logSummary(result)

	formatter := output.NewFormatter(output.Format(settings.Format))
	if err := formatter.Format(result, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.Strict && result.Summary.Failed() > 0 {
		return fmt.Errorf("%w: %d of the run's units failed", ErrUnitsFailed, result.Summary.Failed())
	}
	return nil
}

// setupRuntime configures logging and profiling and returns a cleanup
// function for the profiler.
func setupRuntime(opts *Options) (*runRuntime, func(), error) {
	profiler := NewProfiler(opts.CPUProfile, opts.MemProfile, opts.Trace)
	if err := profiler.Start(); err != nil {
		return nil, nil, err
	}

	useTUI := shouldUseTUI(opts)

	// Initialize logging - suppress logs during TUI to avoid interleaving with display
	switch {
	case os.Getenv(envActions) == "true":
		// Runs in a workflow always show what was bumped
		level := opts.Verbosity
		if level < log.LevelInfo {
			level = log.LevelInfo
		}
		log.InitializeActions(level, os.Stdout)
	case useTUI:
		log.Initialize(opts.Verbosity, io.Discard)
	default:
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	return &runRuntime{useTUI: useTUI}, profiler.Stop, nil
}

// resolveSettings merges flags, environment and config files and parses
// the deadline.
func resolveSettings(cmd *cobra.Command, opts *Options) (config.Settings, time.Duration, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Settings{}, 0, &config.Error{Field: "config file", Err: err}
	}

	settings, err := config.Resolve(opts.inputs(cmd.Flags().Changed), cfg, nil)
	if err != nil {
		return config.Settings{}, 0, err
	}

	timeout, err := duration.Parse(opts.Timeout)
	if err != nil {
		return config.Settings{}, 0, &config.Error{Field: "timeout", Err: err}
	}
	return settings, timeout, nil
}

// clientOptions points the client at the runner's API endpoints, which
// differ from api.github.com on GitHub Enterprise Server.
func clientOptions(getenv func(string) string) []ghclient.Option {
	var opts []ghclient.Option
	if u := getenv(envAPIURL); u != "" {
		opts = append(opts, ghclient.WithBaseURL(u))
	}
	if u := getenv(envGraphQLURL); u != "" {
		opts = append(opts, ghclient.WithGraphQLURL(u))
	}
	return opts
}

// checkQuota reads the token's rate limits. The rate limit endpoint does
// not count against the quota; a failure here is reported but not fatal
// since the listing reports the same problem with more context.
func checkQuota(ctx context.Context, client *ghclient.Client, rt *runRuntime) {
	rt.sendEvent(tui.TaskAuth, tui.StatusRunning)

	limits, err := client.RateLimits(ctx)
	if err != nil {
		log.Warn("could not read rate limits", "error", err)
		rt.sendEvent(tui.TaskAuth, tui.StatusError, tui.WithError(err))
		return
	}

	core := limits.GetCore()
	if core == nil {
		rt.sendEvent(tui.TaskAuth, tui.StatusComplete)
		return
	}
	log.Debug("rate limit", "remaining", core.Remaining, "limit", core.Limit, "reset", core.Reset.Time)
	rt.sendEvent(tui.TaskAuth, tui.StatusComplete,
		tui.WithMessage(fmt.Sprintf("%d requests left", core.Remaining)))

	if core.Remaining <= constants.RateLimitLowWatermark {
		log.Warn("rate limit nearly exhausted", "remaining", core.Remaining, "reset", core.Reset.Time)
		if rt.events != nil {
			tui.SendEvent(rt.events, tui.RateLimitEvent{Remaining: core.Remaining, ResetAt: core.Reset.Time})
		}
	}
}

// reportRateLimit surfaces an exhausted quota seen during the run.
func reportRateLimit(client *ghclient.Client, rt *runRuntime) {
	snap := client.RateLimit()
	if !snap.Limited && !snap.Low() {
		return
	}
	if snap.Limited {
		log.Warn("rate limit exceeded during run; remaining requests were skipped", "reset", snap.ResetAt)
	}
	if rt.events != nil {
		tui.SendEvent(rt.events, tui.RateLimitEvent{
			Limited:   snap.Limited,
			Remaining: snap.Remaining,
			ResetAt:   snap.ResetAt,
		})
	}
}

// publish appends the job summary and pushes metrics. Failures are logged;
// the comments are already posted at this point.
func publish(ctx context.Context, result *stale.Result, settings config.Settings, elapsed time.Duration, rt *runRuntime) {
	rt.sendEvent(tui.TaskReport, tui.StatusRunning)

	var failed bool
	if err := output.AppendStepSummary(os.Getenv(envStepSummary), result); err != nil {
		log.Warn("could not write job summary", "error", err)
		failed = true
	}

	recorder := metrics.NewRecorder()
	recorder.Observe(result, elapsed)
	if settings.Pushgateway != "" {
		pushCtx, cancel := context.WithTimeout(ctx, metricsPushLimit)
		defer cancel()
		if err := recorder.Push(pushCtx, settings.Pushgateway, settings.Repo.String()); err != nil {
			log.Warn("could not push metrics", "error", err)
			failed = true
		} else {
			log.Debug("pushed metrics", "gateway", settings.Pushgateway)
		}
	}

	if failed {
		rt.sendEvent(tui.TaskReport, tui.StatusError)
		return
	}
	rt.sendEvent(tui.TaskReport, tui.StatusComplete)
}

func logSummary(result *stale.Result) {
	s := result.Summary
	log.Info("run complete",
		"run", result.RunID,
		"fetched", s.Fetched,
		"excluded", s.Excluded,
		"evaluated", s.Evaluated,
		"stale", s.Stale,
		"notified", s.Notified)

	if s.Failed() == 0 {
		return
	}
	log.Warn("some units failed and were skipped",
		"fetch", s.FetchFailures,
		"evaluate", s.EvaluationFailures,
		"notify", s.NotifyFailures)
	for _, err := range result.Errors {
		log.Debug("failure", "error", err)
	}
}
