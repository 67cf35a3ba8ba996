// Package metrics records the counters of a run and pushes them to a
// Prometheus Pushgateway. A one-shot run has nothing to scrape, so gauges
// describe the latest run and are replaced on every push.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spiffcs/stalebot/internal/stale"
)

// JobName is the Pushgateway job the metrics are grouped under.
const JobName = "stalebot"

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	issues   *prometheus.GaugeVec
	failures *prometheus.GaugeVec
	duration prometheus.Gauge
	lastRun  prometheus.Gauge
	dryRun   prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stalebot_issues",
			Help: "Issues seen by the last run, by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stalebot_failures",
			Help: "Units that failed in the last run, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stalebot_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stalebot_last_run_timestamp_seconds",
			Help: "Unix time the last run was evaluated at.",
		}),
		dryRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stalebot_dry_run",
			Help: "1 if the last run posted no comments.",
		}),
	}
	r.registry.MustRegister(r.issues, r.failures, r.duration, r.lastRun, r.dryRun)
	return r
}

// Observe records a finished run.
func (r *Recorder) Observe(result *stale.Result, elapsed time.Duration) {
	s := result.Summary
	for outcome, n := range map[string]int{
		"fetched":         s.Fetched,
		"excluded":        s.Excluded,
		"skipped_pr":      s.PullRequestsSkipped,
		"evaluated":       s.Evaluated,
		"fresh":           s.Fresh,
		"recent_activity": s.RecentActivity,
		"stale":           s.Stale,
		"notified":        s.Notified,
	} {
		r.issues.WithLabelValues(outcome).Set(float64(n))
	}

	r.failures.WithLabelValues("fetch").Set(float64(s.FetchFailures))
	r.failures.WithLabelValues("evaluate").Set(float64(s.EvaluationFailures))
	r.failures.WithLabelValues("notify").Set(float64(s.NotifyFailures))

	r.duration.Set(elapsed.Seconds())
	r.lastRun.Set(float64(result.Now.Unix()))
	if result.DryRun {
		r.dryRun.Set(1)
	} else {
		r.dryRun.Set(0)
	}
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push replaces the metrics grouped under the repository on the gateway.
func (r *Recorder) Push(ctx context.Context, gatewayURL, repository string) error {
	err := push.New(gatewayURL, JobName).
		Gatherer(r.registry).
		Grouping("repository", repository).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
