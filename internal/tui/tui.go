package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiffcs/stalebot/internal/stale"
	"golang.org/x/term"
)

// Run starts the TUI and blocks until it completes.
func Run(events <-chan Event, opts ...ModelOption) error {
	model := NewModel(events, opts...)
	// Don't use alt screen - render inline
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

// ShouldUseTUI returns true if the TUI should be used based on environment.
func ShouldUseTUI() bool {
	// Check if stdout is a TTY
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	// Check for CI environment variables
	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"GITLAB_CI",
		"BUILDKITE",
	}

	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return false
		}
	}

	return true
}

// SendEvent sends an event to the channel in a non-blocking manner.
func SendEvent(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	default:
		// Non-blocking send - drop event if channel is full
	}
}

// SendTaskEvent is a convenience function for sending task events.
func SendTaskEvent(ch chan<- Event, task TaskID, status TaskStatus, opts ...TaskEventOption) {
	e := TaskEvent{
		Task:   task,
		Status: status,
	}
	for _, opt := range opts {
		opt(&e)
	}
	SendEvent(ch, e)
}

// TaskEventOption is a functional option for TaskEvent.
type TaskEventOption func(*TaskEvent)

// WithMessage sets the message on a TaskEvent.
func WithMessage(msg string) TaskEventOption {
	return func(e *TaskEvent) {
		e.Message = msg
	}
}

// WithCount sets the count on a TaskEvent.
func WithCount(count int) TaskEventOption {
	return func(e *TaskEvent) {
		e.Count = count
	}
}

// WithProgress sets the progress on a TaskEvent.
func WithProgress(progress float64) TaskEventOption {
	return func(e *TaskEvent) {
		e.Progress = progress
	}
}

// WithError sets the error on a TaskEvent.
func WithError(err error) TaskEventOption {
	return func(e *TaskEvent) {
		e.Error = err
	}
}

// StageProgress translates a runner's progress callbacks into task events.
// A nil channel yields a callback that does nothing.
func StageProgress(ch chan<- Event) stale.ProgressFunc {
	return func(stage stale.Stage, completed, total int) {
		switch stage {
		case stale.StageIssues:
			if completed == 0 && total == 0 {
				SendTaskEvent(ch, TaskIssues, StatusRunning)
				return
			}
			SendTaskEvent(ch, TaskIssues, StatusComplete, WithCount(completed))

		case stale.StageColumns:
			switch {
			case total == 0:
				SendTaskEvent(ch, TaskColumns, StatusSkipped, WithMessage("none configured"))
			case completed < total:
				SendTaskEvent(ch, TaskColumns, StatusRunning)
			default:
				SendTaskEvent(ch, TaskColumns, StatusComplete, WithCount(total))
			}

		case stale.StageEvaluate:
			switch {
			case total == 0:
				SendTaskEvent(ch, TaskEvaluate, StatusComplete, WithMessage("nothing to inspect"))
			case completed < total:
				SendTaskEvent(ch, TaskEvaluate, StatusRunning,
					WithProgress(float64(completed)/float64(total)),
					WithMessage(fmt.Sprintf("%d/%d", completed, total)))
			default:
				SendTaskEvent(ch, TaskEvaluate, StatusComplete, WithCount(total))
			}
		}
	}
}
