package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the Bubble Tea model for the TUI progress display.
type Model struct {
	tasks          []Task
	spinner        spinner.Model
	progress       progress.Model
	events         <-chan Event
	done           bool
	repository     string
	dryRun         bool
	quota          string
	windowWidth    int
	windowHeight   int
	rateLimited    bool
	rateRemaining  int
	rateLimitReset time.Time
	now            func() time.Time
}

// doneMsg signals that all events have been processed.
type doneMsg struct{}

// ModelOption is a functional option for configuring a Model.
type ModelOption func(*Model)

// WithTasks sets the tasks to display in the TUI.
func WithTasks(tasks []Task) ModelOption {
	return func(m *Model) {
		m.tasks = tasks
	}
}

// WithRepository sets the owner/name shown in the header.
func WithRepository(repo string) ModelOption {
	return func(m *Model) {
		m.repository = repo
	}
}

// WithDryRun marks the header as a dry run.
func WithDryRun(dryRun bool) ModelOption {
	return func(m *Model) {
		m.dryRun = dryRun
	}
}

// DefaultTasks returns the task list for a stale run.
func DefaultTasks() []Task {
	return []Task{
		NewTask(TaskAuth, "Checking token"),
		NewTask(TaskIssues, "Listing open issues"),
		NewTask(TaskColumns, "Reading ignored columns"),
		NewTask(TaskEvaluate, "Evaluating issues"),
		NewTask(TaskReport, "Publishing results"),
	}
}

// NewModel creates a new TUI model.
func NewModel(events <-chan Event, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	p := progress.New(
		progress.WithScaledGradient("#60a5fa", "#1e3a8a"),
		progress.WithWidth(25),
		progress.WithoutPercentage(),
	)

	m := Model{
		tasks:    DefaultTasks(),
		spinner:  s,
		progress: p,
		events:   events,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case TaskEvent:
		var cmd tea.Cmd
		m, cmd = m.updateTask(msg)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case DoneEvent:
		m.done = true
		return m, tea.Quit

	case RateLimitEvent:
		m.rateLimited = msg.Limited
		m.rateRemaining = msg.Remaining
		m.rateLimitReset = msg.ResetAt
		return m, waitForEvent(m.events)

	case doneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// updateTask updates a task based on a TaskEvent.
func (m Model) updateTask(e TaskEvent) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for i := range m.tasks {
		if m.tasks[i].ID == e.Task {
			m.tasks[i].Status = e.Status
			if e.Message != "" {
				m.tasks[i].Message = e.Message
			}
			if e.Count > 0 {
				m.tasks[i].Count = e.Count
			}
			if e.Progress > 0 {
				m.tasks[i].Progress = e.Progress
				cmd = m.progress.SetPercent(e.Progress)
			}
			if e.Error != nil {
				m.tasks[i].Error = e.Error
			}
			// The token check reports the remaining quota as its message
			if e.Task == TaskAuth && e.Status == StatusComplete && e.Message != "" {
				m.quota = e.Message
			}
			break
		}
	}
	return m, cmd
}

// View renders the model.
func (m Model) View() string {
	var s string

	if m.repository != "" {
		s += "  " + repoStyle.Render(m.repository)
		if m.dryRun {
			s += " " + dryRunStyle.Render("dry run")
		}
		s += "\n\n"
	}

	for _, task := range m.tasks {
		// The token check shows the remaining quota instead of its name once done
		if task.ID == TaskAuth && task.Status == StatusComplete && m.quota != "" {
			s += fmt.Sprintf("  %s Token ok %s\n", iconComplete, messageStyle.Render("("+m.quota+")"))
			continue
		}
		s += task.View(m.spinner.View(), m.progress) + "\n"
	}

	s += m.rateLimitView()

	// Only show cancel hint while running
	if !m.done {
		s += footerStyle.Render("\n  Press Ctrl+C to cancel")
	}
	s += "\n"

	return s
}

func (m Model) rateLimitView() string {
	wait := m.rateLimitReset.Sub(m.now()).Round(time.Second)
	switch {
	case m.rateLimited && wait > 0:
		return warnStyle.Render(fmt.Sprintf("\n  Rate limited - remaining requests will fail (resets in %s)\n", wait))
	case m.rateLimited:
		return warnStyle.Render("\n  Rate limited - remaining requests will fail\n")
	case m.rateRemaining > 0:
		return warnStyle.Render(fmt.Sprintf("\n  Only %d API requests left before the rate limit\n", m.rateRemaining))
	}
	return ""
}

// waitForEvent creates a command that waits for the next event.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return event
	}
}
