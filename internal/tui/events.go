package tui

import "time"

// TaskID identifies a task in the TUI progress display.
type TaskID int

const (
	TaskAuth     TaskID = iota // Checking the token's rate limit
	TaskIssues                 // Listing open issues
	TaskColumns                // Reading ignored project columns
	TaskEvaluate               // Reading timelines and posting reminders
	TaskReport                 // Job summary and metrics push
)

// TaskStatus represents the current status of a task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusComplete
	StatusError
	StatusSkipped
)

// Event is the interface for all TUI events.
type Event interface {
	isEvent()
}

// TaskEvent represents an update to a task's status.
type TaskEvent struct {
	Task     TaskID
	Status   TaskStatus
	Message  string  // Optional message (e.g., "12/30" for progress)
	Count    int     // Count of items (e.g., issues listed)
	Progress float64 // Progress from 0.0 to 1.0
	Error    error   // Error if status is StatusError
}

func (TaskEvent) isEvent() {}

// RateLimitEvent reports that the API quota is exhausted or running low.
type RateLimitEvent struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

func (RateLimitEvent) isEvent() {}

// DoneEvent signals that all work is complete.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
