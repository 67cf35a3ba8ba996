// Package constants provides a centralized location for all configuration
// values and magic numbers used throughout the stalebot application.
package constants

import "time"

// Listing bounds. These caps are deliberate: repositories with more open
// issues than MaxIssuePages*IssuesPerPage are only partially inspected.
const (
	// IssuesPerPage is the page size used when listing open issues.
	IssuesPerPage = 100

	// MaxIssuePages is the number of issue pages requested per run.
	MaxIssuePages = 5

	// CardsPerPage is the page size used when listing project column cards.
	CardsPerPage = 100

	// MaxCardPages is the number of card pages requested per column.
	MaxCardPages = 2
)

// Concurrency constants
const (
	// DefaultWorkers bounds concurrent per-issue evaluations.
	DefaultWorkers = 10

	// MaxConcurrentFetches bounds concurrent page requests.
	MaxConcurrentFetches = 8
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged.
	RateLimitLowWatermark = 100
)

// TUI update and display constants
const (
	// TUIUpdateInterval is the minimum time between TUI progress updates.
	TUIUpdateInterval = 50 * time.Millisecond

	// LogThrottlePercent is the interval (in percent) at which progress
	// logs are emitted when not using the TUI.
	LogThrottlePercent = 5

	// TruncationSuffixWidth is the width of the "..." suffix when truncating strings.
	TruncationSuffixWidth = 3
)

// Comment rendering constants
const (
	// DateLayout renders dates in comments and reports, e.g. "Wed Jan 10 2024".
	DateLayout = "Mon Jan 02 2006"

	// NeverMarker stands in for a missing timeline event.
	NeverMarker = "never"
)

// Card archive states accepted by the project cards listing.
const (
	ArchivedStateNotArchived = "not_archived"
)

// Issue state constants
const (
	// StateOpen indicates an issue is open.
	StateOpen = "open"
)
