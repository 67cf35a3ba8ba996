// Package stale finds open issues that have gone quiet and reminds their
// participants with a comment.
package stale

import (
	"context"

	"github.com/spiffcs/stalebot/internal/model"
)

// IssueLister lists one page of a repository's open issues.
type IssueLister interface {
	ListOpenIssues(ctx context.Context, repo model.Repository, page, perPage int) ([]model.Issue, error)
}

// CardLister lists one page of non-archived cards in a project column.
type CardLister interface {
	ListColumnCards(ctx context.Context, columnID int64, page, perPage int) ([]model.Card, error)
}

// TimelineReader reads the most recent timeline event of an issue.
type TimelineReader interface {
	LastTimelineEvent(ctx context.Context, repo model.Repository, number int) (model.TimelineSignal, error)
}

// Commenter posts a comment on an issue.
type Commenter interface {
	CreateComment(ctx context.Context, repo model.Repository, number int, body string) error
}

// API is everything a run needs from the issue tracker.
type API interface {
	IssueLister
	CardLister
	TimelineReader
	Commenter
}
