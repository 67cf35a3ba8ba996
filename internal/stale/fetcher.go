package stale

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrNoIssuePages is returned when every issue page failed, leaving
// nothing to evaluate.
var ErrNoIssuePages = errors.New("no page of open issues could be fetched")

// IssueFetch is the result of listing open issues.
type IssueFetch struct {
	Issues []model.Issue
	// Truncated is set when there may be open issues past the cap: the
	// last allowed page came back full, or it failed after a full page.
	Truncated bool
	Errors    []error
}

// FetchOpenIssues requests the first constants.MaxIssuePages pages of open
// issues concurrently and flattens them. Issues appearing on two pages
// (the listing can shift while it is read) are kept once. A failed page
// contributes nothing and is reported in Errors; only when every page
// fails is ErrNoIssuePages returned.
func FetchOpenIssues(ctx context.Context, lister IssueLister, repo model.Repository) (*IssueFetch, error) {
	pages := make([][]model.Issue, constants.MaxIssuePages)
	var mu sync.Mutex
	var fetchErrs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MaxConcurrentFetches)

	for i := range pages {
		page := i + 1 // pages are 1 indexed
		g.Go(func() error {
			issues, err := lister.ListOpenIssues(gctx, repo, page, constants.IssuesPerPage)
			if err != nil {
				mu.Lock()
				fetchErrs = append(fetchErrs, &FetchError{Source: "issues", Page: page, Err: err})
				mu.Unlock()
				return nil
			}
			pages[page-1] = issues
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(fetchErrs, func(i, j int) bool {
		return fetchErrs[i].(*FetchError).Page < fetchErrs[j].(*FetchError).Page
	})

	result := &IssueFetch{
		Issues:    dedupeIssues(pages),
		Truncated: truncated(pages, fetchErrs),
		Errors:    fetchErrs,
	}

	if len(fetchErrs) == len(pages) {
		return result, errors.Join(append([]error{ErrNoIssuePages}, fetchErrs...)...)
	}
	return result, nil
}

// truncated reports whether the listing may continue past the last page.
// A failed last page counts when the page before it was full.
func truncated(pages [][]model.Issue, fetchErrs []error) bool {
	last := len(pages) - 1
	if len(pages[last]) >= constants.IssuesPerPage {
		return true
	}
	if last == 0 {
		return false
	}
	for _, err := range fetchErrs {
		if err.(*FetchError).Page == last+1 {
			return len(pages[last-1]) >= constants.IssuesPerPage
		}
	}
	return false
}

func dedupeIssues(pages [][]model.Issue) []model.Issue {
	seen := make(map[int]bool)
	var issues []model.Issue
	for _, page := range pages {
		for _, issue := range page {
			if seen[issue.Number] {
				continue
			}
			seen[issue.Number] = true
			issues = append(issues, issue)
		}
	}
	return issues
}
