package ghclient

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
)

// ListOpenIssues fetches one page of a repository's open issues. The
// listing endpoint also returns pull requests; they are marked rather
// than dropped.
func (c *Client) ListOpenIssues(ctx context.Context, repo model.Repository, page, perPage int) ([]model.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State: constants.StateOpen,
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	log.Debug("listing open issues", "repo", repo.FullName(), "page", page)
	result, _, err := c.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list open issues of %s: %w", repo, err)
	}

	issues := make([]model.Issue, 0, len(result))
	for _, issue := range result {
		issues = append(issues, toIssue(issue))
	}
	return issues, nil
}

func toIssue(issue *gh.Issue) model.Issue {
	return model.Issue{
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		HTMLURL:       issue.GetHTMLURL(),
		UpdatedAt:     issue.GetUpdatedAt().Time,
		IsPullRequest: issue.IsPullRequest(),
	}
}
