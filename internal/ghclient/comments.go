package ghclient

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
)

// CreateComment posts a comment on an issue or pull request.
func (c *Client) CreateComment(ctx context.Context, repo model.Repository, number int, body string) error {
	log.Debug("posting comment", "repo", repo.FullName(), "issue", number)
	_, _, err := c.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &gh.IssueComment{
		Body: gh.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on %s#%d: %w", repo, number, err)
	}
	return nil
}
