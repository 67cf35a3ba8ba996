package ghclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spiffcs/stalebot/internal/model"
)

type lastEventResponse struct {
	Repository *struct {
		IssueOrPullRequest *struct {
			TimelineItems *struct {
				TotalCount int        `json:"totalCount"`
				UpdatedAt  *time.Time `json:"updatedAt"`
			} `json:"timelineItems"`
		} `json:"issueOrPullRequest"`
	} `json:"repository"`
}

// LastTimelineEvent reads when the most recent timeline event of an issue
// happened. Board moves, labels, references and comments all count. An
// issue without events yields a signal with no timestamp.
func (c *Client) LastTimelineEvent(ctx context.Context, repo model.Repository, number int) (model.TimelineSignal, error) {
	data, err := c.executeGraphQL(ctx, lastEventQuery, map[string]any{
		"owner":  repo.Owner,
		"name":   repo.Name,
		"number": number,
	})
	if err != nil {
		return model.TimelineSignal{}, fmt.Errorf("failed to read timeline of %s#%d: %w", repo, number, err)
	}
	return parseLastEvent(data)
}

func parseLastEvent(data json.RawMessage) (model.TimelineSignal, error) {
	var resp lastEventResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.TimelineSignal{}, fmt.Errorf("failed to parse timeline response: %w", err)
	}

	if resp.Repository == nil || resp.Repository.IssueOrPullRequest == nil {
		return model.TimelineSignal{}, nil
	}
	items := resp.Repository.IssueOrPullRequest.TimelineItems
	if items == nil || items.TotalCount == 0 || items.UpdatedAt == nil {
		return model.TimelineSignal{}, nil
	}
	return model.TimelineSignal{LastEventAt: items.UpdatedAt}, nil
}
