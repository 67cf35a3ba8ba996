package ghclient

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
)

// ListColumnCards fetches one page of non-archived cards in a classic
// project column.
func (c *Client) ListColumnCards(ctx context.Context, columnID int64, page, perPage int) ([]model.Card, error) {
	opts := &gh.ProjectCardListOptions{
		ArchivedState: gh.String(constants.ArchivedStateNotArchived),
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	log.Debug("listing column cards", "column", columnID, "page", page)
	result, _, err := c.client.Projects.ListProjectCards(ctx, columnID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards of column %d: %w", columnID, err)
	}

	cards := make([]model.Card, 0, len(result))
	for _, card := range result {
		cards = append(cards, model.Card{
			ID:         card.GetID(),
			ColumnID:   columnID,
			ContentURL: card.GetContentURL(),
		})
	}
	return cards, nil
}
