package stale

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/log"
	"github.com/spiffcs/stalebot/internal/model"
	"github.com/spiffcs/stalebot/internal/urlutil"
	"golang.org/x/sync/errgroup"
)

// ExclusionSet holds the decimal issue numbers referenced by cards in the
// ignored columns.
type ExclusionSet map[string]struct{}

// Contains reports whether the issue is referenced by an ignored card.
func (s ExclusionSet) Contains(issue model.Issue) bool {
	_, ok := s[issue.Key()]
	return ok
}

// Sorted returns the members in numeric order.
func (s ExclusionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// SplitColumns splits a comma-separated column list, trimming whitespace
// and dropping empty entries such as the one after a trailing comma.
func SplitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ParseColumns converts column identifiers to project column IDs.
func ParseColumns(columns []string) ([]int64, error) {
	ids := make([]int64, 0, len(columns))
	for _, c := range columns {
		id, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid column id %q", c)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExclusionBuild is the result of reading the ignored columns.
type ExclusionBuild struct {
	Set    ExclusionSet
	Cards  int
	Errors []error
}

// BuildExclusionSet reads up to constants.MaxCardPages pages of
// non-archived cards from every column concurrently and collects the
// issue numbers they reference. Cards whose content URL has no trailing
// number (notes) are skipped. A failed page contributes nothing and is
// reported in Errors.
func BuildExclusionSet(ctx context.Context, lister CardLister, columns []int64) *ExclusionBuild {
	result := &ExclusionBuild{Set: make(ExclusionSet)}
	if len(columns) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MaxConcurrentFetches)

	for _, columnID := range columns {
		for i := 0; i < constants.MaxCardPages; i++ {
			page := i + 1 // pages are 1 indexed
			g.Go(func() error {
				cards, err := lister.ListColumnCards(gctx, columnID, page, constants.CardsPerPage)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Errors = append(result.Errors, &FetchError{
						Source: fmt.Sprintf("column %d", columnID),
						Page:   page,
						Err:    err,
					})
					return nil
				}
				result.Cards += len(cards)
				for _, card := range cards {
					number, ok := urlutil.TrailingNumber(card.ContentURL)
					if !ok {
						log.Trace("card references no issue", "column", columnID, "card", card.ID)
						continue
					}
					result.Set[number] = struct{}{}
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	return result
}

// Subtract returns the issues not referenced by the set, preserving order.
func Subtract(issues []model.Issue, set ExclusionSet) (kept []model.Issue, excluded int) {
	kept = make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		if set.Contains(issue) {
			excluded++
			continue
		}
		kept = append(kept, issue)
	}
	return kept, excluded
}
