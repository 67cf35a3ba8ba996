package stale

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spiffcs/stalebot/internal/model"
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory API. Pages are keyed by their 1 indexed number.
type fakeAPI struct {
	mu sync.Mutex

	issuePages    map[int][]model.Issue
	issuePageErrs map[int]error

	cards    map[int64]map[int][]model.Card
	cardErrs map[int64]error

	events        map[int]time.Time
	timelineErrs  map[int]error
	timelineCalls []int

	commentErrs map[int]error
	comments    map[int]string
	// onComment runs after a comment is recorded.
	onComment func(number int)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		issuePages:    make(map[int][]model.Issue),
		issuePageErrs: make(map[int]error),
		cards:         make(map[int64]map[int][]model.Card),
		cardErrs:      make(map[int64]error),
		events:        make(map[int]time.Time),
		timelineErrs:  make(map[int]error),
		commentErrs:   make(map[int]error),
		comments:      make(map[int]string),
	}
}

func (f *fakeAPI) ListOpenIssues(_ context.Context, _ model.Repository, page, _ int) ([]model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.issuePageErrs[page]; err != nil {
		return nil, err
	}
	return f.issuePages[page], nil
}

func (f *fakeAPI) ListColumnCards(_ context.Context, columnID int64, page, _ int) ([]model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cardErrs[columnID]; err != nil {
		return nil, err
	}
	return f.cards[columnID][page], nil
}

func (f *fakeAPI) LastTimelineEvent(_ context.Context, _ model.Repository, number int) (model.TimelineSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelineCalls = append(f.timelineCalls, number)
	if err := f.timelineErrs[number]; err != nil {
		return model.TimelineSignal{}, err
	}
	at, ok := f.events[number]
	if !ok {
		return model.TimelineSignal{}, nil
	}
	return model.TimelineSignal{LastEventAt: &at}, nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, _ model.Repository, number int, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if err := f.commentErrs[number]; err != nil {
		f.mu.Unlock()
		return err
	}
	f.comments[number] = body
	f.mu.Unlock()

	if f.onComment != nil {
		f.onComment(number)
	}
	return nil
}

func (f *fakeAPI) commentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

func (f *fakeAPI) addCards(columnID int64, page int, cards ...model.Card) {
	if f.cards[columnID] == nil {
		f.cards[columnID] = make(map[int][]model.Card)
	}
	f.cards[columnID][page] = append(f.cards[columnID][page], cards...)
}

func (f *fakeAPI) timelineCalled(number int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.timelineCalls {
		if n == number {
			return true
		}
	}
	return false
}

var testRepo = model.Repository{Owner: "acme", Name: "widgets"}

// date returns noon UTC on the given day.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func issueURL(number string) string {
	return "https://api.github.com/repos/acme/widgets/issues/" + number
}
