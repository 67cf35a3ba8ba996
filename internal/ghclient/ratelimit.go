package ghclient

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/spiffcs/stalebot/internal/constants"
	"github.com/spiffcs/stalebot/internal/log"
)

// ErrRateLimited is returned once GitHub reports the token's quota as
// exhausted. Requests fail fast with it until the reset time passes.
var ErrRateLimited = errors.New("GitHub API rate limit exceeded")

// RateLimitState tracks the quota reported by the most recent response.
// It is safe for concurrent use.
type RateLimitState struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   time.Time
	limited   bool
	now       func() time.Time
}

// NewRateLimitState returns a state with no observations.
func NewRateLimitState() *RateLimitState {
	return &RateLimitState{remaining: -1, limit: -1, now: time.Now}
}

// Update records the quota from a response.
func (s *RateLimitState) Update(remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.resetAt = resetAt
}

// SetLimited marks the quota as exhausted until resetAt.
func (s *RateLimitState) SetLimited(limited bool, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = limited
	if !resetAt.IsZero() {
		s.resetAt = resetAt
	}
}

// IsLimited reports whether requests should fail fast. The flag clears
// itself once the reset time has passed.
func (s *RateLimitState) IsLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limited && !s.resetAt.IsZero() && !s.now().Before(s.resetAt) {
		s.limited = false
	}
	return s.limited
}

// RateLimitSnapshot is a point-in-time copy of the tracked quota.
// Remaining and Limit are -1 before any response was observed.
type RateLimitSnapshot struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
	Limited   bool
}

// Low reports whether the remaining quota is at or below the watermark.
func (s RateLimitSnapshot) Low() bool {
	return s.Remaining >= 0 && s.Remaining <= constants.RateLimitLowWatermark
}

// Snapshot returns the current quota.
func (s *RateLimitState) Snapshot() RateLimitSnapshot {
	limited := s.IsLimited()
	s.mu.Lock()
	defer s.mu.Unlock()
	return RateLimitSnapshot{
		Remaining: s.remaining,
		Limit:     s.limit,
		ResetAt:   s.resetAt,
		Limited:   limited,
	}
}

// rateLimitTransport wraps an http.RoundTripper to handle GitHub rate limits
type rateLimitTransport struct {
	base  http.RoundTripper
	state *RateLimitState
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Check if we're already rate limited before making the request
	if t.state.IsLimited() {
		return nil, ErrRateLimited
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	remaining, limit, resetAt := parseRateLimitHeaders(resp)
	if remaining >= 0 && limit > 0 {
		t.state.Update(remaining, limit, resetAt)
	}

	if remaining <= constants.RateLimitLowWatermark && remaining > 0 {
		log.Debug("rate limit low", "remaining", remaining, "resets_at", resetAt.Format(time.RFC3339))
	}

	// Handle rate limit responses (403 with rate limit exceeded or 429)
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			t.state.SetLimited(true, resetAt)
			_ = resp.Body.Close()
			return nil, ErrRateLimited
		}
	}

	return resp, nil
}

// parseRateLimitHeaders extracts rate limit info from response headers.
func parseRateLimitHeaders(resp *http.Response) (remaining, limit int, resetAt time.Time) {
	remaining = -1
	limit = -1

	if remainingStr := resp.Header.Get("X-RateLimit-Remaining"); remainingStr != "" {
		if rem, err := strconv.Atoi(remainingStr); err == nil {
			remaining = rem
		}
	}

	if limitStr := resp.Header.Get("X-RateLimit-Limit"); limitStr != "" {
		if lim, err := strconv.Atoi(limitStr); err == nil {
			limit = lim
		}
	}

	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetTime, 0)
		}
	}

	return remaining, limit, resetAt
}
