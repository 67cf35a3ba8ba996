package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// ErrNoToken is returned when no token was supplied.
var ErrNoToken = errors.New("GitHub token not provided. Pass --token or set the GITHUB_TOKEN environment variable")

// Client wraps the GitHub REST and GraphQL APIs with the operations a
// stale run needs.
type Client struct {
	client     *gh.Client
	httpClient *http.Client
	graphqlURL string
	rate       *RateLimitState
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	graphqlURL string
}

// WithBaseURL points the REST client at another API root, e.g. a GitHub
// Enterprise server or a test server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		o.baseURL = u
	}
}

// WithGraphQLURL overrides the GraphQL endpoint.
func WithGraphQLURL(u string) Option {
	return func(o *clientOptions) {
		o.graphqlURL = u
	}
}

// NewClient creates a GitHub client authenticated with token. The token
// is only held by the oauth2 transport.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	o := clientOptions{graphqlURL: defaultGraphQLURL}
	for _, opt := range opts {
		opt(&o)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	// Wrap transport with rate limit handling
	rate := NewRateLimitState()
	tc.Transport = &rateLimitTransport{
		base:  tc.Transport,
		state: rate,
	}

	client := gh.NewClient(tc)
	if o.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", o.baseURL, err)
		}
		client.BaseURL = base
	}

	return &Client{
		client:     client,
		httpClient: tc,
		graphqlURL: o.graphqlURL,
		rate:       rate,
	}, nil
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limits: %w", err)
	}
	return limits, nil
}

// RateLimit returns the quota observed on the most recent response.
func (c *Client) RateLimit() RateLimitSnapshot {
	return c.rate.Snapshot()
}
