package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spf13/cobra"
	"github.com/spiffcs/stalebot/config"
	"github.com/spiffcs/stalebot/internal/ghclient"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Check GitHub API rate limit status",
		Long:  `Display current GitHub API rate limit status including remaining quota and reset time.`,
	}
	cmd.AddCommand(NewCmdRateLimitStatus())
	return cmd
}

// NewCmdRateLimitStatus creates the ratelimit status subcommand.
func NewCmdRateLimitStatus() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current rate limit status",
		Long: `Display the current GitHub API rate limit status for the REST (core) and
GraphQL APIs, the two a run draws from.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRateLimitStatus(cmd, token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "GitHub token (default: $INPUT_TOKEN or $GITHUB_TOKEN)")
	return cmd
}

func runRateLimitStatus(cmd *cobra.Command, token string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	token = firstNonEmpty(token, os.Getenv(config.EnvInputToken), os.Getenv(config.EnvGitHubToken))

	client, err := ghclient.NewClient(cmd.Context(), token, clientOptions(os.Getenv)...)
	if err != nil {
		return err
	}

	limits, err := client.RateLimits(cmd.Context())
	if err != nil {
		return err
	}

	printRateLimits(cmd.OutOrStdout(), limits, time.Now())
	return nil
}

func printRateLimits(w io.Writer, limits *gh.RateLimits, now time.Time) {
	fmt.Fprintln(w, "GitHub API Rate Limits:")
	fmt.Fprintln(w)

	printRate(w, "Core API:", limits.GetCore(), now)
	printRate(w, "GraphQL:", limits.GetGraphQL(), now)
}

func printRate(w io.Writer, label string, rate *gh.Rate, now time.Time) {
	if rate == nil {
		return
	}
	resetIn := rate.Reset.Time.Sub(now).Round(time.Second)
	if resetIn < 0 {
		resetIn = 0
	}
	fmt.Fprintf(w, "%-11s %d/%d remaining (resets in %s)\n", label, rate.Remaining, rate.Limit, resetIn)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
