package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "stalebot",
		Short: "Remind maintainers about stale GitHub issues",
		Long: `A CLI tool and GitHub Action that comments on open issues which have
gone quiet. An issue is stale when neither the issue itself nor its most
recent timeline event changed within the configured number of days.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStale(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Add run flags to root command so `stalebot` and `stalebot run` work identically
	addRunFlags(rootCmd, opts)

	// Register subcommands
	rootCmd.AddCommand(NewCmdRun(opts))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())
	rootCmd.AddCommand(NewCmdRateLimit())

	return rootCmd
}
