package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &moduleOptions{}

	rootCmd := &cobra.Command{
		Use:           "newsdesk",
		Short:         "Editorial workflow engine for a community radio newsroom",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "Storage driver (empty for in-memory, or sqlite)")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database DSN when --driver is set")
	rootCmd.PersistentFlags().StringVar(&opts.policy, "policy", "", "Task assignment policy (least_loaded or round_robin)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "Log level for engine output")

	rootCmd.AddCommand(newDemoCommand(opts))
	rootCmd.AddCommand(newMetricsCommand(opts))

	return rootCmd
}
