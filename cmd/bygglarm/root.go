package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for bygglarm.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bygglarm",
		Short: "Building permit alerts and address crawling for Stockholm",
		Long: `bygglarm watches the Stockholm building permit registry for new cases.

Watchjobs are saved street or property searches. Each run reports the cases
registered since the previous run and remembers the newest one.

The crawl command enumerates every street and property known to the city map
through its address suggestion service, one prefix at a time, and stores the
result in the local database. An interrupted crawl resumes where it stopped.

Settings are read from .bygglarm in the current or home directory.
Run "bygglarm init" to create one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .bygglarm in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the bygglarm database (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
