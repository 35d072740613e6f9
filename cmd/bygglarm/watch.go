package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/bygglarm/internal/config"
	"github.com/nao1215/bygglarm/internal/database"
	"github.com/nao1215/bygglarm/internal/ratelimit"
	"github.com/nao1215/bygglarm/internal/registry"
	"github.com/nao1215/bygglarm/internal/report"
	"github.com/nao1215/bygglarm/internal/watch"
)

// NewWatchCmd creates the watch command and its subcommands.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage and run building permit watchjobs",
		Long: `A watchjob is a saved registry search by street address, property
designation, or both. Running the watchjobs reports every case registered
since the previous run.`,
	}

	cmd.AddCommand(newWatchAddCmd())
	cmd.AddCommand(newWatchListCmd())
	cmd.AddCommand(newWatchRemoveCmd())
	cmd.AddCommand(newWatchRunCmd())

	return cmd
}

func newWatchAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a watchjob",
		Long: `Add saves a registry search. At least one of --street and --property is required.

Examples:
  bygglarm watch add --street "Brunnsgatan 1"
  bygglarm watch add --property "Kv Tegelbruket 1:1"`,
		Args: cobra.NoArgs,
		RunE: runWatchAddCmd,
	}

	cmd.Flags().String("street", "", "Street address to search for")
	cmd.Flags().String("property", "", "Property designation to search for")

	return cmd
}

// runWatchAddCmd executes the watch add command.
func runWatchAddCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	var search registry.Search
	if search.Address, err = cmd.Flags().GetString("street"); err != nil {
		return err
	}
	if search.Property, err = cmd.Flags().GetString("property"); err != nil {
		return err
	}
	if err := search.Validate(); err != nil {
		if errors.Is(err, registry.ErrEmptySearch) {
			return fmt.Errorf("%w: use --street or --property", err)
		}
		return err
	}

	query, err := json.Marshal(search)
	if err != nil {
		return fmt.Errorf("failed to encode search: %w", err)
	}

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := db.AddWatchjob(cmd.Context(), string(query))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added watchjob %d: %s\n", job.ID, job.Query)
	return nil
}

func newWatchListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watchjobs",
		Args:  cobra.NoArgs,
		RunE:  runWatchListCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output watchjobs as JSON")

	return cmd
}

// runWatchListCmd executes the watch list command.
func runWatchListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := db.Watchjobs(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.JSONReport {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(jobs)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No watchjobs. Add one with: bygglarm watch add --street <address>")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAST CASE\tCREATED\tQUERY")
	for _, job := range jobs {
		last := job.LastCaseID
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", job.ID, last, job.CreatedAt.Format("2006-01-02 15:04"), job.Query)
	}
	return tw.Flush()
}

func newWatchRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a watchjob",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchRemoveCmd,
	}
}

// runWatchRemoveCmd executes the watch remove command.
func runWatchRemoveCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid watchjob id %q", args[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RemoveWatchjob(cmd.Context(), id); err != nil {
		if errors.Is(err, database.ErrWatchjobNotFound) {
			return fmt.Errorf("watchjob %d not found", id)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed watchjob %d\n", id)
	return nil
}

func newWatchRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all watchjobs and report new cases",
		Long: `Run searches the registry for every watchjob and reports the cases
registered since the previous run. The newest case of each job is stored so
the next run starts after it. A job that fails keeps its previous position
and is retried on the next run.

With --schedule the jobs run on a cron schedule until interrupted.

Examples:
  # Run once
  bygglarm watch run

  # Run every morning at 7 and write a Markdown report
  bygglarm watch run --schedule "0 7 * * *" --markdown -o cases.md

  # Run every six hours
  bygglarm watch run --schedule "@every 6h"`,
		Args: cobra.NoArgs,
		RunE: runWatchRunCmd,
	}

	addHTTPFlags(cmd)
	cmd.Flags().String("registry-url", config.DefaultRegistryURL,
		"Case search page of the registry")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of watchjobs searched at the same time")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum result pages per search. A capped search still advances the watermark,\n"+
			"so cases past the cap are skipped; 0 means no limit and delivers every new case")
	cmd.Flags().StringP("schedule", "s", "",
		`Cron schedule, e.g. "0 7 * * *" or "@every 6h"`)
	cmd.Flags().Bool("show-empty", false,
		"List watchjobs without new cases in text reports")
	addReportFlags(cmd)

	return cmd
}

// runWatchRunCmd executes the watch run command.
func runWatchRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	showEmpty, err := cmd.Flags().GetBool("show-empty")
	if err != nil {
		return err
	}

	if cfg.Schedule != "" {
		if _, err := watch.ParseSchedule(cfg.Schedule); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := watch.NewRunner(db, sourceFactory(cfg, logger),
		watch.WithConcurrency(cfg.Concurrency),
		watch.WithLogger(logger),
	)

	runOnce := func(ctx context.Context) error {
		results, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		return writeReport(cmd, cfg, func(w report.Writer) (int, error) {
			return w.WriteCases(results)
		}, report.WithShowEmpty(showEmpty), report.WithVerbose(cfg.Verbose))
	}

	if cfg.Schedule == "" {
		return runOnce(ctx)
	}

	return watch.RunScheduled(ctx, cfg.Schedule, logger, func(ctx context.Context) {
		if err := runOnce(ctx); err != nil {
			logger.Error("watch run failed", "error", err)
		}
	})
}

// sourceFactory returns a factory creating a registry watcher with its own
// browser session for every watchjob.
func sourceFactory(cfg *config.Config, logger *slog.Logger) watch.SourceFactory {
	return func() (watch.CaseSource, error) {
		b, err := newBrowser(cfg, logger)
		if err != nil {
			return nil, err
		}
		return registry.NewWatcher(b,
			registry.WithLimiter(ratelimit.NewRandomDelay(cfg.AvgDelay)),
			registry.WithURL(cfg.RegistryURL),
			registry.WithMaxPages(cfg.MaxPages),
			registry.WithLogger(logger),
		), nil
	}
}
