package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/config"
	"github.com/nao1215/bygglarm/internal/ratelimit"
	"github.com/nao1215/bygglarm/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the city map's address suggestions into the database",
		Long: `Crawl enumerates the streets and properties of the city map.

Every pending prefix is sent to the map's suggestion service. A prefix that
returns a full page of suggestions is extended by one character; the
characters come from the alphabet, which grows with every new character
seen in a result. Each resolved name becomes an entry with its numbers,
coordinates and bounding box.

Progress is stored after every prefix. Interrupting the crawl is safe; the
next run continues with the remaining prefixes, and a finished crawl makes
no requests. Only one crawl can run against a database at a time.

Examples:
  # Crawl with the default one-per-5s request pace
  bygglarm crawl

  # Crawl faster through a SOCKS5 proxy
  bygglarm crawl --delay 2s --proxy 127.0.0.1:9050

  # Write a Markdown summary
  bygglarm crawl --markdown -o crawl.md`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	addHTTPFlags(cmd)
	cmd.Flags().String("map-url", config.DefaultMapURL,
		"Host of the city map and its suggestion service")
	cmd.Flags().Int("max-rows", config.DefaultMaxRows,
		"Suggestions requested per prefix")
	cmd.Flags().Int("max-failures", config.DefaultMaxFailures,
		"Consecutive failed requests before giving up")
	addReportFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	ctx, stop := signalContext(cmd)
	defer stop()

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := newBrowser(cfg, logger)
	if err != nil {
		return err
	}

	crawler := addresses.NewCrawler(b, db,
		addresses.WithLimiter(ratelimit.NewRandomDelay(cfg.AvgDelay)),
		addresses.WithBaseURL(cfg.MapURL),
		addresses.WithMaxRows(cfg.MaxRows),
		addresses.WithMaxFailures(cfg.MaxFailures),
		addresses.WithAlphabet(cfg.Alphabet),
		addresses.WithSeparators(cfg.Separators),
		addresses.WithFoldCase(cfg.FoldCase),
		addresses.WithLockFile(filepath.Join(cfg.DBDir, addresses.LockFileName)),
		addresses.WithLogger(logger),
	)

	result, crawlErr := crawler.Search(ctx)
	if errors.Is(crawlErr, addresses.ErrCrawlLocked) {
		return crawlErr
	}
	if crawlErr != nil {
		logger.Error("crawl stopped", "error", crawlErr, "processed", result.Processed)
	}

	// The run summary is written for interrupted crawls too.
	stats, err := db.Stats(context.WithoutCancel(ctx))
	if err != nil {
		logger.Warn("failed to collect crawl statistics", "error", err)
		stats = nil
	}
	if err := writeReport(cmd, cfg, func(w report.Writer) (int, error) {
		return w.WriteCrawl(result, stats)
	}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	return nil
}

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the state of the address crawl",
		Long: `Stats summarises the crawl database: prefixes per status, entries per
type, numbers, learned characters and stored raw suggestions.

Examples:
  bygglarm stats
  bygglarm stats --json`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	addReportFlags(cmd)

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
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

	stats, err := db.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return writeReport(cmd, cfg, func(w report.Writer) (int, error) {
		return w.WriteStats(stats)
	})
}

