package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/bygglarm/internal/browser"
	"github.com/nao1215/bygglarm/internal/config"
	"github.com/nao1215/bygglarm/internal/database"
	logging "github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/report"
)

// addHTTPFlags registers the request flags shared by commands that go online.
func addHTTPFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("delay", "d", config.DefaultAvgDelay,
		"Average delay between requests (0 disables the delay)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
}

// addReportFlags registers the report format and destination flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// loadConfig builds the configuration for cmd: defaults, then the
// configuration file, then the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	path, err := stringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the default locations are optional.
	if found := config.FindConfigFile(path); found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		file.Apply(cfg)
		cfg.ConfigFilePath = found
	} else if path != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies the flags that were set on the command line into cfg.
// Flags a command does not define are ignored.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := flags.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}

	set("verbose", func() (e error) { cfg.Verbose, e = flags.GetBool("verbose"); return })
	set("log-json", func() (e error) { cfg.LogJSON, e = flags.GetBool("log-json"); return })
	set("db-dir", func() (e error) { cfg.DBDir, e = flags.GetString("db-dir"); return })

	set("delay", func() (e error) { cfg.AvgDelay, e = flags.GetDuration("delay"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("proxy", func() (e error) { cfg.ProxyAddress, e = flags.GetString("proxy"); return })
	set("user-agent", func() (e error) { cfg.UserAgent, e = flags.GetString("user-agent"); return })

	set("registry-url", func() (e error) { cfg.RegistryURL, e = flags.GetString("registry-url"); return })
	set("max-pages", func() (e error) { cfg.MaxPages, e = flags.GetInt("max-pages"); return })
	set("concurrency", func() (e error) { cfg.Concurrency, e = flags.GetInt("concurrency"); return })
	set("schedule", func() (e error) { cfg.Schedule, e = flags.GetString("schedule"); return })

	set("map-url", func() (e error) { cfg.MapURL, e = flags.GetString("map-url"); return })
	set("max-rows", func() (e error) { cfg.MaxRows, e = flags.GetInt("max-rows"); return })
	set("max-failures", func() (e error) { cfg.MaxFailures, e = flags.GetInt("max-failures"); return })

	set("json", func() (e error) { cfg.JSONReport, e = flags.GetBool("json"); return })
	set("markdown", func() (e error) { cfg.MarkdownReport, e = flags.GetBool("markdown"); return })
	set("output", func() (e error) { cfg.ReportFile, e = flags.GetString("output"); return })

	return err
}

// stringFlag returns the value of a flag, or "" when cmd does not define it.
func stringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	return cmd.Flags().GetString(name)
}

// setupLogger creates the logger for cfg and makes it the default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
	})
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on interrupt or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openDB opens the database in the configured directory, creating it if needed.
func openDB(cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// newBrowser creates a browser session with the configured transport settings.
func newBrowser(cfg *config.Config, logger *slog.Logger) (*browser.Browser, error) {
	b, err := browser.New(
		browser.WithProxy(cfg.ProxyAddress),
		browser.WithTimeout(cfg.Timeout),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithMaxBodySize(cfg.MaxBodySize),
		browser.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	return b, nil
}

// newReportWriter returns the writer for the configured report format.
func newReportWriter(cfg *config.Config, output io.Writer, opts ...report.SimpleWriterOption) report.Writer {
	format := report.FormatFor(cfg.JSONReport, cfg.MarkdownReport)
	if format == report.FormatText {
		return report.NewSimpleWriter(output, opts...)
	}
	return report.NewWriter(format, output)
}

// writeReport writes a report to the configured file, replacing it
// atomically, or to the command's output.
func writeReport(cmd *cobra.Command, cfg *config.Config, write func(report.Writer) (int, error), opts ...report.SimpleWriterOption) error {
	if cfg.ReportFile == "" {
		_, err := write(newReportWriter(cfg, cmd.OutOrStdout(), opts...))
		return err
	}

	file := report.NewAtomicFile(cfg.ReportFile)
	if _, err := write(newReportWriter(cfg, file, opts...)); err != nil {
		return err
	}
	if err := file.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	return nil
}
