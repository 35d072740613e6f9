package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/bygglarm/internal/config"
)

// writeConfig writes a configuration file keeping the database in a temp
// dir and returns its path and the database dir.
func writeConfig(t *testing.T, extra string) (path, dbDir string) {
	t.Helper()

	dir := t.TempDir()
	dbDir = filepath.Join(dir, "data")
	path = filepath.Join(dir, "bygglarm.yaml")
	content := "dbDir: " + dbDir + "\n" + extra
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, dbDir
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// runLoadConfig runs loadConfig inside a command that defines the crawl flags.
func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var got *config.Config
	stub := &cobra.Command{
		Use: "stub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			got = cfg
			return err
		},
	}
	addHTTPFlags(stub)
	stub.Flags().Int("max-rows", config.DefaultMaxRows, "")
	addReportFlags(stub)

	root := NewRootCmd()
	root.AddCommand(stub)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"stub"}, args...))
	err := root.Execute()
	return got, err
}

func TestLoadConfig(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		path, dbDir := writeConfig(t, "http:\n  delay: 2s\naddresses:\n  maxRows: 20\n  separators: [\" \"]\n")

		cfg, err := runLoadConfig(t, "--config", path)
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.DBDir != dbDir || cfg.AvgDelay != 2*time.Second || cfg.MaxRows != 20 {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if len(cfg.Separators) != 1 {
			t.Errorf("expected one separator, got %q", cfg.Separators)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("expected config path %s, got %s", path, cfg.ConfigFilePath)
		}
	})

	t.Run("flags override file", func(t *testing.T) {
		path, _ := writeConfig(t, "http:\n  delay: 2s\naddresses:\n  maxRows: 20\n")

		cfg, err := runLoadConfig(t, "--config", path, "--max-rows", "30", "--db-dir", "/tmp/elsewhere", "-v")
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.MaxRows != 30 || cfg.DBDir != "/tmp/elsewhere" || !cfg.Verbose {
			t.Errorf("flags not applied: %+v", cfg)
		}
		if cfg.AvgDelay != 2*time.Second {
			t.Errorf("unset flag must not override the file, got delay %v", cfg.AvgDelay)
		}
	})

	t.Run("zero delay flag", func(t *testing.T) {
		path, _ := writeConfig(t, "")

		cfg, err := runLoadConfig(t, "--config", path, "--delay", "0")
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.AvgDelay != 0 {
			t.Errorf("expected zero delay, got %v", cfg.AvgDelay)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := runLoadConfig(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path, _ := writeConfig(t, "http: [unclosed\n")

		_, err := runLoadConfig(t, "--config", path)
		if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
			t.Errorf("expected load error, got %v", err)
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		path, _ := writeConfig(t, "")

		_, err := runLoadConfig(t, "--config", path, "--json", "--markdown")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("invalid file value", func(t *testing.T) {
		path, _ := writeConfig(t, "addresses:\n  maxRows: 1\n")

		_, err := runLoadConfig(t, "--config", path)
		if !errors.Is(err, config.ErrInvalidMaxRows) {
			t.Errorf("expected ErrInvalidMaxRows, got %v", err)
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("to file", func(t *testing.T) {
		path, dbDir := writeConfig(t, "")
		reportPath := filepath.Join(filepath.Dir(dbDir), "reports", "stats.md")

		stdout, stderr, err := execute(t, "stats", "--config", path, "--markdown", "-o", reportPath)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected no stdout, got %q", stdout)
		}
		if !strings.Contains(stderr, "Report written to") {
			t.Errorf("expected confirmation on stderr, got %q", stderr)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.HasPrefix(string(content), "# Address crawl statistics") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})

	t.Run("to stdout", func(t *testing.T) {
		path, _ := writeConfig(t, "")

		stdout, _, err := execute(t, "stats", "--config", path)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if !strings.Contains(stdout, "ADDRESS CRAWL STATISTICS") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})
}
