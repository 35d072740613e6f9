package main

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/nao1215/bygglarm/internal/config"
)

//go:embed templates/bygglarm.yaml
var configTemplate embed.FS

// templatePath is the embedded configuration template.
const templatePath = "templates/bygglarm.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new bygglarm configuration file",
		Long: `Initialize creates a new .bygglarm configuration file in the current directory.

The generated file includes:
- The registry and map endpoints
- Request pacing, timeouts and an optional SOCKS5 proxy
- The watch schedule and the crawl alphabet

Examples:
  # Create .bygglarm in current directory
  bygglarm init

  # Create config file at a specific path
  bygglarm init -o myconfig.yaml

  # Force overwrite existing file
  bygglarm init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := atomic.WriteFile(outputPath, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := os.Chmod(outputPath, 0600); err != nil {
		return fmt.Errorf("failed to set configuration file permissions: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Request delay and proxy")
	fmt.Fprintln(out, "  - Watch schedule and concurrency")
	fmt.Fprintln(out, "  - Crawl alphabet and separators")

	return nil
}
