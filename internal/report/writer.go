package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/registry"
	"github.com/nao1215/bygglarm/internal/watch"
)

// Writer defines the interface for report output.
type Writer interface {
	// WriteCases outputs the new cases of a watch run.
	WriteCases(results []watch.JobResult) (int, error)

	// WriteCrawl outputs the summary of a crawl run and the crawl state after it.
	WriteCrawl(result *addresses.CrawlResult, stats *model.CrawlStats) (int, error)

	// WriteStats outputs the crawl state.
	WriteStats(stats *model.CrawlStats) (int, error)
}

// Format is a report output format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// FormatFor returns the format selected by the --json and --markdown flags.
func FormatFor(jsonReport, markdownReport bool) Format {
	switch {
	case jsonReport:
		return FormatJSON
	case markdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// NewWriter returns a Writer for format that outputs to output.
func NewWriter(format Format, output io.Writer) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to multiple Writers. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteCases outputs the watch results to all configured Writers.
func (m *MultiWriter) WriteCases(results []watch.JobResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteCases(results) })
}

// WriteCrawl outputs the crawl summary to all configured Writers.
func (m *MultiWriter) WriteCrawl(result *addresses.CrawlResult, stats *model.CrawlStats) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteCrawl(result, stats) })
}

// WriteStats outputs the crawl state to all configured Writers.
func (m *MultiWriter) WriteStats(stats *model.CrawlStats) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteStats(stats) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// AtomicFile collects a report in memory. Commit replaces the file at its
// path with the collected bytes in one rename.
type AtomicFile struct {
	path string
	buf  bytes.Buffer
}

// NewAtomicFile returns an AtomicFile for path.
func NewAtomicFile(path string) *AtomicFile {
	return &AtomicFile{path: path}
}

// Write implements io.Writer.
func (f *AtomicFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

// Commit writes the collected bytes to the file, creating its directory.
func (f *AtomicFile) Commit() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(f.buf.Bytes())); err != nil {
		return fmt.Errorf("failed to write report %s: %w", f.path, err)
	}
	return nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// queryStatuses lists statuses in report order.
var queryStatuses = []model.QueryStatus{
	model.QueryTBD,
	model.QueryExpandOnly,
	model.QueryDeadEnd,
	model.QueryLeaf,
	model.QueryExpanded,
}

// entryTypes lists entry types in report order.
var entryTypes = []model.EntryType{
	model.EntryStreet,
	model.EntryProperty,
	model.EntryUnknown,
}

// describeSearch returns a one line description of a watchjob search.
func describeSearch(s registry.Search) string {
	var parts []string
	if s.Address != "" {
		parts = append(parts, "street "+s.Address)
	}
	if s.Property != "" {
		parts = append(parts, "property "+s.Property)
	}
	if len(parts) == 0 {
		return "no search criteria"
	}
	return strings.Join(parts, ", ")
}

// countNew returns the number of new cases over all results.
func countNew(results []watch.JobResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Cases)
	}
	return n
}
