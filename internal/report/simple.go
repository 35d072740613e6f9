package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/watch"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether jobs without new cases are listed.
	showEmpty bool

	// verbose adds case descriptions.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list jobs without new cases.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables case descriptions in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCases outputs the watch results as text.
func (w *SimpleWriter) WriteCases(results []watch.JobResult) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "NEW BUILDING PERMIT CASES")
	fmt.Fprintf(&sb, "Watchjobs: %d\n", len(results))
	fmt.Fprintf(&sb, "New cases: %d\n\n", countNew(results))

	for _, r := range results {
		if len(r.Cases) == 0 && r.Err == nil && !w.showEmpty {
			continue
		}
		w.writeJob(&sb, r)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeJob(sb *strings.Builder, r watch.JobResult) {
	writeSection(sb, fmt.Sprintf("WATCHJOB %d: %s", r.Job.ID, describeSearch(r.Search)))

	if r.Err != nil {
		fmt.Fprintf(sb, "  FAILED: %s\n\n", r.Error)
		return
	}
	if len(r.Cases) == 0 {
		sb.WriteString("  No new cases\n\n")
		return
	}

	for _, c := range r.Cases {
		fmt.Fprintf(sb, "  * %s  %s  %s\n", c.ID, c.Date, c.CaseType)
		fmt.Fprintf(sb, "    Property: %s\n", c.Property)
		if w.verbose && c.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", c.Description)
		}
	}
	if r.Truncated {
		sb.WriteString("  (page limit reached, older cases were skipped)\n")
	}
	fmt.Fprintf(sb, "  Watermark: %s\n\n", r.Watermark)
}

// WriteCrawl outputs the crawl summary and state as text.
func (w *SimpleWriter) WriteCrawl(result *addresses.CrawlResult, stats *model.CrawlStats) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "ADDRESS CRAWL")
	fmt.Fprintf(&sb, "Run:       %s\n", result.RunID)
	fmt.Fprintf(&sb, "Elapsed:   %s\n\n", result.Elapsed.Round(time.Second))

	writeSection(&sb, "THIS RUN")
	fmt.Fprintf(&sb, "  Queries processed:  %d\n", result.Processed)
	fmt.Fprintf(&sb, "    dead end:         %d\n", result.DeadEnds)
	fmt.Fprintf(&sb, "    leaf:             %d\n", result.Leaves)
	fmt.Fprintf(&sb, "    expanded:         %d\n", result.Expanded)
	fmt.Fprintf(&sb, "    full entry:       %d\n", result.ExpandOnly)
	fmt.Fprintf(&sb, "  New queries:        %d\n", result.NewQueries)
	fmt.Fprintf(&sb, "  New entries:        %d\n", result.NewEntries)
	fmt.Fprintf(&sb, "  New numbers:        %d\n", result.NewNumbers)
	fmt.Fprintf(&sb, "  Duplicates:         %d\n", result.Duplicates)
	fmt.Fprintf(&sb, "  Unresolved names:   %d\n", result.Unresolved)
	fmt.Fprintf(&sb, "  Failed requests:    %d\n", result.Failures)
	if len(result.LearnedCharacters) > 0 {
		fmt.Fprintf(&sb, "  Learned characters: %q\n", strings.Join(result.LearnedCharacters, ""))
	}
	sb.WriteString("\n")

	if stats != nil {
		writeStatsBody(&sb, stats)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// WriteStats outputs the crawl state as text.
func (w *SimpleWriter) WriteStats(stats *model.CrawlStats) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "ADDRESS CRAWL STATISTICS")
	fmt.Fprintf(&sb, "Generated: %s\n\n", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	writeStatsBody(&sb, stats)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func writeStatsBody(sb *strings.Builder, stats *model.CrawlStats) {
	writeSection(sb, "QUERIES")
	for _, s := range queryStatuses {
		fmt.Fprintf(sb, "  %-12s %d\n", s.String()+":", stats.Queries[s])
	}
	fmt.Fprintf(sb, "  %-12s %d\n", "TOTAL:", stats.TotalQueries())
	fmt.Fprintf(sb, "  Pending full-entry queries: %d\n", stats.PendingFullEntries)
	if stats.Complete() {
		sb.WriteString("  Status: complete\n")
	} else {
		sb.WriteString("  Status: in progress\n")
	}
	sb.WriteString("\n")

	writeSection(sb, "ENTRIES")
	for _, t := range entryTypes {
		fmt.Fprintf(sb, "  %-12s %d\n", t.String()+":", stats.Entries[t])
	}
	fmt.Fprintf(sb, "  %-12s %d\n", "numbers:", stats.Numbers)
	fmt.Fprintf(sb, "  %-12s %d\n", "characters:", stats.Characters)
	fmt.Fprintf(sb, "  %-12s %d (%d repeated)\n", "raw rows:", stats.RawEntries, stats.DuplicateRawEntries)
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}
