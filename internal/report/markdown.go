package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/watch"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCases outputs the watch results in Markdown format.
func (w *MarkdownWriter) WriteCases(results []watch.JobResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("New building permit cases")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Watchjobs", "New cases"},
		Rows:   [][]string{{strconv.Itoa(len(results)), strconv.Itoa(countNew(results))}},
	})
	md.PlainText("")

	for _, r := range results {
		w.writeJob(md, r)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeJob(md *markdown.Markdown, r watch.JobResult) {
	md.H2(fmt.Sprintf("Watchjob %d: %s", r.Job.ID, describeSearch(r.Search)))
	md.PlainText("")

	if r.Err != nil {
		md.Warningf("The search failed and will be retried on the next run: %s", r.Error)
		md.PlainText("")
		return
	}
	if len(r.Cases) == 0 {
		md.PlainText("No new cases.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(r.Cases))
	for i, c := range r.Cases {
		rows[i] = []string{
			"`" + c.ID + "`",
			c.Date,
			c.CaseType,
			escapeCell(c.Property),
			escapeCell(truncateString(c.Description, 80)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Case", "Date", "Type", "Property", "Description"},
		Rows:   rows,
	})
	md.PlainText("")

	if r.Truncated {
		md.Note("The page limit was reached; older cases were not fetched.")
		md.PlainText("")
	}
}

// WriteCrawl outputs the crawl summary and state in Markdown format.
func (w *MarkdownWriter) WriteCrawl(result *addresses.CrawlResult, stats *model.CrawlStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Address crawl")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + result.RunID + "`"},
			{"Elapsed", result.Elapsed.Round(time.Second).String()},
			{"Queries processed", strconv.Itoa(result.Processed)},
			{"Dead ends", strconv.Itoa(result.DeadEnds)},
			{"Leaves", strconv.Itoa(result.Leaves)},
			{"Expanded", strconv.Itoa(result.Expanded)},
			{"Full-entry expansions", strconv.Itoa(result.ExpandOnly)},
			{"New queries", strconv.Itoa(result.NewQueries)},
			{"New entries", strconv.Itoa(result.NewEntries)},
			{"New numbers", strconv.Itoa(result.NewNumbers)},
			{"Duplicates", strconv.Itoa(result.Duplicates)},
			{"Unresolved names", strconv.Itoa(result.Unresolved)},
			{"Failed requests", strconv.Itoa(result.Failures)},
		},
	})
	md.PlainText("")

	if len(result.LearnedCharacters) > 0 {
		md.H3("Learned characters")
		md.PlainText("")
		chars := make([]string, len(result.LearnedCharacters))
		for i, c := range result.LearnedCharacters {
			chars[i] = "`" + strconv.Quote(c) + "`"
		}
		md.BulletList(chars...)
		md.PlainText("")
	}

	if stats != nil {
		w.writeStats(md, stats)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteStats outputs the crawl state in Markdown format.
func (w *MarkdownWriter) WriteStats(stats *model.CrawlStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Address crawl statistics")
	md.PlainText("")
	md.PlainTextf("Generated %s.", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	w.writeStats(md, stats)
	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeStats(md *markdown.Markdown, stats *model.CrawlStats) {
	md.H2("Queries")
	md.PlainText("")

	rows := make([][]string, 0, len(queryStatuses)+1)
	for _, s := range queryStatuses {
		rows = append(rows, []string{s.String(), strconv.Itoa(stats.Queries[s])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(stats.TotalQueries()) + "**"})
	md.Table(markdown.TableSet{Header: []string{"Status", "Count"}, Rows: rows})
	md.PlainText("")

	if stats.TotalQueries() > 0 {
		w.writePieChart(md, stats)
	}

	if stats.Complete() {
		md.Tip("The crawl is complete: no query is pending.")
	} else {
		md.Importantf("The crawl is in progress: %d queries are pending, %d of them full-entry queries.",
			stats.Queries[model.QueryTBD]+stats.Queries[model.QueryExpandOnly], stats.PendingFullEntries)
	}
	md.PlainText("")

	md.H2("Entries")
	md.PlainText("")
	entryRows := make([][]string, 0, len(entryTypes)+4)
	for _, t := range entryTypes {
		entryRows = append(entryRows, []string{t.String(), strconv.Itoa(stats.Entries[t])})
	}
	entryRows = append(entryRows,
		[]string{"numbers", strconv.Itoa(stats.Numbers)},
		[]string{"characters", strconv.Itoa(stats.Characters)},
		[]string{"raw rows", strconv.Itoa(stats.RawEntries)},
		[]string{"repeated raw rows", strconv.Itoa(stats.DuplicateRawEntries)},
	)
	md.Table(markdown.TableSet{Header: []string{"Kind", "Count"}, Rows: entryRows})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the query status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats *model.CrawlStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Query status distribution"),
		piechart.WithShowData(true),
	)
	for _, s := range queryStatuses {
		if n := stats.Queries[s]; n > 0 {
			chart.LabelAndIntValue(s.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [bygglarm](https://github.com/nao1215/bygglarm)*")
}

// escapeCell keeps free text from breaking a table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
