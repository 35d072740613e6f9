package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/watch"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// now stamps case reports.
	now func() time.Time
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CasesReport is the JSON document of a watch run.
type CasesReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	NewCases    int               `json:"new_cases"`
	Jobs        []watch.JobResult `json:"jobs"`
}

// CrawlReport is the JSON document of a crawl run.
type CrawlReport struct {
	Run   *addresses.CrawlResult `json:"run"`
	Stats *model.CrawlStats      `json:"stats,omitempty"`
}

// WriteCases outputs the watch results in JSON format.
func (w *JSONWriter) WriteCases(results []watch.JobResult) (int, error) {
	if results == nil {
		results = []watch.JobResult{}
	}
	return w.writeJSON(CasesReport{
		GeneratedAt: w.now().UTC(),
		NewCases:    countNew(results),
		Jobs:        results,
	})
}

// WriteCrawl outputs the crawl summary in JSON format.
func (w *JSONWriter) WriteCrawl(result *addresses.CrawlResult, stats *model.CrawlStats) (int, error) {
	return w.writeJSON(CrawlReport{Run: result, Stats: stats})
}

// WriteStats outputs the crawl state in JSON format.
func (w *JSONWriter) WriteStats(stats *model.CrawlStats) (int, error) {
	return w.writeJSON(stats)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
