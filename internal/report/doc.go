// Package report writes watch and crawl results.
//
// Writers exist for three formats:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for other tools
//   - MarkdownWriter: Markdown for sharing, with a Mermaid chart of the crawl state
//
// Writers implement the Writer interface and can be combined with
// MultiWriter. AtomicFile buffers a report and replaces the target file in
// one step, so a reader never sees a half written report.
package report
