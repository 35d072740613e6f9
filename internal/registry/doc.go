// Package registry reads the Stockholm building-permit case registry.
//
// The registry is an ASP.NET site: a search is a form post carrying the
// page's view-state, and paging is a postback on the result grid. Results are
// listed newest first. Watcher walks the pages until it reaches a known case
// (the watermark) or the site starts repeating its last page.
package registry
