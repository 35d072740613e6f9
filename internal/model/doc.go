// Package model defines the core data structures used throughout bygglarm.
//
// This package contains the following main types:
//   - Case: one entry of the building-permit case registry
//   - Watchjob: a stored registry search with its delivery watermark
//   - Query: one node of the address prefix frontier
//   - Entry, EntryNumber, RawEntry: street and property names resolved from suggestions
//   - CrawlStats: counters describing the state of an address crawl
//
// Models live in their own package so that the crawlers, the store and the
// report writers can share them without import cycles.
package model
