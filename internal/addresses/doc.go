// Package addresses enumerates every street address and property name known
// to the Stockholm city map.
//
// The map only offers a prefix search that returns at most maxrows
// suggestions. The crawl keeps a persistent frontier of prefixes (queries):
// a prefix that returns a full page is expanded into one child per known
// character, a prefix that returns less is a leaf. Every returned row is
// resolved into an Entry (the name without its number) and an EntryNumber.
// New characters seen in names are added to the alphabet before children are
// generated, so the alphabet grows as the crawl discovers it.
//
// All state lives in a Store. Each query is processed in one transaction,
// so an interrupted crawl resumes where it stopped.
package addresses
