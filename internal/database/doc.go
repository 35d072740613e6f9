// Package database provides SQLite-based storage for bygglarm.
//
// One database file holds:
//   - the address crawl state: queries, learned characters, raw suggestion
//     rows, entries and their numbers
//   - watchjobs and their case watermarks
//
// SQLite is used through modernc.org/sqlite, which needs no cgo. The crawl
// writes from a single process (see addresses.AcquireLock), so the pool is
// limited to one connection and WAL mode keeps readers such as "bygglarm
// stats" from blocking it.
package database
