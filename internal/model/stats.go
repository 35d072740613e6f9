package model

import "time"

// CrawlStats summarises the persisted state of the address crawl.
// It is informational only; nothing in the crawl depends on it.
type CrawlStats struct {
	// Queries counts queries per status.
	Queries map[QueryStatus]int `json:"queries"`

	// PendingFullEntries counts TBD full-entry queries.
	PendingFullEntries int `json:"pending_full_entries"`

	// Entries counts entries per type.
	Entries map[EntryType]int `json:"entries"`

	// Numbers is the total number of EntryNumber rows.
	Numbers int `json:"numbers"`

	// Characters is the size of the learned alphabet.
	Characters int `json:"characters"`

	// RawEntries is the number of stored raw rows; DuplicateRawEntries of them are not first.
	RawEntries          int `json:"raw_entries"`
	DuplicateRawEntries int `json:"duplicate_raw_entries"`

	// GeneratedAt is when the statistics were collected.
	GeneratedAt time.Time `json:"generated_at"`
}

// TotalQueries returns the number of queries in any status.
func (s *CrawlStats) TotalQueries() int {
	total := 0
	for _, n := range s.Queries {
		total += n
	}
	return total
}

// TotalEntries returns the number of entries of any type.
func (s *CrawlStats) TotalEntries() int {
	total := 0
	for _, n := range s.Entries {
		total += n
	}
	return total
}

// Complete reports whether no query is waiting to be processed.
func (s *CrawlStats) Complete() bool {
	return s.Queries[QueryTBD] == 0 && s.Queries[QueryExpandOnly] == 0
}
