package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/bygglarm/internal/model"
)

// Stats collects counts over the address crawl tables.
func (d *DB) Stats(ctx context.Context) (*model.CrawlStats, error) {
	stats := &model.CrawlStats{
		Queries:     make(map[model.QueryStatus]int),
		Entries:     make(map[model.EntryType]int),
		GeneratedAt: time.Now().UTC(),
	}

	if err := d.groupCount(ctx, "SELECT status, COUNT(*) FROM queries GROUP BY status", func(k, n int) {
		stats.Queries[model.QueryStatus(k)] = n
	}); err != nil {
		return nil, fmt.Errorf("failed to count queries: %w", err)
	}
	if err := d.groupCount(ctx, "SELECT type, COUNT(*) FROM entries GROUP BY type", func(k, n int) {
		stats.Entries[model.EntryType(k)] = n
	}); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM queries WHERE full_entry = 1 AND status = -1", &stats.PendingFullEntries},
		{"SELECT COUNT(*) FROM entry_numbers", &stats.Numbers},
		{"SELECT COUNT(*) FROM characters", &stats.Characters},
		{"SELECT COUNT(*) FROM raw_entries", &stats.RawEntries},
		{"SELECT COUNT(*) FROM raw_entries WHERE first = 0", &stats.DuplicateRawEntries},
	}
	for _, c := range counts {
		if err := d.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect statistics: %w", err)
		}
	}
	return stats, nil
}

func (d *DB) groupCount(ctx context.Context, query string, add func(key, n int)) error {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		add(key, n)
	}
	return rows.Err()
}
