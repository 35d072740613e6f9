package addresses

import (
	"context"

	"github.com/nao1215/bygglarm/internal/model"
)

// Tx is the crawl state as seen inside one transaction.
// Lookups return nil without an error when nothing matches.
type Tx interface {
	// CountQueries returns the number of stored queries.
	CountQueries() (int, error)

	// NextQuery returns the next pending query: full-entry queries first,
	// then oldest first, then lowest id.
	NextQuery() (*model.Query, error)

	// AddQuery stores q unless a query with the same prefix and full-entry
	// flag exists. It reports whether q was inserted.
	AddQuery(q model.Query) (bool, error)

	// UpdateQueryStatus moves query id from status from to status to.
	// It fails with ErrStatusRegression when the transition is not allowed
	// and with ErrStaleQuery when the query is not in status from.
	UpdateQueryStatus(id int64, from, to model.QueryStatus, numResults int) error

	// Characters returns the learned alphabet in insertion order.
	Characters() ([]string, error)

	// AddCharacter stores c unless it is known. It reports whether c was inserted.
	AddCharacter(c string) (bool, error)

	// FirstRawEntry returns the first stored raw row with name.
	FirstRawEntry(name string) (*model.RawEntry, error)

	// InsertRawEntry appends a raw row.
	InsertRawEntry(e model.RawEntry) (int64, error)

	// EntryByName returns the entry called name.
	EntryByName(name string) (*model.Entry, error)

	// InsertEntry stores a new entry and returns its id.
	InsertEntry(e model.Entry) (int64, error)

	// UpdateEntryBounds replaces the bounding box of entry id.
	UpdateEntryBounds(id int64, b model.Bounds) error

	// EntryNumber returns the number called name under entry entryID.
	EntryNumber(entryID int64, name string) (*model.EntryNumber, error)

	// InsertEntryNumber stores a new number and returns its id.
	InsertEntryNumber(n model.EntryNumber) (int64, error)
}

// Store runs functions in transactions. Update commits when fn returns nil
// and rolls back otherwise; View never commits.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}
