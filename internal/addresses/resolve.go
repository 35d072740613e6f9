package addresses

import (
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
)

// numberPattern splits "Testgatan 12B" into "Testgatan" and "12B".
var numberPattern = regexp.MustCompile(`^(.+) ([0-9A-Z:]{1,5})$`)

// Outcome is what resolving a suggestion row did to the store.
type Outcome int

// Resolution outcomes.
const (
	// Unresolved rows could not be split into name and number.
	Unresolved Outcome = iota

	// NewEntry means the name was new; an entry, its first number and a
	// full-entry query were created.
	NewEntry

	// NewNumber means a number was added to a known entry.
	NewNumber

	// Duplicate means the number was already known.
	Duplicate
)

// String returns a lower case name for the outcome.
func (o Outcome) String() string {
	switch o {
	case NewEntry:
		return "new entry"
	case NewNumber:
		return "new number"
	case Duplicate:
		return "duplicate"
	default:
		return "unresolved"
	}
}

// Resolution describes one resolved row.
type Resolution struct {
	Outcome Outcome

	// Name is the full, normalized name of the row, e.g. "Testgatan 1".
	Name string

	// Entry and Number are the two parts of Name. Empty when unresolved.
	Entry  string
	Number string
}

// SplitName splits a full name into entry name and number.
func SplitName(name string) (entry, number string, ok bool) {
	m := numberPattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Resolver turns suggestion rows into entries and numbers.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger means slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve records row, returned for prefix, in tx.
//
// The row is always stored as a raw entry. Raw rows that repeat a name with
// different values are logged; the first values are kept. The name is then
// split into entry and number. A new entry gets a bounding box around its
// first coordinate and a full-entry query "<entry> " so that its numbers are
// enumerated later. A known number with different coordinates is logged and
// left unchanged.
func (r *Resolver) Resolve(tx Tx, row model.SuggestionRow, prefix string) (Resolution, error) {
	name := norm.NFC.String(string(row.Result))
	res := Resolution{Outcome: Unresolved, Name: name}

	if err := r.storeRaw(tx, row.RawEntry(name, prefix)); err != nil {
		return res, err
	}

	entryName, number, ok := SplitName(name)
	if !ok {
		r.logger.Warn("could not split name into entry and number", "name", log.Safe(name), "prefix", log.Safe(prefix))
		return res, nil
	}
	res.Entry, res.Number = entryName, number

	entryType := model.EntryTypeForSymbol(string(row.Symbol))
	if entryType == model.EntryUnknown {
		r.logger.Warn("suggestion with unknown symbol", "name", log.Safe(name), "symbol", log.Safe(string(row.Symbol)))
	}
	coord := coordOf(row)

	entry, err := tx.EntryByName(entryName)
	if err != nil {
		return res, fmt.Errorf("failed to look up entry: %w", err)
	}

	if entry == nil {
		newEntry := model.Entry{Name: entryName, Type: entryType}
		if coord != nil {
			b := model.PointBounds(*coord)
			newEntry.Bounds = &b
		}
		id, err := tx.InsertEntry(newEntry)
		if err != nil {
			return res, fmt.Errorf("failed to insert entry: %w", err)
		}
		if _, err := tx.InsertEntryNumber(model.EntryNumber{EntryID: id, Name: number, Coord: coord}); err != nil {
			return res, fmt.Errorf("failed to insert entry number: %w", err)
		}
		if _, err := tx.AddQuery(model.NewQuery(entryName+" ", true)); err != nil {
			return res, fmt.Errorf("failed to schedule full-entry query: %w", err)
		}
		r.logger.Debug("new entry", "entry", log.Safe(entryName), "number", log.Safe(number), "type", entryType)
		res.Outcome = NewEntry
		return res, nil
	}

	existing, err := tx.EntryNumber(entry.ID, number)
	if err != nil {
		return res, fmt.Errorf("failed to look up entry number: %w", err)
	}
	if existing != nil {
		if !existing.SameCoord(coord) {
			r.logger.Warn("same number seen with different coordinates",
				"entry", log.Safe(entryName),
				"number", log.Safe(number),
				"old", existing.Coord,
				"new", coord,
			)
		}
		res.Outcome = Duplicate
		return res, nil
	}

	if _, err := tx.InsertEntryNumber(model.EntryNumber{EntryID: entry.ID, Name: number, Coord: coord}); err != nil {
		return res, fmt.Errorf("failed to insert entry number: %w", err)
	}
	if coord != nil {
		b := model.PointBounds(*coord)
		if entry.Bounds != nil {
			b = entry.Bounds.Extend(*coord)
		}
		if err := tx.UpdateEntryBounds(entry.ID, b); err != nil {
			return res, fmt.Errorf("failed to update entry bounds: %w", err)
		}
	}
	r.logger.Debug("new number", "entry", log.Safe(entryName), "number", log.Safe(number))
	res.Outcome = NewNumber
	return res, nil
}

func (r *Resolver) storeRaw(tx Tx, raw model.RawEntry) error {
	first, err := tx.FirstRawEntry(raw.Name)
	if err != nil {
		return fmt.Errorf("failed to look up raw entry: %w", err)
	}
	if first == nil {
		raw.First = true
	} else if !first.SameValues(raw) {
		r.logger.Warn("different values for the same name",
			"name", log.Safe(raw.Name),
			"old_key", log.Safe(first.Key),
			"new_key", log.Safe(raw.Key),
			"old_xy", log.Safe(first.X+","+first.Y),
			"new_xy", log.Safe(raw.X+","+raw.Y),
		)
	}
	if _, err := tx.InsertRawEntry(raw); err != nil {
		return fmt.Errorf("failed to insert raw entry: %w", err)
	}
	return nil
}

// coordOf returns the row's coordinate, or nil unless both X and Y parse.
func coordOf(row model.SuggestionRow) *model.Coord {
	x, okX := row.X.Float()
	y, okY := row.Y.Float()
	if !okX || !okY {
		return nil
	}
	return &model.Coord{X: x, Y: y}
}
