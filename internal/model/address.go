package model

import (
	"fmt"
	"time"
)

// QueryStatus is the processing state of a frontier Query.
type QueryStatus int

// Query status values. The numeric values are persisted.
const (
	// QueryTBD means the query has not been processed yet.
	QueryTBD QueryStatus = -1

	// QueryDeadEnd means the prefix returned no suggestions.
	QueryDeadEnd QueryStatus = 0

	// QueryLeaf means the prefix returned a complete, non-maximal result set.
	QueryLeaf QueryStatus = 1

	// QueryExpanded means the query was expanded into child queries.
	QueryExpanded QueryStatus = 2

	// QueryExpandOnly marks a full-entry query that is expanded without being fetched.
	QueryExpandOnly QueryStatus = 3
)

// String returns the persisted name of the status.
func (s QueryStatus) String() string {
	switch s {
	case QueryTBD:
		return "TBD"
	case QueryDeadEnd:
		return "DEAD_END"
	case QueryLeaf:
		return "LEAF"
	case QueryExpanded:
		return "EXPANDED"
	case QueryExpandOnly:
		return "EXPAND_ONLY"
	default:
		return fmt.Sprintf("QueryStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s QueryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *QueryStatus) UnmarshalText(text []byte) error {
	for _, v := range []QueryStatus{QueryTBD, QueryDeadEnd, QueryLeaf, QueryExpanded, QueryExpandOnly} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown query status %q", text)
}

// Pending reports whether a query in this status still needs processing.
func (s QueryStatus) Pending() bool {
	return s == QueryTBD || s == QueryExpandOnly
}

// CanTransitionTo reports whether moving from s to next keeps the status monotone.
// TBD may move to any decided status, EXPAND_ONLY may only move to EXPANDED,
// and decided statuses never change.
func (s QueryStatus) CanTransitionTo(next QueryStatus) bool {
	switch s {
	case QueryTBD:
		switch next {
		case QueryDeadEnd, QueryLeaf, QueryExpanded, QueryExpandOnly:
			return true
		}
	case QueryExpandOnly:
		return next == QueryExpanded
	}
	return false
}

// Query is one prefix of the address frontier.
type Query struct {
	ID         int64
	Prefix     string
	Status     QueryStatus
	FullEntry  bool
	NumResults int
	CreatedAt  time.Time
}

// NewQuery returns an unprocessed query for prefix.
func NewQuery(prefix string, fullEntry bool) Query {
	return Query{
		Prefix:     prefix,
		Status:     QueryTBD,
		FullEntry:  fullEntry,
		NumResults: -1,
	}
}

// EntryType distinguishes street addresses from property names.
type EntryType int

// Entry type values. The numeric values are persisted.
const (
	EntryUnknown  EntryType = -1
	EntryStreet   EntryType = 0
	EntryProperty EntryType = 1
)

// Suggestion symbols used by the map service to mark row types.
const (
	SymbolStreet   = "fa fa-map-marker"
	SymbolProperty = "fa fa-square-o"
)

// EntryTypeForSymbol maps a suggestion SYMBOL value to an EntryType.
func EntryTypeForSymbol(symbol string) EntryType {
	switch symbol {
	case SymbolStreet:
		return EntryStreet
	case SymbolProperty:
		return EntryProperty
	default:
		return EntryUnknown
	}
}

// String returns a lower case name for the type.
func (t EntryType) String() string {
	switch t {
	case EntryStreet:
		return "street"
	case EntryProperty:
		return "property"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name written by MarshalText.
func (t *EntryType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "street":
		*t = EntryStreet
	case "property":
		*t = EntryProperty
	default:
		*t = EntryUnknown
	}
	return nil
}

// Coord is a point in the map service's output coordinate system.
type Coord struct {
	X float64
	Y float64
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// PointBounds returns the degenerate box containing only c.
func PointBounds(c Coord) Bounds {
	return Bounds{XMin: c.X, XMax: c.X, YMin: c.Y, YMax: c.Y}
}

// Extend returns the smallest box containing b and c.
func (b Bounds) Extend(c Coord) Bounds {
	b.XMin = min(b.XMin, c.X)
	b.XMax = max(b.XMax, c.X)
	b.YMin = min(b.YMin, c.Y)
	b.YMax = max(b.YMax, c.Y)
	return b
}

// Entry is a street or property name without its number.
type Entry struct {
	ID   int64
	Name string
	Type EntryType

	// Bounds covers the coordinates of all numbers under the entry.
	// Nil until a number with coordinates has been seen.
	Bounds *Bounds
}

// EntryNumber is one house or property number under an Entry.
type EntryNumber struct {
	ID      int64
	EntryID int64
	Name    string

	// Coord is nil when the suggestion carried no coordinates.
	Coord *Coord
}

// SameCoord reports whether the number has exactly the coordinate c (both may be nil).
func (n EntryNumber) SameCoord(c *Coord) bool {
	if n.Coord == nil || c == nil {
		return n.Coord == nil && c == nil
	}
	return *n.Coord == *c
}

// RawEntry is a suggestion row stored as received, for auditing.
type RawEntry struct {
	ID      int64
	Name    string
	Key     string
	Result  string
	Section string
	Symbol  string
	X       string
	Y       string

	// Query is the prefix whose request returned the row.
	Query string

	// First is true for the earliest stored row with this Name.
	First bool
}

// SameValues reports whether two raw rows carry the same values,
// ignoring ids, the producing query and the First flag.
func (r RawEntry) SameValues(o RawEntry) bool {
	return r.Name == o.Name &&
		r.Key == o.Key &&
		r.Result == o.Result &&
		r.Section == o.Section &&
		r.Symbol == o.Symbol &&
		r.X == o.X &&
		r.Y == o.Y
}
