package registry

import "errors"

var (
	// ErrPageLimit is returned with the cases collected so far when a search
	// needs more pages than the configured limit. The cases are the newest
	// ones; older cases beyond the limit are missing.
	ErrPageLimit = errors.New("page limit reached")

	// ErrEmptySearch is returned when neither an address nor a property is given.
	ErrEmptySearch = errors.New("search needs an address or a property")

	// ErrInvalidTerm is returned by Search.Validate for a street or property
	// with unsupported characters or a length outside 3 to 255 characters.
	ErrInvalidTerm = errors.New("invalid search term")
)
