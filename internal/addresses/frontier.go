package addresses

import (
	"slices"
	"strings"
	"unicode"

	"github.com/nao1215/bygglarm/internal/model"
)

// Decide returns the status of a fetched query that returned numRows rows
// when at most maxRows were requested. A full page means the result was
// probably truncated and the query must be expanded.
func Decide(numRows, maxRows int) model.QueryStatus {
	switch {
	case numRows <= 0:
		return model.QueryDeadEnd
	case numRows < maxRows:
		return model.QueryLeaf
	default:
		return model.QueryExpanded
	}
}

// Expander generates child queries.
type Expander struct {
	// Separators may not follow themselves.
	Separators []string
}

// Expand returns the children of q. A full-entry query only gets digit
// children; any other query gets one child per digit and per alphabet
// character. A separator is never appended to a prefix ending in the same
// separator, and no child starts with whitespace.
func (e Expander) Expand(q model.Query, alphabet *Alphabet) []model.Query {
	candidates := SplitChars(Digits)
	if !q.FullEntry {
		candidates = append(candidates, alphabet.Chars()...)
	}

	children := make([]model.Query, 0, len(candidates))
	for _, c := range candidates {
		if !e.allowed(q.Prefix, c) {
			continue
		}
		children = append(children, model.NewQuery(q.Prefix+c, false))
	}
	return children
}

// Seed returns one root query per alphabet character that may start a prefix.
func (e Expander) Seed(alphabet *Alphabet) []model.Query {
	roots := make([]model.Query, 0, alphabet.Len())
	for _, c := range alphabet.Chars() {
		if !e.allowed("", c) {
			continue
		}
		roots = append(roots, model.NewQuery(c, false))
	}
	return roots
}

func (e Expander) allowed(prefix, c string) bool {
	if prefix == "" && strings.IndexFunc(c, unicode.IsSpace) == 0 {
		return false
	}
	if slices.Contains(e.Separators, c) && strings.HasSuffix(prefix, c) {
		return false
	}
	return true
}
