package addresses

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Digits are always part of the expansion set and are never learned.
const Digits = "0123456789"

// Alphabet is the ordered set of characters used to extend prefixes.
// With case folding on, characters are upper-cased with Swedish rules so
// that "å" and "Å" are one symbol.
type Alphabet struct {
	chars []string
	set   map[string]struct{}
	fold  bool
	upper cases.Caser
}

// NewAlphabet returns an alphabet holding chars in order.
func NewAlphabet(chars []string, fold bool) *Alphabet {
	a := &Alphabet{
		set:   make(map[string]struct{}, len(chars)),
		fold:  fold,
		upper: cases.Upper(language.Swedish),
	}
	for _, c := range chars {
		a.Add(c)
	}
	return a
}

// SplitChars splits s into one string per rune.
func SplitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

// Normalize returns the canonical form of c. A character whose upper case
// spans several runes, like "ß", is kept as is.
func (a *Alphabet) Normalize(c string) string {
	if !a.fold {
		return c
	}
	u := a.upper.String(c)
	if utf8.RuneCountInString(u) != 1 {
		return c
	}
	return u
}

// Contains reports whether c, normalized, is in the alphabet.
func (a *Alphabet) Contains(c string) bool {
	_, ok := a.set[a.Normalize(c)]
	return ok
}

// Add inserts c and reports whether it was new. Digits and empty strings are
// never added.
func (a *Alphabet) Add(c string) bool {
	c = a.Normalize(c)
	if c == "" || isDigit(c) {
		return false
	}
	if _, ok := a.set[c]; ok {
		return false
	}
	a.set[c] = struct{}{}
	a.chars = append(a.chars, c)
	return true
}

// Learn adds every character of name that is not yet known and returns the
// added characters in order of appearance.
func (a *Alphabet) Learn(name string) []string {
	var learned []string
	for _, r := range name {
		if a.Add(string(r)) {
			learned = append(learned, a.Normalize(string(r)))
		}
	}
	return learned
}

// Chars returns a copy of the characters in insertion order.
func (a *Alphabet) Chars() []string {
	return slices.Clone(a.chars)
}

// Len returns the number of characters.
func (a *Alphabet) Len() int {
	return len(a.chars)
}

// Clone returns an independent copy.
func (a *Alphabet) Clone() *Alphabet {
	return NewAlphabet(a.chars, a.fold)
}

func isDigit(c string) bool {
	return len(c) == 1 && c[0] >= '0' && c[0] <= '9'
}
