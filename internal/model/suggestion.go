package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// SuggestionRow is one element of the map service's "dbrows" array.
type SuggestionRow struct {
	Key     FlexString `json:"KEY"`
	Result  FlexString `json:"RESULT"`
	Section FlexString `json:"SECTION"`
	Symbol  FlexString `json:"SYMBOL"`
	X       FlexString `json:"X"`
	Y       FlexString `json:"Y"`
}

// RawEntry converts the row into a RawEntry produced by prefix.
// The First flag is decided by the store.
func (r SuggestionRow) RawEntry(name, prefix string) RawEntry {
	return RawEntry{
		Name:    name,
		Key:     string(r.Key),
		Result:  string(r.Result),
		Section: string(r.Section),
		Symbol:  string(r.Symbol),
		X:       string(r.X),
		Y:       string(r.Y),
		Query:   prefix,
	}
}

// FlexString decodes a JSON string, number or null into a string.
// The map service is not consistent about quoting coordinates.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// Float parses the value as a float. ok is false for empty, invalid or
// non-finite values.
func (s FlexString) Float() (f float64, ok bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
