package model

import "time"

// Case is one row of the building-permit case registry.
// Cases are immutable once observed.
type Case struct {
	// ID is the registry's case number (diarienummer), e.g. "2008-09960".
	ID string `json:"id"`

	// Property is the property designation (fastighetsbeteckning) the case concerns.
	Property string `json:"property"`

	// CaseType is the kind of case, e.g. "Bygglov".
	CaseType string `json:"type"`

	// Description is the free-text case description.
	Description string `json:"description"`

	// Date is the registration date as printed by the registry.
	Date string `json:"date"`
}

// CaseIDs returns the set of ids present in cases.
func CaseIDs(cases []Case) map[string]struct{} {
	ids := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// SameIDs reports whether two id sets contain exactly the same ids.
func SameIDs(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// Watchjob is a stored registry search.
// The Query is kept as JSON text so that new search parameters can be added
// without a schema change.
type Watchjob struct {
	// ID is the database identifier.
	ID int64 `json:"id"`

	// Query is the JSON encoded search, e.g. {"street":"Brunnsgatan 1"}.
	Query string `json:"query"`

	// LastCaseID is the watermark: the newest case already delivered.
	// Empty means nothing has been delivered yet.
	LastCaseID string `json:"last_case_id"`

	// CreatedAt is when the job was stored.
	CreatedAt time.Time `json:"created_at"`
}
