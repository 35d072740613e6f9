package addresses

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
)

// Map service endpoints.
const (
	// DefaultBaseURL is the map service host.
	DefaultBaseURL = "https://kartor.stockholm.se"

	// MapPath is the map page that sets up the session.
	MapPath = "/bios/dpwebmap/cust_sth/sbk/sthlm_sse/DPWebMap.html"

	// SuggestionPath is the prefix search endpoint.
	SuggestionPath = "/bios/webquery/app/baggis/web/web_query"

	// OutputCoordSys is the coordinate system requested for X and Y.
	OutputCoordSys = "EPSG:5850"
)

// SuggestionURL returns the suggestion request for prefix.
func SuggestionURL(baseURL, prefix string, maxRows int) string {
	// QueryEscape writes spaces as "+"; the endpoint expects %20.
	escaped := strings.ReplaceAll(url.QueryEscape(prefix), "+", "%20")
	return strings.TrimSuffix(baseURL, "/") + SuggestionPath +
		"?section=search*all" +
		"&resulttype=json" +
		"&outcoordsys=" + OutputCoordSys +
		"&1=" + escaped +
		"&maxrows=" + strconv.Itoa(maxRows)
}

// Suggestions is a decoded suggestion response.
type Suggestions struct {
	// Rows is the row count reported by the service.
	Rows int

	// DBRows are the rows that could be decoded.
	DBRows []model.SuggestionRow

	// Skipped counts rows that could not be decoded.
	Skipped int
}

type suggestionEnvelope struct {
	Rows   *int              `json:"rows"`
	DBRows []json.RawMessage `json:"dbrows"`
}

// DecodeSuggestions decodes a suggestion response. Rows are decoded one by
// one; a malformed row, or one without a RESULT, is logged and skipped. When
// the response has no "rows" field the number of rows in "dbrows" is used.
func DecodeSuggestions(data []byte, logger *slog.Logger) (*Suggestions, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var env suggestionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	s := &Suggestions{
		Rows:   len(env.DBRows),
		DBRows: make([]model.SuggestionRow, 0, len(env.DBRows)),
	}
	if env.Rows != nil {
		s.Rows = *env.Rows
	}

	for i, raw := range env.DBRows {
		var row model.SuggestionRow
		if err := json.Unmarshal(raw, &row); err != nil {
			logger.Warn("skipping malformed suggestion row", "index", i, "row", log.Safe(string(raw)), "error", err)
			s.Skipped++
			continue
		}
		if row.Result == "" {
			logger.Warn("skipping suggestion row without RESULT", "index", i, "row", log.Safe(string(raw)))
			s.Skipped++
			continue
		}
		s.DBRows = append(s.DBRows, row)
	}
	return s, nil
}
