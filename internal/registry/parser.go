package registry

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
)

// Result grid markers.
const (
	caseCellClass = "DataGridItemCell"
	caseCellCount = 5
)

// Parser extracts cases from a result page.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger means slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse returns the cases of the result grid in page order.
//
// A case row is a <tr> with exactly five <td> children whose first cell has
// the single class DataGridItemCell. Every other row is ignored. A case row
// with an empty field is logged and skipped. A page without case rows yields
// an empty slice.
func (p *Parser) Parse(r io.Reader) ([]model.Case, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	cases := make([]model.Case, 0)
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != caseCellCount || !isCaseCell(cells.First()) {
			return
		}

		c := model.Case{
			ID:          strings.TrimSpace(cells.Eq(0).Find("a").First().Text()),
			Property:    strings.TrimSpace(cells.Eq(1).Text()),
			CaseType:    strings.TrimSpace(cells.Eq(2).Text()),
			Description: strings.TrimSpace(cells.Eq(3).Text()),
			Date:        strings.TrimSpace(cells.Eq(4).Text()),
		}
		if field := emptyField(c); field != "" {
			p.logger.Warn("skipping malformed case row",
				"row", i,
				"field", field,
				"id", log.Safe(c.ID),
			)
			return
		}

		p.logger.Debug("found case", "id", log.Safe(c.ID))
		cases = append(cases, c)
	})

	return cases, nil
}

func isCaseCell(cell *goquery.Selection) bool {
	class, ok := cell.Attr("class")
	if !ok {
		return false
	}
	classes := strings.Fields(class)
	return len(classes) == 1 && classes[0] == caseCellClass
}

// emptyField returns the name of the first empty field of c, or "".
func emptyField(c model.Case) string {
	switch {
	case c.ID == "":
		return "id"
	case c.Property == "":
		return "property"
	case c.CaseType == "":
		return "type"
	case c.Description == "":
		return "description"
	case c.Date == "":
		return "date"
	}
	return ""
}
