package registry

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/nao1215/bygglarm/internal/browser"
	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/ratelimit"
)

// Registry form constants.
const (
	// DefaultURL is the registry search page.
	DefaultURL = "http://insynsbk.stockholm.se/Byggochplantjansten/Arenden/"

	// FormSelector selects the page-wide ASP.NET form.
	FormSelector = "#aspnetForm"

	// FieldPrefix is the naming container of every search control.
	FieldPrefix = "ctl00$FullContentRegion$ContentRegion$SecondaryContentRegion$"

	// AddressField is the street address input.
	AddressField = FieldPrefix + "SearchPropertyAndCase$SearchProperty$AddressInput"

	// PropertyField is the property designation input.
	PropertyField = FieldPrefix + "SearchPropertyAndCase$SearchProperty$PropertyIdInput"

	// SearchButton is the submit control that has to be sent with a search.
	SearchButton = FieldPrefix + "SearchPropertyAndCase$SearchButton"

	// SearchButtonValue is the label of SearchButton.
	SearchButtonValue = "Sök"

	// GridTarget is the postback target of the result grid.
	GridTarget = FieldPrefix + "CaseList$CaseGrid"

	// DefaultMaxPages caps pagination per search.
	DefaultMaxPages = 500
)

// Direction is a result grid pagination argument.
type Direction string

// Pagination directions understood by the grid.
const (
	PageNext Direction = "Page$Next"
	PageLast Direction = "Page$Last"
)

// PageClient is the part of a browser session the watcher needs.
type PageClient interface {
	Open(ctx context.Context, url string) (*browser.Page, error)
	SubmitForm(ctx context.Context, formSelector string, fields map[string]string) (*browser.Page, error)
	Postback(ctx context.Context, formSelector, target, argument string) (*browser.Page, error)
}

// Search is one registry query. At least one field must be set.
type Search struct {
	Address  string `json:"street,omitempty"`
	Property string `json:"property,omitempty"`
}

// Empty reports whether the search has no criteria.
func (s Search) Empty() bool {
	return s.Address == "" && s.Property == ""
}

// validTerm matches the characters found in Stockholm street and property names.
var validTerm = regexp.MustCompile(`(?i)^[a-z0-9äöåéèáàüøæ:.&+ -]{3,255}$`)

// Validate checks that s has criteria and that each one is a plausible street
// or property name.
func (s Search) Validate() error {
	if s.Empty() {
		return ErrEmptySearch
	}
	for _, term := range []string{s.Address, s.Property} {
		if term != "" && !validTerm.MatchString(term) {
			return fmt.Errorf("%w: %q", ErrInvalidTerm, term)
		}
	}
	return nil
}

// fields returns the form values for s.
func (s Search) fields() map[string]string {
	fields := map[string]string{SearchButton: SearchButtonValue}
	if s.Address != "" {
		fields[AddressField] = s.Address
	}
	if s.Property != "" {
		fields[PropertyField] = s.Property
	}
	return fields
}

// Watcher fetches the cases newer than a watermark for a search.
// A Watcher drives one browser session and must not be used concurrently.
type Watcher struct {
	client   PageClient
	parser   *Parser
	limiter  ratelimit.Limiter
	url      string
	maxPages int
	logger   *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLimiter sets the delay between page requests.
func WithLimiter(l ratelimit.Limiter) WatcherOption {
	return func(w *Watcher) {
		w.limiter = l
	}
}

// WithURL overrides the registry search page.
func WithURL(url string) WatcherOption {
	return func(w *Watcher) {
		w.url = url
	}
}

// WithMaxPages caps the number of pages per search. Zero means unlimited.
func WithMaxPages(n int) WatcherOption {
	return func(w *Watcher) {
		w.maxPages = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a Watcher that reads through client.
func NewWatcher(client PageClient, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		client:   client,
		limiter:  ratelimit.NewRandomDelay(5 * ratelimit.MinDelay),
		url:      DefaultURL,
		maxPages: DefaultMaxPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.parser = NewParser(w.logger)
	return w
}

// GetCases returns the cases for a street address that are newer than
// watermark, newest first. An empty watermark returns the full history.
func (w *Watcher) GetCases(ctx context.Context, address, watermark string) ([]model.Case, error) {
	return w.GetCasesFor(ctx, Search{Address: address}, watermark)
}

// GetCasesFor is GetCases for an arbitrary search.
//
// Pages are read until the watermark case is met or the grid returns the
// same set of cases twice, which is how the site signals its last page. The
// watermark case itself is not returned.
//
// On error the cases collected so far are returned with it, newest first.
// Except for ErrPageLimit they may be a fragment of a failed traversal and
// should not be used to advance the watermark.
func (w *Watcher) GetCasesFor(ctx context.Context, search Search, watermark string) ([]model.Case, error) {
	if search.Empty() {
		return nil, ErrEmptySearch
	}

	cases, err := w.firstPage(ctx, search)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("first result page", "cases", len(cases))

	result := make([]model.Case, 0, len(cases))
	previous := map[string]struct{}{}
	pages := 1
	for {
		current := model.CaseIDs(cases)
		if model.SameIDs(current, previous) {
			return result, nil
		}

		for _, c := range cases {
			if watermark != "" && c.ID == watermark {
				return result, nil
			}
			result = append(result, c)
		}

		if w.maxPages > 0 && pages >= w.maxPages {
			return result, fmt.Errorf("%w: %d pages", ErrPageLimit, pages)
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return result, err
		}

		cases, err = w.nextPage(ctx, PageNext)
		if err != nil {
			return result, err
		}
		pages++
		w.logger.Debug("result page", "page", pages, "cases", len(cases))

		previous = current
	}
}

func (w *Watcher) firstPage(ctx context.Context, search Search) ([]model.Case, error) {
	w.logger.Debug("opening registry", "url", w.url)
	page, err := w.client.Open(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	w.logger.Debug("got page", "title", log.Safe(page.Title))

	w.logger.Debug("searching registry",
		"address", log.Safe(search.Address),
		"property", log.Safe(search.Property),
	)
	page, err = w.client.SubmitForm(ctx, FormSelector, search.fields())
	if err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}
	return w.parser.Parse(page.Reader())
}

func (w *Watcher) nextPage(ctx context.Context, dir Direction) ([]model.Case, error) {
	page, err := w.client.Postback(ctx, FormSelector, GridTarget, string(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", dir, err)
	}
	return w.parser.Parse(page.Reader())
}
