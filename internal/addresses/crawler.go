package addresses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/bygglarm/internal/browser"
	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/ratelimit"
)

// Crawler defaults.
const (
	DefaultMaxRows     = 10
	DefaultMaxFailures = 5
	DefaultAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZÅÄÖ"
)

// DefaultSeparators are the characters that are never doubled in a prefix.
var DefaultSeparators = []string{" ", ":"}

// SuggestionClient is the part of a browser session the crawler needs.
type SuggestionClient interface {
	Open(ctx context.Context, url string) (*browser.Page, error)
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// CrawlResult summarises one Search run.
type CrawlResult struct {
	RunID string `json:"run_id"`

	// Processed counts queries whose status was decided in this run.
	Processed  int `json:"processed"`
	DeadEnds   int `json:"dead_ends"`
	Leaves     int `json:"leaves"`
	Expanded   int `json:"expanded"`
	ExpandOnly int `json:"expand_only"`

	// NewQueries counts child and full-entry queries added.
	NewQueries int `json:"new_queries"`

	NewEntries int `json:"new_entries"`
	NewNumbers int `json:"new_numbers"`
	Duplicates int `json:"duplicates"`
	Unresolved int `json:"unresolved"`

	// LearnedCharacters are the characters added to the alphabet, in order.
	LearnedCharacters []string `json:"learned_characters"`

	// Failures counts failed suggestion requests, retried or not.
	Failures int `json:"failures"`

	Elapsed time.Duration `json:"elapsed"`
}

// Crawler drives the address frontier against the map service.
// A Crawler is sequential; run at most one per store.
type Crawler struct {
	client      SuggestionClient
	store       Store
	limiter     ratelimit.Limiter
	expander    Expander
	baseURL     string
	maxRows     int
	maxFailures int
	seed        string
	fold        bool
	lockPath    string
	logger      *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLimiter sets the delay between suggestion requests.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Crawler) {
		c.limiter = l
	}
}

// WithBaseURL overrides the map service host.
func WithBaseURL(u string) Option {
	return func(c *Crawler) {
		c.baseURL = u
	}
}

// WithMaxRows sets the suggestion page size.
func WithMaxRows(n int) Option {
	return func(c *Crawler) {
		c.maxRows = n
	}
}

// WithMaxFailures sets how many consecutive failed requests end a run.
func WithMaxFailures(n int) Option {
	return func(c *Crawler) {
		c.maxFailures = n
	}
}

// WithAlphabet sets the seed alphabet.
func WithAlphabet(chars string) Option {
	return func(c *Crawler) {
		c.seed = chars
	}
}

// WithSeparators sets the characters that are never doubled.
func WithSeparators(seps []string) Option {
	return func(c *Crawler) {
		c.expander.Separators = seps
	}
}

// WithFoldCase toggles Swedish upper-casing of alphabet characters.
func WithFoldCase(fold bool) Option {
	return func(c *Crawler) {
		c.fold = fold
	}
}

// WithLockFile makes Search hold an exclusive lock on path while it runs.
func WithLockFile(path string) Option {
	return func(c *Crawler) {
		c.lockPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// NewCrawler creates a Crawler reading through client and persisting to store.
func NewCrawler(client SuggestionClient, store Store, opts ...Option) *Crawler {
	c := &Crawler{
		client:      client,
		store:       store,
		limiter:     ratelimit.NewRandomDelay(5 * ratelimit.MinDelay),
		expander:    Expander{Separators: DefaultSeparators},
		baseURL:     DefaultBaseURL,
		maxRows:     DefaultMaxRows,
		maxFailures: DefaultMaxFailures,
		seed:        DefaultAlphabet,
		fold:        true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxFailures <= 0 {
		c.maxFailures = DefaultMaxFailures
	}
	return c
}

// run is the state of one Search call.
type run struct {
	result    *CrawlResult
	alphabet  *Alphabet
	logger    *slog.Logger
	resolver  *Resolver
	session   bool
	requested bool
	failures  int
}

// Search processes pending queries until none is left.
//
// Full-entry queries are expanded without a request. Every other query is
// fetched, its rows are resolved, new characters are learned and the query
// is decided and expanded, all in one transaction. A failed request leaves
// the query pending and is retried after the next delay; after maxFailures
// failures in a row Search returns ErrTooManyFailures. Running Search on a
// finished crawl does nothing.
func (c *Crawler) Search(ctx context.Context) (*CrawlResult, error) {
	start := time.Now()
	r := &run{result: &CrawlResult{RunID: uuid.NewString(), LearnedCharacters: []string{}}}
	r.logger = c.logger.With("run", r.result.RunID)
	r.resolver = NewResolver(r.logger)
	defer func() { r.result.Elapsed = time.Since(start) }()

	if c.lockPath != "" {
		lock, err := AcquireLock(c.lockPath)
		if err != nil {
			return r.result, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				r.logger.Warn("failed to release crawl lock", "path", c.lockPath, "error", err)
			}
		}()
	}

	alphabet, err := c.prepare(ctx, r)
	if err != nil {
		return r.result, err
	}
	r.alphabet = alphabet
	r.logger.Info("crawl started", "alphabet", strings.Join(alphabet.Chars(), ""))

	for {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}

		q, err := c.next(ctx)
		if err != nil {
			return r.result, err
		}
		if q == nil {
			break
		}

		if q.FullEntry {
			if err := c.expandOnly(ctx, r, *q); err != nil {
				return r.result, err
			}
			continue
		}

		if err := c.fetchAndProcess(ctx, r, *q); err != nil {
			return r.result, err
		}
	}

	r.logger.Info("crawl complete",
		"processed", r.result.Processed,
		"new_entries", r.result.NewEntries,
		"new_numbers", r.result.NewNumbers,
	)
	return r.result, nil
}

// prepare loads the alphabet, persisting seed characters that are missing,
// and seeds root queries into an empty store.
func (c *Crawler) prepare(ctx context.Context, r *run) (*Alphabet, error) {
	var alphabet *Alphabet
	err := c.store.Update(ctx, func(tx Tx) error {
		stored, err := tx.Characters()
		if err != nil {
			return err
		}
		alphabet = NewAlphabet(stored, c.fold)
		for _, ch := range SplitChars(c.seed) {
			if !alphabet.Add(ch) {
				continue
			}
			if _, err := tx.AddCharacter(alphabet.Normalize(ch)); err != nil {
				return err
			}
		}

		n, err := tx.CountQueries()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		roots := c.expander.Seed(alphabet)
		for _, q := range roots {
			if _, err := tx.AddQuery(q); err != nil {
				return err
			}
		}
		r.logger.Info("seeded empty frontier", "queries", len(roots))
		r.result.NewQueries += len(roots)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare crawl: %w", err)
	}
	return alphabet, nil
}

func (c *Crawler) next(ctx context.Context) (*model.Query, error) {
	var q *model.Query
	err := c.store.View(ctx, func(tx Tx) error {
		var err error
		q, err = tx.NextQuery()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select next query: %w", err)
	}
	return q, nil
}

// expandOnly expands a full-entry query into its digit children.
func (c *Crawler) expandOnly(ctx context.Context, r *run, q model.Query) error {
	children := c.expander.Expand(q, r.alphabet)
	added := 0
	err := c.store.Update(ctx, func(tx Tx) error {
		added = 0
		if q.Status == model.QueryTBD {
			if err := tx.UpdateQueryStatus(q.ID, model.QueryTBD, model.QueryExpandOnly, q.NumResults); err != nil {
				return err
			}
		}
		for _, child := range children {
			inserted, err := tx.AddQuery(child)
			if err != nil {
				return err
			}
			if inserted {
				added++
			}
		}
		return tx.UpdateQueryStatus(q.ID, model.QueryExpandOnly, model.QueryExpanded, q.NumResults)
	})
	if err != nil {
		return fmt.Errorf("failed to expand %q: %w", q.Prefix, err)
	}

	r.result.Processed++
	r.result.ExpandOnly++
	r.result.NewQueries += added
	r.logger.Debug("expanded full entry", "prefix", log.Safe(q.Prefix), "children", added)
	return nil
}

// fetchAndProcess requests suggestions for q and processes them. Request
// failures are counted and leave q pending; only ErrTooManyFailures, context
// and store errors are returned.
func (c *Crawler) fetchAndProcess(ctx context.Context, r *run, q model.Query) error {
	if r.requested {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	r.requested = true

	suggestions, err := c.fetch(ctx, r, q.Prefix)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.failures++
		r.result.Failures++
		r.logger.Warn("suggestion request failed, query stays pending",
			"prefix", log.Safe(q.Prefix),
			"consecutive_failures", r.failures,
			"error", err,
		)
		if r.failures >= c.maxFailures {
			return fmt.Errorf("%w: %d in a row: %w", ErrTooManyFailures, r.failures, err)
		}
		return nil
	}
	r.failures = 0

	return c.process(ctx, r, q, suggestions)
}

func (c *Crawler) fetch(ctx context.Context, r *run, prefix string) (*Suggestions, error) {
	if !r.session {
		if err := c.openSession(ctx, r); err != nil {
			return nil, err
		}
		r.session = true
	}

	body, err := c.client.GetJSON(ctx, SuggestionURL(c.baseURL, prefix, c.maxRows))
	if err != nil {
		return nil, err
	}
	return DecodeSuggestions(body, r.logger)
}

// openSession visits the map host and the map page, as a browser would,
// before the first suggestion request.
func (c *Crawler) openSession(ctx context.Context, r *run) error {
	base := strings.TrimSuffix(c.baseURL, "/")
	if _, err := c.client.Open(ctx, base); err != nil {
		return fmt.Errorf("failed to open map host: %w", err)
	}
	page, err := c.client.Open(ctx, base+MapPath)
	if err != nil {
		return fmt.Errorf("failed to open map page: %w", err)
	}
	r.logger.Debug("map session opened", "title", log.Safe(page.Title))
	return nil
}

// process records one successful response in a single transaction.
func (c *Crawler) process(ctx context.Context, r *run, q model.Query, s *Suggestions) error {
	var (
		next    *Alphabet
		learned []string
		status  model.QueryStatus
		tally   CrawlResult
	)

	err := c.store.Update(ctx, func(tx Tx) error {
		next = r.alphabet.Clone()
		learned = nil
		tally = CrawlResult{}

		for _, row := range s.DBRows {
			res, err := r.resolver.Resolve(tx, row, q.Prefix)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case Unresolved:
				tally.Unresolved++
				continue
			case NewEntry:
				tally.NewEntries++
				tally.NewQueries++
			case NewNumber:
				tally.NewNumbers++
			case Duplicate:
				tally.Duplicates++
			}

			for _, ch := range next.Learn(res.Name) {
				if _, err := tx.AddCharacter(ch); err != nil {
					return err
				}
				learned = append(learned, ch)
			}
		}

		status = Decide(s.Rows, c.maxRows)
		if status == model.QueryExpanded {
			r.logger.Debug("probably missed results, expanding",
				"prefix", log.Safe(q.Prefix),
				"rows", s.Rows,
				"max_rows", c.maxRows,
			)
			for _, child := range c.expander.Expand(q, next) {
				inserted, err := tx.AddQuery(child)
				if err != nil {
					return err
				}
				if inserted {
					tally.NewQueries++
				}
			}
		}

		return tx.UpdateQueryStatus(q.ID, model.QueryTBD, status, s.Rows)
	})
	if err != nil {
		if errors.Is(err, ErrStaleQuery) {
			r.logger.Warn("query was processed elsewhere, skipping", "prefix", log.Safe(q.Prefix))
			return nil
		}
		return fmt.Errorf("failed to process %q: %w", q.Prefix, err)
	}

	r.alphabet = next
	for _, ch := range learned {
		r.logger.Info("learned character", "character", log.Safe(ch))
	}

	res := r.result
	res.Processed++
	switch status {
	case model.QueryDeadEnd:
		res.DeadEnds++
	case model.QueryLeaf:
		res.Leaves++
	case model.QueryExpanded:
		res.Expanded++
	}
	res.NewQueries += tally.NewQueries
	res.NewEntries += tally.NewEntries
	res.NewNumbers += tally.NewNumbers
	res.Duplicates += tally.Duplicates
	res.Unresolved += tally.Unresolved
	res.LearnedCharacters = append(res.LearnedCharacters, learned...)

	r.logger.Debug("processed query",
		"prefix", log.Safe(q.Prefix),
		"status", status,
		"rows", s.Rows,
		"skipped_rows", s.Skipped,
	)
	return nil
}
