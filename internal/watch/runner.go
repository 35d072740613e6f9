package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/bygglarm/internal/log"
	"github.com/nao1215/bygglarm/internal/model"
	"github.com/nao1215/bygglarm/internal/registry"
)

// DefaultConcurrency is the number of watchjobs run at the same time.
const DefaultConcurrency = 4

// JobStore is the watchjob persistence the runner needs.
type JobStore interface {
	Watchjobs(ctx context.Context) ([]model.Watchjob, error)
	SetLastCaseID(ctx context.Context, id int64, caseID string) error
}

// CaseSource fetches the cases of one search newer than a watermark.
// registry.Watcher implements it.
type CaseSource interface {
	GetCasesFor(ctx context.Context, search registry.Search, watermark string) ([]model.Case, error)
}

// SourceFactory returns a CaseSource with its own session.
// It is called once per job, so sessions are never shared between goroutines.
type SourceFactory func() (CaseSource, error)

// JobResult is the outcome of one watchjob.
type JobResult struct {
	Job    model.Watchjob  `json:"job"`
	Search registry.Search `json:"search"`

	// Cases are the new cases, newest first.
	Cases []model.Case `json:"cases"`

	// Watermark is the job's watermark after the run.
	Watermark string `json:"watermark"`

	// Truncated is set when pagination stopped at the page cap.
	Truncated bool `json:"truncated,omitempty"`

	// Err is set when the job failed. Cases is then empty and the
	// watermark is unchanged.
	Err error `json:"-"`

	// Error is Err as text.
	Error string `json:"error,omitempty"`
}

// Runner executes watchjobs.
type Runner struct {
	jobs        JobStore
	factory     SourceFactory
	concurrency int
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency sets the maximum number of jobs run at once.
// Non-positive values keep the default.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner reading jobs from jobs and fetching through
// sources created by factory.
func NewRunner(jobs JobStore, factory SourceFactory, opts ...RunnerOption) *Runner {
	r := &Runner{
		jobs:        jobs,
		factory:     factory,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// ParseQuery decodes a watchjob query such as {"street":"Brunnsgatan 1"}.
// Malformed JSON yields an empty Search and the decode error.
func ParseQuery(query string) (registry.Search, error) {
	var s registry.Search
	if err := json.Unmarshal([]byte(query), &s); err != nil {
		return registry.Search{}, err
	}
	return s, nil
}

// Run executes every stored watchjob and returns one result per job in
// job order. Job failures are reported in the results; the returned error
// is only set when the jobs could not be listed or ctx ended.
func (r *Runner) Run(ctx context.Context) ([]JobResult, error) {
	jobs, err := r.jobs.Watchjobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchjobs: %w", err)
	}

	r.logger.Info("running watchjobs", "jobs", len(jobs), "concurrency", r.concurrency)
	start := time.Now()

	results := make([]JobResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each goroutine writes only its own index.
			results[i] = r.RunJob(ctx, job)
			return nil
		})
	}

	err = g.Wait()

	r.logger.Info("watchjobs complete", "jobs", len(jobs), "elapsed", time.Since(start))
	return results, err
}

// RunJob executes one watchjob and persists its new watermark.
//
// Cases newer than the watermark are fetched and the watermark moves to
// the newest of them. When pagination hit the page cap the returned cases
// are kept and the watermark still moves, so the job does not stall on a
// history longer than the cap; older cases past the cap are not delivered.
// Any other error discards the cases and keeps the watermark, so the next
// run fetches them again.
func (r *Runner) RunJob(ctx context.Context, job model.Watchjob) JobResult {
	logger := r.logger.With("watchjob", job.ID)
	res := JobResult{Job: job, Cases: []model.Case{}, Watermark: job.LastCaseID}

	search, err := ParseQuery(job.Query)
	if err != nil {
		logger.Warn("malformed watchjob query", "query", log.Safe(job.Query), "error", err)
		return res
	}
	res.Search = search
	if search.Empty() {
		logger.Warn("watchjob has no search criteria", "query", log.Safe(job.Query))
		return res
	}

	source, err := r.factory()
	if err != nil {
		return r.failed(logger, res, fmt.Errorf("failed to create session: %w", err))
	}

	cases, err := source.GetCasesFor(ctx, search, job.LastCaseID)
	switch {
	case errors.Is(err, registry.ErrPageLimit):
		logger.Warn("page cap reached, older cases were not delivered", "cases", len(cases))
		res.Truncated = true
	case err != nil:
		return r.failed(logger, res, err)
	}

	if len(cases) == 0 {
		logger.Debug("no new cases")
		return res
	}

	newest := cases[0].ID
	if err := r.jobs.SetLastCaseID(ctx, job.ID, newest); err != nil {
		return r.failed(logger, res, fmt.Errorf("failed to store watermark: %w", err))
	}

	res.Cases = cases
	res.Watermark = newest
	logger.Info("new cases", "cases", len(cases), "watermark", newest)
	return res
}

func (r *Runner) failed(logger *slog.Logger, res JobResult, err error) JobResult {
	logger.Warn("watchjob failed", "error", err)
	res.Err = err
	res.Error = err.Error()
	return res
}
