// Package ratelimit spaces out requests to the remote sites with a
// randomized delay.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// MinDelay is the lower bound of every randomized delay.
const MinDelay = time.Second

// Limiter blocks until the next request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RandomDelay waits a uniformly distributed duration in [MinDelay, 2*avg]
// on every call. An average of zero or less disables waiting.
type RandomDelay struct {
	avg time.Duration

	// int64n returns a value in [0, n).
	int64n func(n int64) int64

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a RandomDelay.
type Option func(*RandomDelay)

// WithSource sets the random source. It must return a value in [0, n).
func WithSource(int64n func(n int64) int64) Option {
	return func(r *RandomDelay) {
		r.int64n = int64n
	}
}

// WithSleeper replaces the context-aware timer, mainly for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *RandomDelay) {
		r.sleep = sleep
	}
}

// NewRandomDelay returns a limiter with mean delay avg.
func NewRandomDelay(avg time.Duration, opts ...Option) *RandomDelay {
	r := &RandomDelay{
		avg:    avg,
		int64n: rand.Int64N,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether Wait ever blocks.
func (r *RandomDelay) Enabled() bool {
	return r.avg > 0
}

// Next draws the next delay. It returns 0 when the limiter is disabled.
// When 2*avg is below MinDelay the bounds are swapped, so the result still
// lies between the two.
func (r *RandomDelay) Next() time.Duration {
	if !r.Enabled() {
		return 0
	}
	lo, hi := MinDelay, 2*r.avg
	if hi < lo {
		lo, hi = hi, lo
	}
	span := int64(hi - lo)
	if span == 0 {
		return lo
	}
	return lo + time.Duration(r.int64n(span+1))
}

// Wait sleeps for Next() or until ctx is done, returning ctx.Err() in the
// latter case.
func (r *RandomDelay) Wait(ctx context.Context) error {
	d := r.Next()
	if d == 0 {
		return ctx.Err()
	}
	return r.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Nop never waits.
type Nop struct{}

// Wait returns ctx.Err().
func (Nop) Wait(ctx context.Context) error {
	return ctx.Err()
}
