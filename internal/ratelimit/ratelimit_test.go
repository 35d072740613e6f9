package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRandomDelay_Next(t *testing.T) {
	t.Parallel()

	t.Run("disabled when avg is zero", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(0)
		if r.Enabled() {
			t.Error("expected limiter to be disabled")
		}
		if d := r.Next(); d != 0 {
			t.Errorf("expected 0, got %v", d)
		}
	})

	t.Run("lowest draw is one second", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(5*time.Second, WithSource(func(int64) int64 { return 0 }))
		if d := r.Next(); d != time.Second {
			t.Errorf("expected 1s, got %v", d)
		}
	})

	t.Run("highest draw is twice the average", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(5*time.Second, WithSource(func(n int64) int64 { return n - 1 }))
		if d := r.Next(); d != 10*time.Second {
			t.Errorf("expected 10s, got %v", d)
		}
	})

	t.Run("real source stays in bounds", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(2 * time.Second)
		for range 1000 {
			d := r.Next()
			if d < time.Second || d > 4*time.Second {
				t.Fatalf("delay %v out of [1s, 4s]", d)
			}
		}
	})

	t.Run("small average swaps the bounds", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(200 * time.Millisecond)
		for range 100 {
			d := r.Next()
			if d < 400*time.Millisecond || d > time.Second {
				t.Fatalf("delay %v out of [400ms, 1s]", d)
			}
		}
	})

	t.Run("half second average is exactly one second", func(t *testing.T) {
		t.Parallel()

		r := NewRandomDelay(500 * time.Millisecond)
		if d := r.Next(); d != time.Second {
			t.Errorf("expected 1s, got %v", d)
		}
	})
}

func TestRandomDelay_Wait(t *testing.T) {
	t.Parallel()

	t.Run("sleeps the drawn delay", func(t *testing.T) {
		t.Parallel()

		var slept time.Duration
		r := NewRandomDelay(time.Second,
			WithSource(func(int64) int64 { return 0 }),
			WithSleeper(func(_ context.Context, d time.Duration) error {
				slept = d
				return nil
			}),
		)
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slept != time.Second {
			t.Errorf("expected to sleep 1s, slept %v", slept)
		}
	})

	t.Run("cancelled context interrupts the sleep", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewRandomDelay(time.Hour)
		start := time.Now()
		err := r.Wait(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Wait did not return promptly")
		}
	})

	t.Run("disabled limiter still reports cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := NewRandomDelay(0).Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if err := (Nop{}).Wait(context.Background()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}
