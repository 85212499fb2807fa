// Package retry implements the backoff discipline shared by the two network
// calls of an extraction: a bounded number of attempts with exponential wait
// between them. Errors opt in to retrying via Transient; anything else stops
// the loop immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls how often an operation is attempted and how long to wait
// between attempts. The zero value tries exactly once with no waiting.
type Policy struct {
	MaxRetries  int           // retries after the first attempt; total attempts = MaxRetries + 1
	BaseBackoff time.Duration // wait before the first retry
	MaxBackoff  time.Duration // cap on a single wait; 0 means uncapped
	Jitter      bool          // adds up to one second of random delay per wait

	// Sleep waits between attempts. Nil means a context-aware sleep; tests
	// substitute their own to avoid real waiting.
	Sleep func(context.Context, time.Duration) error

	Logger *slog.Logger
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err carries the Transient marker.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do runs fn up to MaxRetries+1 times, waiting Backoff between attempts.
// Non-transient errors and context cancellation end the loop at once. The
// returned error wraps the last attempt's failure when retries run out.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := p.Backoff(attempt - 1)
			log.Warn("retry.backoff",
				"op", op,
				"attempt", attempt,
				"max_attempts", p.MaxRetries+1,
				"wait_ms", wait.Milliseconds(),
				"error", lastErr,
			)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, p.MaxRetries+1, lastErr)
}

// Backoff returns the wait before retry number attempt (0-based), growing as
// BaseBackoff * 2^attempt and capped at MaxBackoff when set.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff * time.Duration(1<<uint(attempt))
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		d = p.MaxBackoff
	}
	if p.Jitter {
		d += time.Duration(rand.Int63n(int64(time.Second)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
